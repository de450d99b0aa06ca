package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/querybridge/querybridge/internal/engine"
)

type stubEngine struct {
	schema        string
	schemaErr     error
	valid         bool
	diagnostic    string
	validateErr   error
	records       []engine.Record
	executeErr    error
	executedCalls int
	validatedSQL  string
}

func (s *stubEngine) FetchSchema(context.Context) (string, error) {
	return s.schema, s.schemaErr
}

func (s *stubEngine) Validate(_ context.Context, sql string) (bool, string, error) {
	s.validatedSQL = sql
	return s.valid, s.diagnostic, s.validateErr
}

func (s *stubEngine) Execute(context.Context, string) ([]engine.Record, error) {
	s.executedCalls++
	return s.records, s.executeErr
}

func (s *stubEngine) Dialect() string { return "PostgreSQL" }

type stubTranslator struct {
	sql     string
	err     error
	lastReq Request
}

func (s *stubTranslator) Translate(_ context.Context, req Request) (Result, error) {
	s.lastReq = req
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{SQL: s.sql, Provider: "stub", Model: "stub-1"}, nil
}

func TestGenerateQueryHappyPath(t *testing.T) {
	eng := &stubEngine{schema: "\nTable: users\n  Column: id (bigint)\n", valid: true}
	translator := &stubTranslator{sql: "```sql\nSELECT id FROM users;\n```"}
	pipeline := &Pipeline{Translator: translator}

	query, err := pipeline.GenerateQuery(context.Background(), eng, "list user ids", "")
	if err != nil {
		t.Fatalf("GenerateQuery() error = %v", err)
	}
	if query != "SELECT id FROM users" {
		t.Fatalf("query = %q", query)
	}
	if translator.lastReq.SchemaContext != eng.schema {
		t.Fatalf("schema context = %q", translator.lastReq.SchemaContext)
	}
	if translator.lastReq.Dialect != "PostgreSQL" {
		t.Fatalf("dialect = %q", translator.lastReq.Dialect)
	}
	if eng.validatedSQL != "SELECT id FROM users" {
		t.Fatalf("validated sql = %q", eng.validatedSQL)
	}
}

func TestGenerateQuerySkipsSchemaFetchWhenProvided(t *testing.T) {
	eng := &stubEngine{schemaErr: errors.New("unreachable"), valid: true}
	translator := &stubTranslator{sql: "SELECT 1"}
	pipeline := &Pipeline{Translator: translator}

	if _, err := pipeline.GenerateQuery(context.Background(), eng, "anything", "Table: t"); err != nil {
		t.Fatalf("GenerateQuery() error = %v", err)
	}
	if translator.lastReq.SchemaContext != "Table: t" {
		t.Fatalf("schema context = %q", translator.lastReq.SchemaContext)
	}
}

func TestGenerateQuerySchemaFailureIsUpstream(t *testing.T) {
	eng := &stubEngine{schemaErr: errors.New("connection refused")}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "SELECT 1"}}

	_, err := pipeline.GenerateQuery(context.Background(), eng, "anything", "")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if stepErr.Step != StepSchemaResolved || !stepErr.Upstream {
		t.Fatalf("StepError = %+v", stepErr)
	}
}

func TestGenerateQueryTranslatorFailureIsUpstream(t *testing.T) {
	eng := &stubEngine{schema: "Table: t", valid: true}
	pipeline := &Pipeline{Translator: &stubTranslator{err: errors.New("quota")}}

	_, err := pipeline.GenerateQuery(context.Background(), eng, "anything", "")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if stepErr.Step != StepQueryGenerated || !stepErr.Upstream {
		t.Fatalf("StepError = %+v", stepErr)
	}
}

func TestGenerateQueryEmptyAfterNormalization(t *testing.T) {
	eng := &stubEngine{schema: "Table: t", valid: true}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "```sql\n```"}}

	_, err := pipeline.GenerateQuery(context.Background(), eng, "anything", "")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if stepErr.Step != StepNormalized || stepErr.Upstream {
		t.Fatalf("StepError = %+v", stepErr)
	}
}

func TestGenerateQueryValidationRejectionCarriesQuery(t *testing.T) {
	eng := &stubEngine{schema: "Table: t", valid: false, diagnostic: `relation "missing" does not exist`}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "SELECT * FROM missing"}}

	_, err := pipeline.GenerateQuery(context.Background(), eng, "anything", "")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if stepErr.Step != StepValidated || stepErr.Upstream {
		t.Fatalf("StepError = %+v", stepErr)
	}
	if stepErr.Query != "SELECT * FROM missing" {
		t.Fatalf("Query = %q", stepErr.Query)
	}
	if stepErr.Diagnostic != `relation "missing" does not exist` {
		t.Fatalf("Diagnostic = %q", stepErr.Diagnostic)
	}
}

func TestFetchDataNeverExecutesRejectedQuery(t *testing.T) {
	eng := &stubEngine{schema: "Table: t", valid: false, diagnostic: "syntax error"}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "SELEC broken"}}

	_, _, err := pipeline.FetchData(context.Background(), eng, "anything", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if eng.executedCalls != 0 {
		t.Fatalf("Execute called %d times for a rejected query", eng.executedCalls)
	}
}

func TestFetchDataReturnsRecords(t *testing.T) {
	eng := &stubEngine{
		schema:  "Table: t",
		valid:   true,
		records: []engine.Record{{"id": int64(1)}, {"id": int64(2)}},
	}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "SELECT id FROM t"}}

	query, records, err := pipeline.FetchData(context.Background(), eng, "anything", "")
	if err != nil {
		t.Fatalf("FetchData() error = %v", err)
	}
	if query != "SELECT id FROM t" {
		t.Fatalf("query = %q", query)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
}

func TestFetchDataClassifiesExecutionErrors(t *testing.T) {
	queryFault := &stubEngine{
		schema:     "Table: t",
		valid:      true,
		executeErr: &engine.QueryError{Err: fmt.Errorf(`column "missing" does not exist`)},
	}
	pipeline := &Pipeline{Translator: &stubTranslator{sql: "SELECT missing FROM t"}}

	_, _, err := pipeline.FetchData(context.Background(), queryFault, "anything", "")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if stepErr.Step != StepExecuted || stepErr.Upstream {
		t.Fatalf("query fault StepError = %+v", stepErr)
	}

	infraFault := &stubEngine{
		schema:     "Table: t",
		valid:      true,
		executeErr: errors.New("connection reset"),
	}
	_, _, err = pipeline.FetchData(context.Background(), infraFault, "anything", "")
	if !errors.As(err, &stepErr) {
		t.Fatalf("error = %v", err)
	}
	if !stepErr.Upstream {
		t.Fatalf("infra fault StepError = %+v", stepErr)
	}
}
