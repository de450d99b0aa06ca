package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedModel struct {
	outputs []string
	calls   []string
	err     error
}

func (m *scriptedModel) GenerateText(_ context.Context, prompt string) (string, error) {
	m.calls = append(m.calls, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.outputs) == 0 {
		return "", errors.New("no scripted output")
	}
	out := m.outputs[0]
	m.outputs = m.outputs[1:]
	return out, nil
}

func TestManagerAnalyzeCombinesReports(t *testing.T) {
	model := &scriptedModel{outputs: []string{
		"Word Count: 3 [hello wide world]",
		"Character Count: 16 [hello wide world]",
	}}
	manager := NewManager(model, nil)

	analysis, err := manager.Analyze(context.Background(), "hello wide world")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := "Word Count: 3 [hello wide world]\nCharacter Count: 16 [hello wide world]"
	if analysis.Summary != want {
		t.Fatalf("Summary = %q, want %q", analysis.Summary, want)
	}
	if analysis.WordCount != 3 {
		t.Fatalf("WordCount = %d, want 3", analysis.WordCount)
	}
	if analysis.CharCount != 16 {
		t.Fatalf("CharCount = %d, want 16", analysis.CharCount)
	}

	if len(model.calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(model.calls))
	}
	if !strings.Contains(model.calls[0], "Word Counter") {
		t.Fatalf("first prompt missing role: %q", model.calls[0])
	}
	if !strings.Contains(model.calls[1], "Character Counter") {
		t.Fatalf("second prompt missing role: %q", model.calls[1])
	}
	for _, call := range model.calls {
		if !strings.Contains(call, "hello wide world") {
			t.Fatalf("prompt missing sentence: %q", call)
		}
	}
}

func TestManagerAnalyzeRejectsEmptyText(t *testing.T) {
	manager := NewManager(&scriptedModel{}, nil)
	if _, err := manager.Analyze(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("error = %v, want ErrEmptyText", err)
	}
}

func TestManagerAnalyzePropagatesModelFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("quota exceeded")}
	manager := NewManager(model, nil)

	_, err := manager.Analyze(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Word Counter") {
		t.Fatalf("error = %v, want agent role in message", err)
	}
}

func TestManagerAnalyzeRejectsReportWithoutCount(t *testing.T) {
	model := &scriptedModel{outputs: []string{
		"I am unable to count the words in that sentence.",
		"Character Count: 5 [hello]",
	}}
	manager := NewManager(model, nil)

	_, err := manager.Analyze(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for report without a count")
	}
	if !strings.Contains(err.Error(), "Word Counter") {
		t.Fatalf("error = %v, want offending role in message", err)
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		report string
		want   int
	}{
		{"Word Count: 7 [a b c d e f g]", 7},
		{"word count:12 [x]", 12},
		{"The Character Count: 42 [..]", 42},
	}
	for _, tc := range cases {
		got, err := parseCount("Word Counter", tc.report)
		if err != nil {
			t.Fatalf("parseCount(%q) error = %v", tc.report, err)
		}
		if got != tc.want {
			t.Fatalf("parseCount(%q) = %d, want %d", tc.report, got, tc.want)
		}
	}

	if _, err := parseCount("Word Counter", "no digits here"); err == nil {
		t.Fatal("expected error for report without a count")
	}
}

func TestAgentExecuteRejectsEmptyOutput(t *testing.T) {
	agent := NewAgent("Word Counter", "count words", &scriptedModel{outputs: []string{"   "}})
	if _, err := agent.Execute(context.Background(), "task"); err == nil {
		t.Fatal("expected error for blank model output")
	}
}
