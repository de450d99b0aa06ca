// Package seed loads a small deterministic retail dataset into the demo
// targets: parquet objects for the columnar engine and tables for the
// relational one.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/querybridge/querybridge/internal/storage"
)

const (
	CustomersTable = "customers"
	OrdersTable    = "orders"

	partName = "part-00000.parquet"
)

type Customer struct {
	CustomerID int64  `parquet:"customer_id"`
	Name       string `parquet:"name"`
	Email      string `parquet:"email"`
	City       string `parquet:"city"`
	SignupDate string `parquet:"signup_date"`
}

type Order struct {
	OrderID    int64   `parquet:"order_id"`
	CustomerID int64   `parquet:"customer_id"`
	Product    string  `parquet:"product"`
	Quantity   int32   `parquet:"quantity"`
	TotalUSD   float64 `parquet:"total_usd"`
	OrderDate  string  `parquet:"order_date"`
}

// Customers returns the fixed demo customer rows. The data never changes so
// generated queries stay reproducible across runs.
func Customers() []Customer {
	return []Customer{
		{CustomerID: 1, Name: "Ada Lovelace", Email: "ada@example.com", City: "London", SignupDate: "2024-01-15"},
		{CustomerID: 2, Name: "Grace Hopper", Email: "grace@example.com", City: "New York", SignupDate: "2024-02-03"},
		{CustomerID: 3, Name: "Alan Turing", Email: "alan@example.com", City: "Manchester", SignupDate: "2024-02-19"},
		{CustomerID: 4, Name: "Katherine Johnson", Email: "katherine@example.com", City: "Hampton", SignupDate: "2024-03-08"},
		{CustomerID: 5, Name: "Dennis Ritchie", Email: "dennis@example.com", City: "Murray Hill", SignupDate: "2024-04-21"},
	}
}

func Orders() []Order {
	return []Order{
		{OrderID: 101, CustomerID: 1, Product: "mechanical keyboard", Quantity: 1, TotalUSD: 129.99, OrderDate: "2024-05-02"},
		{OrderID: 102, CustomerID: 1, Product: "usb-c dock", Quantity: 2, TotalUSD: 179.98, OrderDate: "2024-05-11"},
		{OrderID: 103, CustomerID: 2, Product: "wireless mouse", Quantity: 1, TotalUSD: 24.99, OrderDate: "2024-05-14"},
		{OrderID: 104, CustomerID: 3, Product: "27in monitor", Quantity: 2, TotalUSD: 459.98, OrderDate: "2024-06-01"},
		{OrderID: 105, CustomerID: 4, Product: "laptop stand", Quantity: 1, TotalUSD: 39.95, OrderDate: "2024-06-09"},
		{OrderID: 106, CustomerID: 4, Product: "webcam", Quantity: 1, TotalUSD: 89.00, OrderDate: "2024-06-09"},
		{OrderID: 107, CustomerID: 5, Product: "mechanical keyboard", Quantity: 1, TotalUSD: 129.99, OrderDate: "2024-07-17"},
	}
}

func encodeParquet[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Seeder uploads the demo dataset as one parquet part per table under
// <dataset>/<table>/.
type Seeder struct {
	Store   storage.ObjectStore
	Dataset string
	Logger  *slog.Logger
}

func (s *Seeder) SeedWarehouse(ctx context.Context) error {
	if s.Store == nil {
		return fmt.Errorf("object store is required")
	}
	if s.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}

	customers, err := encodeParquet(Customers())
	if err != nil {
		return fmt.Errorf("encode %s: %w", CustomersTable, err)
	}
	orders, err := encodeParquet(Orders())
	if err != nil {
		return fmt.Errorf("encode %s: %w", OrdersTable, err)
	}

	uploads := []struct {
		table string
		data  []byte
	}{
		{CustomersTable, customers},
		{OrdersTable, orders},
	}
	for _, upload := range uploads {
		key := fmt.Sprintf("%s/%s/%s", s.Dataset, upload.table, partName)
		info, err := s.Store.Put(ctx, key, bytes.NewReader(upload.data), int64(len(upload.data)), storage.PutOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		if s.Logger != nil {
			s.Logger.InfoContext(ctx, "seeded warehouse table",
				slog.String("key", info.Key),
				slog.Int64("bytes", int64(len(upload.data))),
			)
		}
	}
	return nil
}

// SeedRelational recreates and fills the demo tables in PostgreSQL.
func SeedRelational(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`DROP TABLE IF EXISTS orders`,
		`DROP TABLE IF EXISTS customers`,
		`CREATE TABLE customers (
			customer_id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			city TEXT NOT NULL,
			signup_date DATE NOT NULL
		)`,
		`CREATE TABLE orders (
			order_id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers (customer_id),
			product TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			total_usd NUMERIC(10, 2) NOT NULL,
			order_date DATE NOT NULL
		)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("prepare schema: %w", err)
		}
	}

	for _, customer := range Customers() {
		_, err := db.ExecContext(ctx,
			`INSERT INTO customers (customer_id, name, email, city, signup_date) VALUES ($1, $2, $3, $4, $5)`,
			customer.CustomerID, customer.Name, customer.Email, customer.City, customer.SignupDate,
		)
		if err != nil {
			return fmt.Errorf("insert customer %d: %w", customer.CustomerID, err)
		}
	}
	for _, order := range Orders() {
		_, err := db.ExecContext(ctx,
			`INSERT INTO orders (order_id, customer_id, product, quantity, total_usd, order_date) VALUES ($1, $2, $3, $4, $5, $6)`,
			order.OrderID, order.CustomerID, order.Product, order.Quantity, order.TotalUSD, order.OrderDate,
		)
		if err != nil {
			return fmt.Errorf("insert order %d: %w", order.OrderID, err)
		}
	}
	return nil
}
