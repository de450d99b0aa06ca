package seed

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/parquet-go/parquet-go"

	"github.com/querybridge/querybridge/internal/storage"
)

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) List(_ context.Context, _ string) ([]storage.ObjectInfo, error) {
	infos := make([]storage.ObjectInfo, 0, len(f.objects))
	for key, data := range f.objects {
		infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return infos, nil
}

func TestSeedWarehouseUploadsOnePartPerTable(t *testing.T) {
	store := &fakeStore{}
	seeder := &Seeder{Store: store, Dataset: "demo"}

	if err := seeder.SeedWarehouse(context.Background()); err != nil {
		t.Fatalf("SeedWarehouse() error = %v", err)
	}

	for _, key := range []string{
		"demo/customers/part-00000.parquet",
		"demo/orders/part-00000.parquet",
	} {
		if _, ok := store.objects[key]; !ok {
			t.Fatalf("missing object %q", key)
		}
	}
}

func TestSeedWarehouseParquetRoundTrip(t *testing.T) {
	store := &fakeStore{}
	seeder := &Seeder{Store: store, Dataset: "demo"}
	if err := seeder.SeedWarehouse(context.Background()); err != nil {
		t.Fatalf("SeedWarehouse() error = %v", err)
	}

	data := store.objects["demo/orders/part-00000.parquet"]
	rows, err := parquet.Read[Order](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != len(Orders()) {
		t.Fatalf("rows = %d, want %d", len(rows), len(Orders()))
	}
	if rows[0].Product != "mechanical keyboard" {
		t.Fatalf("first product = %q", rows[0].Product)
	}
}

func TestSeedWarehouseRequiresDataset(t *testing.T) {
	seeder := &Seeder{Store: &fakeStore{}}
	if err := seeder.SeedWarehouse(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestSeedRelationalRunsSchemaAndInserts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DROP TABLE IF EXISTS orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP TABLE IF EXISTS customers`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE customers`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	for range Customers() {
		mock.ExpectExec(`INSERT INTO customers`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	for range Orders() {
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	if err := SeedRelational(context.Background(), db); err != nil {
		t.Fatalf("SeedRelational() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
