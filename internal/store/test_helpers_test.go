package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/possum/internal/pos"
)

// createTestStore creates a store backed by a temp-dir database.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct creates a product with minimal required fields.
func createTestProduct(id, price string, stock int) pos.Product {
	return pos.Product{
		ID:       id,
		Name:     "product " + id,
		Price:    decimal.RequireFromString(price),
		Category: "coffee",
		Stock:    stock,
	}
}

// createTestTransaction creates a single-line transaction.
func createTestTransaction(id string, date time.Time) pos.Transaction {
	return pos.Transaction{
		ID:   id,
		Date: date,
		Items: []pos.LineItem{{
			ProductID: "p1",
			Name:      "product p1",
			Price:     decimal.RequireFromString("10.00"),
			Category:  "coffee",
			Stock:     5,
			Quantity:  2,
		}},
		Subtotal: decimal.RequireFromString("20.00"),
		Tax:      decimal.RequireFromString("2.00"),
		Total:    decimal.RequireFromString("22.00"),
		Status:   pos.TxCompleted,
	}
}
