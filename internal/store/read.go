package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/possum/internal/pos"
)

// Products returns the full catalog snapshot in deterministic order
// (id ascending). Returns an empty slice, not nil, when the catalog is
// empty.
func (s *Store) Products(ctx context.Context) ([]pos.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, category, stock, image
		FROM products
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, storageErr("query products", err)
	}
	defer rows.Close()

	var products []pos.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate products", err)
	}

	if products == nil {
		products = []pos.Product{}
	}
	return products, nil
}

// Transaction returns the transaction with the given id.
// The boolean reports whether it exists; a missing transaction is not an
// error.
func (s *Store) Transaction(ctx context.Context, id string) (pos.Transaction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, items, subtotal, tax, total, status
		FROM transactions
		WHERE id = ?
	`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pos.Transaction{}, false, nil
	}
	if err != nil {
		return pos.Transaction{}, false, err
	}
	return t, true, nil
}

// Transactions returns all recorded transactions in deterministic order
// (date ascending, then id). Presentation ordering (newest-first) is the
// application's concern, not storage's.
func (s *Store) Transactions(ctx context.Context) ([]pos.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, items, subtotal, tax, total, status
		FROM transactions
		ORDER BY date ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, storageErr("query transactions", err)
	}
	defer rows.Close()

	var txs []pos.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transactions", err)
	}

	if txs == nil {
		txs = []pos.Transaction{}
	}
	return txs, nil
}

// SyncState returns the singleton sync-state record. If none exists yet,
// a default record (never synced, connectivity from WithDefaultOnline,
// empty sets) is durably written first, so subsequent reads are stable.
func (s *Store) SyncState(ctx context.Context) (pos.SyncState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_sync, online, pending, failed
		FROM sync_state
		WHERE id = 'state'
	`)

	var (
		lastSyncText string
		online       int
		pendingJSON  string
		failedJSON   string
	)
	err := row.Scan(&lastSyncText, &online, &pendingJSON, &failedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		state := pos.SyncState{Online: s.defaultOnline}
		if err := s.PutSyncState(ctx, state); err != nil {
			return pos.SyncState{}, err
		}
		return state, nil
	}
	if err != nil {
		return pos.SyncState{}, storageErr("query sync state", err)
	}

	lastSync, err := decodeTime(lastSyncText)
	if err != nil {
		return pos.SyncState{}, storageErr("scan sync state", err)
	}
	pending, err := unmarshalIDs(pendingJSON)
	if err != nil {
		return pos.SyncState{}, storageErr("scan sync state", err)
	}
	failed, err := unmarshalIDs(failedJSON)
	if err != nil {
		return pos.SyncState{}, storageErr("scan sync state", err)
	}

	return pos.SyncState{
		LastSync: lastSync,
		Online:   online != 0,
		Pending:  pending,
		Failed:   failed,
	}, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (pos.Product, error) {
	var (
		p         pos.Product
		priceText string
	)
	if err := row.Scan(&p.ID, &p.Name, &priceText, &p.Category, &p.Stock, &p.Image); err != nil {
		return pos.Product{}, storageErr("scan product", err)
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return pos.Product{}, storageErr("scan product", fmt.Errorf("price %q: %w", priceText, err))
	}
	p.Price = price
	return p, nil
}

func scanTransaction(row rowScanner) (pos.Transaction, error) {
	var (
		t            pos.Transaction
		dateText     string
		itemsJSON    string
		subtotalText string
		taxText      string
		totalText    string
		statusText   string
	)
	err := row.Scan(&t.ID, &dateText, &itemsJSON, &subtotalText, &taxText, &totalText, &statusText)
	if errors.Is(err, sql.ErrNoRows) {
		return pos.Transaction{}, err
	}
	if err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}

	if t.Date, err = decodeTime(dateText); err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}
	if t.Items, err = unmarshalItems(itemsJSON); err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}
	if t.Subtotal, err = parseAmount(subtotalText); err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}
	if t.Tax, err = parseAmount(taxText); err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}
	if t.Total, err = parseAmount(totalText); err != nil {
		return pos.Transaction{}, storageErr("scan transaction", err)
	}
	t.Status = pos.TxStatus(statusText)
	return t, nil
}

func parseAmount(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", text, err)
	}
	return d, nil
}
