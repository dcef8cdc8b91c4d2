package store

import (
	"context"
	"fmt"

	"github.com/roach88/possum/internal/pos"
)

// PutProduct upserts a catalog product keyed by id.
// Overwriting an existing product is not an error: the remote catalog is
// authoritative and the latest pull always wins.
func (s *Store) PutProduct(ctx context.Context, p pos.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, category, stock, image)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			category = excluded.category,
			stock = excluded.stock,
			image = excluded.image
	`,
		p.ID,
		p.Name,
		p.Price.String(),
		p.Category,
		p.Stock,
		p.Image,
	)
	if err != nil {
		return storageErr("put product", err)
	}
	return nil
}

// PutProducts bulk-upserts catalog products inside a single database
// transaction. If the transaction fails to commit, per-item upserts
// already applied may or may not persist; that is tolerated because the
// catalog is idempotently re-synced on the next pull.
func (s *Store) PutProducts(ctx context.Context, products []pos.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("put products: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, price, category, stock, image)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			category = excluded.category,
			stock = excluded.stock,
			image = excluded.image
	`)
	if err != nil {
		return storageErr("put products: prepare", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Price.String(), p.Category, p.Stock, p.Image); err != nil {
			return storageErr(fmt.Sprintf("put products: upsert %s", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("put products: commit", err)
	}
	return nil
}

// PutTransaction upserts a transaction record keyed by id.
// Writing the same transaction twice is a no-op overwrite, so replays
// after an indeterminate failure are safe.
func (s *Store) PutTransaction(ctx context.Context, t pos.Transaction) error {
	itemsJSON, err := marshalItems(t.Items)
	if err != nil {
		return storageErr("put transaction", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, items, subtotal, tax, total, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			items = excluded.items,
			subtotal = excluded.subtotal,
			tax = excluded.tax,
			total = excluded.total,
			status = excluded.status
	`,
		t.ID,
		encodeTime(t.Date),
		itemsJSON,
		t.Subtotal.String(),
		t.Tax.String(),
		t.Total.String(),
		string(t.Status),
	)
	if err != nil {
		return storageErr("put transaction", err)
	}
	return nil
}

// PutSyncState overwrites the singleton sync-state record.
func (s *Store) PutSyncState(ctx context.Context, state pos.SyncState) error {
	pendingJSON, err := marshalIDs(state.Pending)
	if err != nil {
		return storageErr("put sync state", err)
	}
	failedJSON, err := marshalIDs(state.Failed)
	if err != nil {
		return storageErr("put sync state", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_sync, online, pending, failed)
		VALUES ('state', ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sync = excluded.last_sync,
			online = excluded.online,
			pending = excluded.pending,
			failed = excluded.failed
	`,
		encodeTime(state.LastSync),
		boolToInt(state.Online),
		pendingJSON,
		failedJSON,
	)
	if err != nil {
		return storageErr("put sync state", err)
	}
	return nil
}

// AddPending queues a transaction id for remote delivery.
// Adding an id that is already queued is a no-op.
func (s *Store) AddPending(ctx context.Context, id string) error {
	state, err := s.SyncState(ctx)
	if err != nil {
		return err
	}
	state.AddPending(id)
	return s.PutSyncState(ctx, state)
}

// RemovePending removes a transaction id from the pending and failed
// sets, recording that the remote store acknowledged it.
func (s *Store) RemovePending(ctx context.Context, id string) error {
	state, err := s.SyncState(ctx)
	if err != nil {
		return err
	}
	state.RemovePending(id)
	return s.PutSyncState(ctx, state)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
