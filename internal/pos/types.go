package pos

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Products are authoritative on the remote
// side: the local copy is created and updated only by catalog pulls,
// never by sale completion (stock bookkeeping happens remotely).
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
	Image    string          `json:"image,omitempty"`
}

// CartItem pairs a product with a requested quantity. Cart items are
// transient: they live only in an in-progress order and are never
// persisted standalone.
type CartItem struct {
	Product  Product
	Quantity int
}

// LineItem is a value snapshot of a product at sale time, plus the sold
// quantity. Copying the product fields (rather than referencing the live
// catalog row) preserves the historical price and name even if the
// catalog changes after the sale.
type LineItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

// TxStatus is the lifecycle status of a transaction record.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Transaction is a completed sale. Immutable once created except for
// Status. The local copy is the durable record; a copy is pushed to the
// remote store by the sync controller.
type Transaction struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Status   TxStatus        `json:"status"`
}

// SyncStatus is the delivery status of a transaction as projected for
// the UI: has the remote store acknowledged it yet.
type SyncStatus string

const (
	// StatusSynced means the remote store has acknowledged the transaction.
	StatusSynced SyncStatus = "synced"

	// StatusPending means the transaction is queued for delivery.
	StatusPending SyncStatus = "pending"

	// StatusError means the transaction exhausted its retry budget in the
	// most recent sync cycle. It remains queued and will be retried on the
	// next cycle; the distinct status exists for observability.
	StatusError SyncStatus = "error"
)

// SyncState is the singleton sync-metadata record.
//
// Invariants:
//   - Pending is a subset of the locally stored transaction IDs.
//   - Failed is a subset of Pending.
//   - Exactly one SyncState exists for the lifetime of a local store.
//
// Mutated exclusively by the sync controller; read by both the
// controller and the host application.
type SyncState struct {
	// LastSync is the completion time of the last successful sync activity.
	// Zero means no sync has completed yet.
	LastSync time.Time

	// Online reflects the most recent connectivity notification.
	Online bool

	// Pending holds IDs of transactions awaiting remote delivery.
	Pending []string

	// Failed holds IDs that exhausted their retry budget in the most
	// recent cycle. Always a subset of Pending.
	Failed []string
}

// HasPending reports whether id is queued for delivery.
func (s *SyncState) HasPending(id string) bool {
	return contains(s.Pending, id)
}

// HasFailed reports whether id exhausted retries in the latest cycle.
func (s *SyncState) HasFailed(id string) bool {
	return contains(s.Failed, id)
}

// AddPending queues id for delivery. Adding an already-queued id is a
// no-op, keeping the set semantics of the pending list.
func (s *SyncState) AddPending(id string) {
	if !contains(s.Pending, id) {
		s.Pending = append(s.Pending, id)
	}
}

// RemovePending removes id from both the pending and failed sets.
func (s *SyncState) RemovePending(id string) {
	s.Pending = remove(s.Pending, id)
	s.Failed = remove(s.Failed, id)
}

// MarkFailed records that id exhausted its retry budget. The id stays
// pending; Failed is an annotation, not a separate queue.
func (s *SyncState) MarkFailed(id string) {
	if contains(s.Pending, id) && !contains(s.Failed, id) {
		s.Failed = append(s.Failed, id)
	}
}

// ClearFailed removes id from the failed set only.
func (s *SyncState) ClearFailed(id string) {
	s.Failed = remove(s.Failed, id)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
