package pos

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the sales tax applied when no rate is configured.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

// IDGenerator produces unique transaction IDs.
// Implemented by UUIDGenerator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (v4) UUID transaction IDs.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUID string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// FixedIDGenerator returns predetermined IDs for deterministic tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed, to fail fast on test
// misconfiguration.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Totals computes the money figures for a set of cart items.
// Subtotal is the exact sum of price*quantity; tax is subtotal*taxRate
// rounded to 2 decimal places; total is subtotal+tax.
func Totals(items []CartItem, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		line := it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// ValidateCart checks the cart preconditions for a sale: at least one
// item, every quantity >= 1 and no quantity above the product's last
// known stock.
func ValidateCart(items []CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("empty cart")
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("product %s: quantity %d must be at least 1", it.Product.ID, it.Quantity)
		}
		if it.Quantity > it.Product.Stock {
			return fmt.Errorf("product %s: quantity %d exceeds stock %d", it.Product.ID, it.Quantity, it.Product.Stock)
		}
	}
	return nil
}

// NewTransaction builds a completed transaction from cart items.
// Product fields are copied into line items by value; the transaction is
// a self-contained snapshot of the sale.
func NewTransaction(items []CartItem, taxRate decimal.Decimal, now time.Time, gen IDGenerator) Transaction {
	lines := make([]LineItem, len(items))
	for i, it := range items {
		lines[i] = LineItem{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Category:  it.Product.Category,
			Stock:     it.Product.Stock,
			Quantity:  it.Quantity,
		}
	}
	subtotal, tax, total := Totals(items, taxRate)
	return Transaction{
		ID:       gen.Generate(),
		Date:     now.UTC(),
		Items:    lines,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
		Status:   TxCompleted,
	}
}
