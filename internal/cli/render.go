package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/syncer"
)

// printer formats money and counts with locale-aware grouping.
var printer = message.NewPrinter(language.English)

const rule = "----------------------------------------"

// money renders a decimal amount with grouping, two fixed places.
func money(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprintf("%.2f", f)
}

// renderTime formats a timestamp for text output; zero means never.
func renderTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// renderProducts renders the catalog listing.
func renderProducts(products []pos.Product) string {
	var b strings.Builder
	if len(products) == 0 {
		b.WriteString("catalog is empty (run 'possum sync' to pull it)\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%-12s %-24s %-10s %8s %6s\n", "ID", "NAME", "CATEGORY", "PRICE", "STOCK")
	for _, p := range products {
		fmt.Fprintf(&b, "%-12s %-24s %-10s %8s %6d\n", p.ID, p.Name, p.Category, money(p.Price), p.Stock)
	}
	return b.String()
}

// renderTransactions renders the transaction listing newest-first with
// the per-transaction sync status column.
func renderTransactions(txs []pos.Transaction, statuses map[string]pos.SyncStatus) string {
	var b strings.Builder
	if len(txs) == 0 {
		b.WriteString("no transactions recorded\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%-38s %-21s %5s %10s %-8s\n", "ID", "DATE", "ITEMS", "TOTAL", "SYNC")
	for _, t := range txs {
		fmt.Fprintf(&b, "%-38s %-21s %5d %10s %-8s\n",
			t.ID, t.Date.UTC().Format("2006-01-02 15:04:05"), len(t.Items), money(t.Total), statuses[t.ID])
	}
	return b.String()
}

// renderReceipt renders one completed sale.
func renderReceipt(t pos.Transaction, status pos.SyncStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt %s\n", t.ID)
	fmt.Fprintf(&b, "Date: %s\n", renderTime(t.Date))
	b.WriteString(rule + "\n")
	for _, it := range t.Items {
		label := fmt.Sprintf("%d x %s", it.Quantity, it.Name)
		fmt.Fprintf(&b, "%-30s %9s\n", label, money(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))))
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-30s %9s\n", "Subtotal", money(t.Subtotal))
	fmt.Fprintf(&b, "%-30s %9s\n", "Tax", money(t.Tax))
	fmt.Fprintf(&b, "%-30s %9s\n", "Total", money(t.Total))
	fmt.Fprintf(&b, "Sync: %s\n", status)
	return b.String()
}

// renderReport renders a sync cycle summary.
func renderReport(r *syncer.Report) string {
	var b strings.Builder
	if r == nil {
		b.WriteString("sync already in progress, request dropped\n")
		return b.String()
	}
	if r.PullErr != nil {
		fmt.Fprintf(&b, "catalog pull failed: %v (keeping last snapshot)\n", r.PullErr)
	} else {
		fmt.Fprintf(&b, "catalog: %d products pulled\n", r.CatalogPulled)
	}
	fmt.Fprintf(&b, "pushed: %d  failed: %d  skipped: %d\n", len(r.Pushed), len(r.Failed), len(r.Skipped))
	for _, id := range r.Failed {
		fmt.Fprintf(&b, "  still pending: %s\n", id)
	}
	return b.String()
}

// renderStatus renders the connectivity/sync overview.
func renderStatus(online bool, lastSync time.Time, pending, failed int) string {
	var b strings.Builder
	mode := "offline"
	if online {
		mode = "online"
	}
	fmt.Fprintf(&b, "connectivity: %s\n", mode)
	fmt.Fprintf(&b, "last sync: %s\n", renderTime(lastSync))
	fmt.Fprintf(&b, "pending transactions: %d (%d exhausted retries)\n", pending, failed)
	return b.String()
}
