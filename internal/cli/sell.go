package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/possum/internal/gateway"
	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/syncer"
)

// SellOptions holds flags for the sell command.
type SellOptions struct {
	*RootOptions
	Items []string // "productID=quantity" pairs
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sell --item <productID>=<qty> [--item ...]",
		Short: "Record a sale",
		Long: `Record a completed sale against the local catalog.

The transaction is always committed to the local store first. While
online it is also delivered to the remote store immediately; while
offline (or if delivery fails) it is queued and picked up by the next
sync cycle. A queued sale is a success, not an error.

Example:
  possum sell --item espresso=2 --item croissant=1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSell(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, "product and quantity as id=qty (repeatable)")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func runSell(opts *SellOptions, cmd *cobra.Command) error {
	a, cleanup, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	products, err := a.ListProducts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read catalog", err)
	}
	cart, err := buildCart(opts.Items, products)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cart", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: os.Stdout, Verbose: opts.Verbose}

	tx, err := a.RecordSale(ctx, cart)
	switch {
	case err == nil:
		return out.SuccessText(renderReceipt(tx, pos.StatusSynced), saleView(tx, pos.StatusSynced, "synced"))
	case errors.Is(err, syncer.ErrSavedOffline):
		// Expected outcome, not a failure: durably saved, queued.
		text := renderReceipt(tx, pos.StatusPending) + "saved offline, will sync when online\n"
		return out.SuccessText(text, saleView(tx, pos.StatusPending, "saved offline"))
	case gateway.IsRemote(err):
		text := renderReceipt(tx, pos.StatusPending) + "saved locally, delivery pending retry\n"
		return out.SuccessText(text, saleView(tx, pos.StatusPending, "delivery pending"))
	default:
		return WrapExitError(ExitFailure, "sale rejected", err)
	}
}

type saleResult struct {
	Transaction pos.Transaction `json:"transaction"`
	SyncStatus  pos.SyncStatus  `json:"sync_status"`
	Note        string          `json:"note"`
}

func saleView(tx pos.Transaction, status pos.SyncStatus, note string) saleResult {
	return saleResult{Transaction: tx, SyncStatus: status, Note: note}
}

// buildCart resolves id=qty pairs against the catalog snapshot.
func buildCart(specs []string, products []pos.Product) ([]pos.CartItem, error) {
	byID := make(map[string]pos.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := make([]pos.CartItem, 0, len(specs))
	for _, spec := range specs {
		id, qtyText, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("item %q: want id=qty", spec)
		}
		qty, err := strconv.Atoi(qtyText)
		if err != nil {
			return nil, fmt.Errorf("item %q: quantity: %w", spec, err)
		}
		p, found := byID[id]
		if !found {
			return nil, fmt.Errorf("item %q: product not in local catalog", spec)
		}
		cart = append(cart, pos.CartItem{Product: p, Quantity: qty})
	}
	return cart, nil
}
