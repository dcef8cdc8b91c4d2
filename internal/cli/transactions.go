package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/possum/internal/pos"
)

// transactionView is the JSON projection of a transaction plus its
// sync status.
type transactionView struct {
	pos.Transaction
	SyncStatus pos.SyncStatus `json:"sync_status"`
}

// NewTransactionsCommand creates the transactions command.
func NewTransactionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recorded transactions with sync status",
		Long: `List all locally recorded transactions, newest first.

Each transaction shows its delivery status: synced (acknowledged by the
remote), pending (queued for the next sync cycle) or error (exhausted
its retry budget in the latest cycle; still queued).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			txs, err := a.ListTransactions(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list transactions", err)
			}

			statuses := make(map[string]pos.SyncStatus, len(txs))
			views := make([]transactionView, 0, len(txs))
			for _, t := range txs {
				status, err := a.SyncStatusOf(ctx, t.ID)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read sync status", err)
				}
				statuses[t.ID] = status
				views = append(views, transactionView{Transaction: t, SyncStatus: status})
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: os.Stdout, Verbose: rootOpts.Verbose}
			return out.SuccessText(renderTransactions(txs, statuses), views)
		},
	}
	return cmd
}
