package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/possum/internal/pos"
)

type statusView struct {
	Online   bool      `json:"online"`
	LastSync time.Time `json:"last_sync"`
	Pending  int       `json:"pending"`
	Failed   int       `json:"failed"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show connectivity and sync status",
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
			online, err := a.Online(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read sync state", err)
			}
			lastSync, err := a.LastSyncTime(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read sync state", err)
			}

			// Count pending/failed via the transaction projections.
			txs, err := a.ListTransactions(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list transactions", err)
			}
			pending, failed := 0, 0
			for _, t := range txs {
				status, err := a.SyncStatusOf(ctx, t.ID)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read sync status", err)
				}
				switch status {
				case pos.StatusPending:
					pending++
				case pos.StatusError:
					pending++
					failed++
				}
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: os.Stdout, Verbose: rootOpts.Verbose}
			return out.SuccessText(
				renderStatus(online, lastSync, pending, failed),
				statusView{Online: online, LastSync: lastSync, Pending: pending, Failed: failed},
			)
		},
	}
	return cmd
}
