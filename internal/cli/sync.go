package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle",
		Long: `Pull the authoritative catalog and push pending transactions.

A pull failure leaves the last good catalog snapshot in place and does
not stop the push phase. Transactions that exhaust their retry budget
stay queued for the next cycle.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := a.RequestSync(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sync failed", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: os.Stdout, Verbose: rootOpts.Verbose}
			return out.SuccessText(renderReport(report), report)
		},
	}
	return cmd
}
