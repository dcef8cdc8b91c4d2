package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewNetCommand creates the net command group: the entry point through
// which the host forwards connectivity-change notifications into the
// sync controller.
func NewNetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "net",
		Short: "Record connectivity changes",
		Long: `Record a connectivity change.

'possum net online' persists the online flag and triggers a sync cycle
if the client was previously offline. 'possum net offline' only records
the flag; it never interrupts a running cycle.`,
	}
	cmd.AddCommand(newNetSubcommand(rootOpts, "online", true))
	cmd.AddCommand(newNetSubcommand(rootOpts, "offline", false))
	return cmd
}

func newNetSubcommand(rootOpts *RootOptions, use string, online bool) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         "Mark the client as " + use,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := a.SetOnline(cmd.Context(), online)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to update connectivity", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: os.Stdout, Verbose: rootOpts.Verbose}
			if report != nil {
				text := "now " + use + "\n" + renderReport(report)
				return out.SuccessText(text, report)
			}
			return out.SuccessText("now "+use+"\n", map[string]bool{"online": online})
		},
	}
}
