package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the local product catalog",
		Long: `List the products in the local store.

The catalog is the last snapshot pulled from the remote store; it is
readable while offline. Run 'possum sync' to refresh it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			products, err := a.ListProducts(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list products", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: os.Stdout, Verbose: rootOpts.Verbose}
			return out.SuccessText(renderProducts(products), products)
		},
	}
	return cmd
}
