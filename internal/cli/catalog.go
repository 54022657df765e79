package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/core/common"
	"github.com/agenthands/compat/internal/core/model"
)

func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the catalog snapshot",
	}
	cmd.AddCommand(newCatalogRefreshCommand(rootOpts))
	cmd.AddCommand(newCatalogImportCommand(rootOpts))
	return cmd
}

func newCatalogRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "refresh",
		Short:         "Fetch the catalog from Shopify",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(cmd.Context(), rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			n, err := a.Engine.RefreshCatalog(cmd.Context())
			if err != nil {
				return f.fail(ExitCommandError, ErrCodeCatalog, "catalog refresh failed", err)
			}
			return f.Success(map[string]int{"products": n}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Refreshed catalog: %d products\n", n)
			})
		},
	}
}

func newCatalogImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "import <products.json>",
		Short:         "Replace the catalog with a JSON array of products",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			data, err := os.ReadFile(args[0])
			if err != nil {
				return f.fail(ExitCommandError, ErrCodeNotFound, "failed to read "+args[0], err)
			}
			products, err := common.DecodeJSON[[]model.Product](data)
			if err != nil {
				return f.fail(ExitCommandError, ErrCodeInvalidData, "invalid catalog file", err)
			}

			a, err := openApp(cmd.Context(), rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			if err := a.Engine.ReplaceCatalog(cmd.Context(), products); err != nil {
				return f.fail(ExitCommandError, ErrCodeStorage, "catalog applied but not saved", err)
			}
			n := a.Engine.Catalog.Len()
			return f.Success(map[string]int{"products": n}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Imported %d catalog products\n", n)
			})
		},
	}
}
