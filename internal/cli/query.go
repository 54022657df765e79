package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/core/reconcile"
)

func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "query <product-id>",
		Short:         "List products compatible with a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(cmd.Context(), rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			id := args[0]
			refs := a.Engine.CompatibleProductsFor(id)
			return f.Success(map[string]any{"productId": id, "products": refs}, func(w io.Writer) {
				renderResolved(w, id, refs)
			})
		},
	}
}

func renderResolved(w io.Writer, productID string, refs []model.ResolvedReference) {
	if len(refs) == 0 {
		fmt.Fprintf(w, "No compatible products for %s\n", productID)
		return
	}
	for _, r := range refs {
		switch {
		case !r.Exists:
			fmt.Fprintf(w, "%s (missing)\n", r.ID)
		case r.Product.Title != "":
			fmt.Fprintf(w, "%s (found: %s)\n", r.ID, r.Product.Title)
		default:
			fmt.Fprintf(w, "%s (found)\n", r.ID)
		}
	}
}

func NewMissingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "missing",
		Short:         "List referenced product ids that are not in the catalog",
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

			missing := a.Engine.MissingProducts()
			return f.Success(missing, func(w io.Writer) {
				if len(missing) == 0 {
					fmt.Fprintln(w, "✓ No missing products")
					return
				}
				for _, id := range missing {
					fmt.Fprintln(w, id)
				}
			})
		},
	}
}

func NewOverviewCommand(rootOpts *RootOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:           "overview",
		Short:         "Summarise every record against the catalog",
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

			rows := a.Engine.Overview(query)
			return f.Success(rows, func(w io.Writer) {
				renderOverview(w, rows)
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only records whose product id contains this text (case-insensitive)")
	return cmd
}

func renderOverview(w io.Writer, rows []reconcile.RecordSummary) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No compatibility records")
		return
	}
	for _, r := range rows {
		name := r.ProductID
		if r.Title != "" {
			name = fmt.Sprintf("%s (%s)", r.ProductID, r.Title)
		}
		fmt.Fprintf(w, "%s: %d declared, %d found, %d missing", name, r.Declared, r.Found, r.Missing)
		if len(r.MissingIDs) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(r.MissingIDs, ", "))
		}
		fmt.Fprintln(w)
	}
}

func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show compatibility analytics",
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

			stats := a.Engine.Stats()
			return f.Success(stats, func(w io.Writer) {
				fmt.Fprintf(w, "Records: %d\n", stats.TotalRecords)
				fmt.Fprintf(w, "Relationships: %d\n", stats.TotalRelationships)
				fmt.Fprintf(w, "Average per record: %.1f\n", stats.AveragePerRecord)
				fmt.Fprintf(w, "Catalog products: %d\n", stats.CatalogProducts)
				fmt.Fprintf(w, "Missing products: %d\n", stats.MissingProducts)
				fmt.Fprintf(w, "Completeness: %d%%\n", stats.Completeness)
			})
		},
	}
}
