package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/core/model"
)

func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display settings",
	}
	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the current settings",
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

			s := a.Engine.Settings()
			return f.Success(s, func(w io.Writer) { renderSettings(w, s) })
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		showMissing  bool
		enableWidget bool
		title        string
		position     string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual settings",
		Long: `Change only the settings named by flags; the rest keep their current values.
Known widget positions are above-description, below-description, product-tabs
and custom, but any value is stored.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			var patch model.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("show-missing") {
				patch.ShowMissingProducts = &showMissing
			}
			if flags.Changed("enable-widget") {
				patch.EnableWidget = &enableWidget
			}
			if flags.Changed("title") {
				patch.WidgetTitle = &title
			}
			if flags.Changed("position") {
				patch.WidgetPosition = &position
			}
			if patch.IsEmpty() {
				return f.fail(ExitCommandError, ErrCodeInvalidData, "no settings given", errUsage)
			}

			a, err := openApp(cmd.Context(), rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			s, err := a.Engine.UpdateSettings(cmd.Context(), patch)
			if err != nil {
				return f.fail(ExitCommandError, ErrCodeStorage, "settings applied but not saved", err)
			}
			return f.Success(s, func(w io.Writer) { renderSettings(w, s) })
		},
	}

	cmd.Flags().BoolVar(&showMissing, "show-missing", false, "show compatible products that are not in the catalog")
	cmd.Flags().BoolVar(&enableWidget, "enable-widget", true, "render the storefront widget")
	cmd.Flags().StringVar(&title, "title", "", "widget heading")
	cmd.Flags().StringVar(&position, "position", "", "widget position on the product page")
	return cmd
}

func renderSettings(w io.Writer, s model.Settings) {
	fmt.Fprintf(w, "Show missing products: %t\n", s.ShowMissingProducts)
	fmt.Fprintf(w, "Widget enabled: %t\n", s.EnableWidget)
	fmt.Fprintf(w, "Widget title: %s\n", s.WidgetTitle)
	fmt.Fprintf(w, "Widget position: %s\n", s.WidgetPosition)
}
