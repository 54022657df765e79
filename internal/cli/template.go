package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/core/ingest"
)

func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "template",
		Short:         "Print a sample compatibility CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			tmpl := ingest.Template()
			return f.Success(string(tmpl), func(w io.Writer) {
				w.Write(tmpl)
			})
		},
	}
}
