package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/core"
)

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Replace all compatibility data with a CSV upload",
		Long: `Validate a CSV with "Product ID" and "Compatible Product IDs" columns and,
if every row is valid, replace the stored compatibility data with it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	file, err := os.Open(path)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, "failed to open "+path, err)
	}
	defer file.Close()

	ctx := cmd.Context()
	a, err := openApp(ctx, opts, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := a.Engine.Upload(ctx, file)
	f.VerboseLog("Upload %s finished with status %s", result.ID, result.Status)
	if err != nil && result.Status != core.StatusSuccess {
		return f.fail(ExitCommandError, ErrCodeRead, "failed to read "+path, err)
	}

	if result.Status == core.StatusError {
		if f.Format == "json" {
			_ = f.Error(ErrCodeValidation, "upload rejected", result)
		} else {
			renderRejected(f.Writer, result.Errors)
		}
		return NewExitError(ExitFailure, "upload rejected")
	}

	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStorage, "records applied but not saved", err)
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Imported %d records\n", result.Records)
	})
}

func renderRejected(w io.Writer, messages []string) {
	noun := "errors"
	if len(messages) == 1 {
		noun = "error"
	}
	fmt.Fprintf(w, "✗ Upload rejected (%d %s)\n", len(messages), noun)
	for _, m := range messages {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

// errUsage is returned for flag combinations cobra cannot check.
var errUsage = errors.New("invalid usage")
