package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/compat/internal/app"
	"github.com/agenthands/compat/internal/config"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return config.DefaultPath
}

// openApp loads configuration the way the server does and opens the engine on
// the same storage. Callers must Close the returned App.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*app.App, error) {
	path := resolveConfigPath(opts.ConfigPath)
	cfg, loaded, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if loaded {
		f.VerboseLog("Using config %s (backend %s)", path, cfg.Storage.Backend)
	} else {
		f.VerboseLog("No config at %s, using defaults (backend %s)", path, cfg.Storage.Backend)
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	a, err := app.New(ctx, cfg, nil, app.NewLogger(cmd.ErrOrStderr(), level))
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	return a, nil
}
