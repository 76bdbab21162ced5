package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/scanlens/internal/cli/output"
	"github.com/leapstack-labs/scanlens/internal/config"
	"github.com/spf13/cobra"
)

// Runtime holds the shared dependencies commands pull from the
// command context: resolved configuration, logger, and renderer.
type Runtime struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

type runtimeKey struct{}

// WithRuntime stores the runtime in ctx for later retrieval by
// subcommands.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// runtimeFrom retrieves the runtime installed by the root command. A
// default is built when none is present, which keeps subcommands
// usable in isolation (tests construct them directly).
func runtimeFrom(cmd *cobra.Command) *Runtime {
	if rt, ok := cmd.Context().Value(runtimeKey{}).(*Runtime); ok {
		return rt
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		cfg = &config.Config{}
	}
	return &Runtime{
		Cfg:      cfg,
		Logger:   slog.New(slog.DiscardHandler),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeText),
	}
}

// ensureStateDir creates the parent directory of the state database
// file so opening it does not fail on a missing path.
func ensureStateDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}
