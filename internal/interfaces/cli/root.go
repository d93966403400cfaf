// Package cli implements the planctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/textileplan/backend/internal/application/costing"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// app is the state shared by the commands of one invocation
type app struct {
	bootstrap Bootstrap
	rt        *Runtime
	closeFn   func()
	now       func() time.Time
}

// runtime bootstraps the runtime on first use
func (a *app) runtime(cmd *cobra.Command) (*Runtime, context.Context, error) {
	if a.rt == nil {
		rt, closeFn, err := a.bootstrap(cmd.Context())
		if err != nil {
			return nil, nil, err
		}
		a.rt, a.closeFn = rt, closeFn
	}
	ctx := logger.WithContext(cmd.Context(), a.rt.Logger)
	ctx = logger.WithRun(ctx, cmd.CommandPath(), uuid.NewString())
	return a.rt, ctx, nil
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
}

// CLI is the planctl command tree bound to one bootstrap
type CLI struct {
	app  *app
	root *cobra.Command
}

// New builds the planctl command tree
func New(bootstrap Bootstrap) *CLI {
	a := &app{bootstrap: bootstrap, now: time.Now}

	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Textile production planning: costing, CSV import and export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})
	root.AddCommand(
		newExportCmd(a),
		newImportCmd(a),
		newRecalculateCmd(a),
		newMigrateCmd(a),
	)
	return &CLI{app: a, root: root}
}

// Root returns the root command
func (c *CLI) Root() *cobra.Command {
	return c.root
}

// Execute runs the command tree and returns the process exit code.
// Failures that were not reported by the command itself are logged with
// their cause and printed as a failure envelope.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	defer c.app.close()

	c.root.SetArgs(args)
	cmd, err := c.root.ExecuteContextC(ctx)
	if err == nil {
		return exitOK
	}

	code := ExitCode(err)
	if cmd != nil && !cmd.Runnable() {
		// unknown subcommand
		code = exitUsage
	}
	if isSilent(err) {
		return code
	}
	if code == exitUsage {
		fmt.Fprintf(c.root.ErrOrStderr(), "Error: %v\n", err)
		return code
	}

	log := zap.NewNop()
	if c.app.rt != nil {
		log = c.app.rt.Logger
	}
	log.Error("Command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
	writeJSON(c.root.ErrOrStderr(), costing.FailureEnvelope("Error", err, c.app.now()))
	return code
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
