package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	csvimport "github.com/textileplan/backend/internal/infrastructure/import"
)

type importOptions struct {
	dryRun         bool
	batchSize      int
	skipDuplicates bool
	failFast       bool
	json           bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <entity> <file.csv>",
		Short: "Import an entity list from a CSV file",
		Long: `Import an entity list from a CSV file. Supported entities: providers.

Rows that fail validation are reported as "Line N: message", where the
header is line 1. The command exits with status 1 when any row failed.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, args[0], args[1], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Validate and report without saving anything")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Rows saved per transaction (default import.batch_size)")
	f.BoolVar(&opts.skipDuplicates, "skip-duplicates", true, "Skip rows whose name already exists")
	f.BoolVar(&opts.failFast, "fail-fast", false, "Stop at the first failing row")
	f.BoolVar(&opts.json, "json", false, "Print the result as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, entity, path string, opts importOptions) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return usageErrorf("file must have .csv extension: %s", path)
	}
	if opts.batchSize < 0 {
		return usageErrorf("--batch-size must be positive")
	}
	file, err := os.Open(path)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("cannot open %s: %w", path, err))
	}
	defer file.Close()

	rt, ctx, err := a.runtime(cmd)
	if err != nil {
		return err
	}

	runOpts := csvimport.Options{
		BatchSize:       rt.Config.Import.BatchSize,
		MaxErrors:       rt.Config.Import.MaxErrors,
		MaxFileSize:     rt.Config.Import.MaxFileSize,
		ValidateOnly:    opts.dryRun,
		SkipDuplicates:  opts.skipDuplicates,
		ContinueOnError: !opts.failFast,
	}
	if opts.batchSize > 0 {
		runOpts.BatchSize = opts.batchSize
	}

	res, err := rt.Importer.Import(ctx, filepath.Base(path), file, runOpts)
	out := cmd.OutOrStdout()

	var abort *csvimport.AbortError
	switch {
	case errors.As(err, &abort):
		printImportResult(out, abort.Result, opts.json)
		fmt.Fprintln(cmd.ErrOrStderr(), abort.Error())
		return reported(exitFailure)
	case err != nil && res == nil:
		// file-level problems are the user's input, not a crash
		if csvimport.FileErrorCode(err) != csvimport.ErrCodeImportUnknown {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return reported(exitFailure)
		}
		return err
	case err != nil:
		return err
	}

	printImportResult(out, res, opts.json)
	if res.ErrorCount > 0 {
		return reported(exitFailure)
	}
	return nil
}

func printImportResult(w io.Writer, res *csvimport.Result, asJSON bool) {
	if asJSON {
		writeJSON(w, res)
		return
	}
	mode := "Import"
	if res.ValidateOnly {
		mode = "Validation (dry run)"
	}
	fmt.Fprintf(w, "%s finished: %d imported, %d skipped, %d errors\n",
		mode, res.ImportedCount, res.SkippedCount, res.ErrorCount)
	for _, msg := range res.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	if res.ErrorCount > len(res.Errors) {
		fmt.Fprintf(w, "  ... and %d more\n", res.ErrorCount-len(res.Errors))
	}
}
