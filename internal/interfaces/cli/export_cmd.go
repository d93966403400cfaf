package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/textileplan/backend/internal/application/csvio"
	"github.com/textileplan/backend/internal/domain/shared"
	csvexport "github.com/textileplan/backend/internal/infrastructure/export"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type exportOptions struct {
	output       string
	dateFrom     string
	dateTo       string
	nameContains string
	hasEmail     bool
	template     bool
	format       string
	locale       string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Export an entity list, or its import template, as CSV or XLSX",
		Long: `Export an entity list as CSV or XLSX. Supported entities: providers.

--output takes a file, a directory, "-" for stdout or an s3://bucket/key
location. Without --output the file is written to export.directory with
a timestamped name.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, a, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output file, directory, - or s3://bucket/key")
	f.StringVar(&opts.dateFrom, "date-from", "", "Only rows created on or after this date (YYYY-MM-DD)")
	f.StringVar(&opts.dateTo, "date-to", "", "Only rows created on or before this date (YYYY-MM-DD)")
	f.StringVar(&opts.nameContains, "name-contains", "", "Only rows whose name contains this text")
	f.BoolVar(&opts.hasEmail, "has-email", false, "Only rows with an email address")
	f.BoolVar(&opts.template, "template", false, "Write the empty import template instead of data")
	f.StringVar(&opts.format, "format", "", "csv or xlsx (default from the output extension, else csv)")
	f.StringVar(&opts.locale, "locale", "", "Header language: es or en (default export.locale)")
	return cmd
}

func runExport(cmd *cobra.Command, a *app, entity string, opts exportOptions) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	filter, err := opts.filter()
	if err != nil {
		return err
	}
	format, err := csvexport.ParseFormat(opts.formatName())
	if err != nil {
		return withCode(exitUsage, err)
	}

	rt, ctx, err := a.runtime(cmd)
	if err != nil {
		return err
	}
	locale := opts.locale
	if locale == "" {
		locale = rt.Config.Export.Locale
	}

	file, err := rt.Exporter.Export(ctx, csvio.ExportRequest{
		Filter:   filter,
		Template: opts.template,
		Format:   format,
		Locale:   locale,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.output == "-":
		_, err := out.Write(file.Data)
		return err

	case storage.IsObjectURL(opts.output):
		if rt.Storage == nil {
			return withCode(exitUsage, errNoStorage)
		}
		loc, err := storage.ParseObjectURL(opts.output)
		if err != nil {
			return withCode(exitUsage, err)
		}
		link, err := rt.Exporter.Upload(ctx, file, loc, rt.Config.Storage.PresignExpiration)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", describeExport(file, opts.template))
		fmt.Fprintf(out, "Download: %s\n", link)
		return nil

	default:
		path := resolveOutputPath(opts.output, rt.Config.Export.Directory, file.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		logger.L(ctx).Debug("Export written", zap.String("path", path))
		fmt.Fprintf(out, "%s to %s\n", describeExport(file, opts.template), path)
		return nil
	}
}

func describeExport(file *csvio.ExportFile, template bool) string {
	if template {
		return "Exported import template"
	}
	return fmt.Sprintf("Exported %d providers", file.Rows)
}

// resolveOutputPath places the default file name in dir when output is
// empty or names an existing directory
func resolveOutputPath(output, dir, name string) string {
	if output == "" {
		return filepath.Join(dir, name)
	}
	if strings.HasSuffix(output, string(os.PathSeparator)) {
		return filepath.Join(output, name)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}

func (o exportOptions) formatName() string {
	if o.format != "" {
		return o.format
	}
	if strings.EqualFold(filepath.Ext(o.output), ".xlsx") {
		return string(csvexport.FormatXLSX)
	}
	return string(csvexport.FormatCSV)
}

// filter turns the flags into a repository filter. --date-to includes the
// whole day.
func (o exportOptions) filter() (shared.Filter, error) {
	filter := shared.DefaultFilter()
	filter.NameContains = strings.TrimSpace(o.nameContains)
	if o.hasEmail {
		filter.NonEmpty = append(filter.NonEmpty, "email")
	}
	if o.dateFrom != "" {
		from, err := time.ParseInLocation(dateLayout, o.dateFrom, time.UTC)
		if err != nil {
			return filter, usageErrorf("invalid --date-from %q, expected YYYY-MM-DD", o.dateFrom)
		}
		filter.DateFrom = &from
	}
	if o.dateTo != "" {
		to, err := time.ParseInLocation(dateLayout, o.dateTo, time.UTC)
		if err != nil {
			return filter, usageErrorf("invalid --date-to %q, expected YYYY-MM-DD", o.dateTo)
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return filter, usageErrorf("--date-from must not be after --date-to")
	}
	return filter, nil
}

// checkEntity accepts the entities the CSV commands support
func checkEntity(entity string) error {
	switch strings.ToLower(entity) {
	case "providers", "proveedores":
		return nil
	default:
		return usageErrorf("unsupported entity %q (supported: providers)", entity)
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return withCode(exitUsage, err)
		}
		return nil
	}
}
