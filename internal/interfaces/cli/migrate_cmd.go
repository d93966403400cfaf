package cli

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

// defaultMigrationsDir is where create writes new files, next to the
// embedded ones
const defaultMigrationsDir = "internal/infrastructure/migration/sql"

func newMigrateCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Manage the database schema.

PostgreSQL databases are migrated with the versioned SQL files shipped in
the binary, or the files in --path. SQLite databases only support 'up',
which creates the tables from the models.`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default: embedded migrations)")

	withMigrator := func(fn func(cmd *cobra.Command, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			if rt.Config.Database.Driver != config.DriverPostgres {
				return usageErrorf("%s requires a postgres database", cmd.CommandPath())
			}

			db, err := sql.Open("postgres", rt.Config.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to ping database: %w", err)
			}

			m, err := migration.New(db, migration.Sources(path), logger.L(ctx).Zap())
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					logger.L(ctx).Warn("Failed to close migrator", zap.Error(err))
				}
			}()
			return fn(cmd, m, args)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, ctx, err := a.runtime(cmd)
			if err != nil {
				return err
			}
			if rt.Config.Database.Driver == config.DriverSQLite {
				if err := rt.DB.AutoMigrate(); err != nil {
					return err
				}
				logger.L(ctx).Info("SQLite schema migrated", zap.String("path", rt.Config.Database.Path))
				fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
				return nil
			}
			return withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})(cmd, args)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  exactArgs(0),
		RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}

	steps := &cobra.Command{
		Use:   "steps <n>",
		Short: "Apply n migrations, or roll back when n is negative",
		Args:  exactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return usageErrorf("invalid step count %q", args[0])
			}
			if err := m.Steps(n); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		Args:  exactArgs(0),
		RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
			return printVersion(cmd, m)
		}),
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the migration version without running migrations",
		Args:  exactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return usageErrorf("invalid version %q", args[0])
			}
			if err := m.Force(v); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}

	create := &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an empty up/down migration pair",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return withCode(exitUsage, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := path
			if dir == "" {
				dir = defaultMigrationsDir
			}
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return withCode(exitUsage, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created migration %06d\n", mf.Version)
			fmt.Fprintf(out, "  %s\n  %s\n", mf.UpPath, mf.DownPath)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the available migrations",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrations, err := migration.ListMigrations(migration.Sources(path))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(migrations) == 0 {
				fmt.Fprintln(out, "No migrations found")
				return nil
			}
			for _, m := range migrations {
				line := m.String()
				if !m.HasDown {
					line += " (no down)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.AddCommand(up, down, steps, version, force, create, list)
	return cmd
}

func printVersion(cmd *cobra.Command, m *migration.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case v == 0:
		fmt.Fprintln(out, "No migrations applied")
	case dirty:
		fmt.Fprintf(out, "Version %d (dirty)\n", v)
	default:
		fmt.Fprintf(out, "Version %d\n", v)
	}
	return nil
}
