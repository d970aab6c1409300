package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/onauc-backend/pkg/config"
	"github.com/angelmondragon/onauc-backend/pkg/db"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|check|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// File-only commands run before config so they work on a bare checkout.
	switch opts.cmd {
	case "create":
		exitOn(createMigration(opts))
		return
	case "validate":
		exitOn(migrate.ValidateDir(opts.dir))
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	exitOn(err)

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := run(ctx, logg, dbClient, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dbClient *db.Client, opts options) error {
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	switch opts.cmd {
	case "up", "down":
		if err := migrate.Run(ctx, sqlDB, opts.dir, opts.cmd); err != nil {
			return err
		}
	case "status":
		if err := migrate.Run(ctx, sqlDB, opts.dir, "status"); err != nil {
			return err
		}
	case "version":
		if opts.version == "" {
			return errors.New("missing -version for -cmd=version")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version); err != nil {
			return err
		}
	case "check":
		return reportSchema(ctx, logg, dbClient, true)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	return reportSchema(ctx, logg, dbClient, false)
}

// reportSchema logs which auction tables exist and how many listings sit in
// each status. With strict set, a missing table is an error.
func reportSchema(ctx context.Context, logg *logger.Logger, dbClient *db.Client, strict bool) error {
	report, err := migrate.InspectSchema(ctx, dbClient.DB())
	if err != nil {
		return err
	}

	fields := map[string]any{"complete": report.Complete()}
	for _, table := range report.Tables {
		if table.Present {
			fields["rows_"+table.Table] = table.Rows
		}
	}
	for status, total := range report.ListingsByStatus {
		fields["listings_"+status.String()] = total
	}
	if missing := report.Missing(); len(missing) > 0 {
		fields["missing_tables"] = missing
	}
	logCtx := logg.WithFields(ctx, fields)

	if !report.Complete() {
		logg.Warn(logCtx, "auction schema incomplete")
		if strict {
			return fmt.Errorf("auction schema missing tables %v", report.Missing())
		}
		return nil
	}
	logg.Info(logCtx, "auction schema ready")
	return nil
}

func createMigration(opts options) error {
	if opts.name == "" {
		return errors.New("missing -name for -cmd=create")
	}
	path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
	if err != nil {
		return err
	}
	fmt.Println("created migration:", path)
	return nil
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
