package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate|automigrate")
	dir := flag.String("dir", "", "migrations directory (defaults to the embedded set; create uses "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	// Offline commands work on files only.
	switch cmd {
	case "create":
		if name == "" {
			return fmt.Errorf("-name is required")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.Validate(migrate.SourceFor(dir)); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    cmd,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if cmd == "automigrate" {
		return models.AutoMigrate(dbClient.DB().WithContext(ctx))
	}
	if cfg.DB.Driver == db.DriverSQLite {
		logg.Warn(ctx, "sql migrations target postgres; build sqlite databases with -cmd=automigrate")
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, cfg.DB.Driver, migrate.SourceFor(dir))
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		return runner.Down(ctx)
	case "status":
		lines, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, line := range lines {
			state := "pending"
			if line.Applied {
				state = "applied " + line.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%d  %-48s %s\n", line.Version, line.Path, state)
		}
	case "version":
		if version == "" {
			return fmt.Errorf("-version is required")
		}
		return runner.To(ctx, version)
	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}
