package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"backoffice/internal/shared/config"
	"backoffice/internal/shared/storage/db"
	"backoffice/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"err": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"err": err})
		os.Exit(1)
	}
	version, err := db.MigrationVersion(sqlDB)
	if err != nil {
		telemetry.Error("migrate.version_failed", map[string]any{"err": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.complete", map[string]any{"version": version})
}
