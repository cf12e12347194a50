package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func init() {
	if err := goose.SetDialect("postgres"); err != nil {
		panic(fmt.Sprintf("goose: %v", err))
	}
}

// RunMigrations applies every pending migration in migrationsDir and logs the
// schema version before and after.
func RunMigrations(db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	pending, err := PendingMigrations(db, migrationsDir)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("Schema is up to date", zap.String("dir", migrationsDir))
		return nil
	}

	logger.Info("Applying migrations", zap.String("dir", migrationsDir), zap.Int64s("versions", pending))
	if err := goose.Up(db, migrationsDir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Migrations applied", zap.Int64("version", version))
	return nil
}

// PendingMigrations lists the versions in migrationsDir newer than the
// database's current schema version.
func PendingMigrations(db *sql.DB, migrationsDir string) ([]int64, error) {
	all, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to collect migrations: %w", err)
	}
	current, err := goose.GetDBVersion(db)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	return pendingVersions(all, current), nil
}

func pendingVersions(all goose.Migrations, current int64) []int64 {
	var pending []int64
	for _, m := range all {
		if m.Version > current {
			pending = append(pending, m.Version)
		}
	}
	return pending
}
