package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migration commands understood by RunMigrations.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// RunMigrations applies the embedded LMS integration migrations.
func RunMigrations(db *sql.DB, command string) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	var err error
	switch command {
	case "", MigrateUp:
		err = goose.Up(db, migrationsDir)
	case MigrateDown:
		err = goose.Down(db, migrationsDir)
	case MigrateStatus:
		err = goose.Status(db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("run migrations %s: %w", command, err)
	}
	return nil
}
