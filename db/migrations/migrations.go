package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite3/*.sql
var embedded embed.FS

// Run applies every pending migration for the given driver ("postgres" or "sqlite3").
func Run(db *sql.DB, driver string, logger *log.Logger) error {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("migrations: unsupported driver %q", driver)
	}

	goose.SetBaseFS(embedded)
	if logger != nil {
		goose.SetLogger(logger)
	}
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}

	if logger != nil {
		logger.Printf("running migrations from %s", driver)
	}
	if err := goose.Up(db, driver); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
