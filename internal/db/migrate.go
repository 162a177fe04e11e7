package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"bar-bartender/internal/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose guarda dialecto y FS en estado global.
var gooseMu sync.Mutex

// migrate aplica la migración base: el esquema de la primera version
// publicada. Las columnas y reglas posteriores las agrega schema.Reconciler.
func migrate(sqlDB *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	gooseDialect, dir := "sqlite3", "migrations/sqlite"
	if dialect.Name() == config.BackendPostgres {
		gooseDialect, dir = "postgres", "migrations/postgres"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
