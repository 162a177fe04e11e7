package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"bar-bartender/internal/config"
)

// DB agrupa el handle de database/sql con el dialecto elegido al arrancar.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect

	pool *pgxpool.Pool
}

// Open abre el backend indicado por la configuración y aplica la migración base.
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	if cfg.Backend() == config.BackendPostgres {
		return OpenPostgres(ctx, cfg)
	}
	return OpenSQLite(cfg.SQLiteDSN())
}

// OpenSQLite abre (o crea) un archivo SQLite. ":memory:" sirve para tests.
func OpenSQLite(path string) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_time_format=sqlite"
	} else {
		dsn += "?_time_format=sqlite"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite admite un solo escritor; con una conexion tambien se conserva
	// la base en memoria entre llamadas.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	d := &DB{SQL: sqlDB, Dialect: SQLiteDialect{}}
	if err := migrate(sqlDB, d.Dialect); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return d, nil
}

// OpenPostgres construye el pool pgx y lo expone como *sql.DB.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*DB, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	d := &DB{SQL: sqlDB, Dialect: PostgresDialect{}, pool: pool}
	if err := migrate(sqlDB, d.Dialect); err != nil {
		d.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return d, nil
}

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.DBMaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func (d *DB) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

func (d *DB) Close() error {
	err := d.SQL.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// WithTx ejecuta fn dentro de una transaccion sobre d.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, d.SQL, nil, fn)
}
