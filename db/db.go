package db

import (
	"context"
	"fmt"

	"food-delivery/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DriverName is the database/sql driver registered by pgx's stdlib package.
const DriverName = "pgx"

// Open connects to PostgreSQL and verifies the connection. The returned handle is
// shared by every service and must be closed with Close on shutdown.
func Open(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, DriverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return conn, nil
}

func Close(conn *sqlx.DB) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}
