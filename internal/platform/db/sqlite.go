package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const foreignKeysPragma = "_pragma=foreign_keys(1)"

// OpenSQLite opens a SQLite database through the pure-Go driver with
// foreign keys enforced on every connection.
func OpenSQLite(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 1
	}
	conn.SetMaxOpenConns(maxConns)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + foreignKeysPragma
	}
	return dsn + "?" + foreignKeysPragma
}
