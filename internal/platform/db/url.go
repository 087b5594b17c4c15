package db

import (
	"fmt"
	"strings"
)

// Driver names a supported patient database.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// ParseURL resolves DATABASE_URL into a driver and the DSN that driver
// expects. postgres:// and postgresql:// select PostgreSQL; sqlite://,
// file: and bare paths ending in .db, .sqlite or .sqlite3 select SQLite.
func ParseURL(url string) (Driver, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", fmt.Errorf("database url is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		dsn := strings.TrimPrefix(url, "sqlite://")
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite url has no path")
		}
		return SQLite, dsn, nil
	case strings.HasPrefix(url, "file:"):
		return SQLite, url, nil
	}

	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(url, ext) {
			return SQLite, url, nil
		}
	}
	return "", "", fmt.Errorf("unsupported database url scheme")
}
