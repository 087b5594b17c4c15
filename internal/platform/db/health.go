package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Driver        Driver `json:"driver"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	Healthy       bool   `json:"healthy"`
}

// Probe checks one database and reports its pool.
type Probe interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

type pgProbe struct{ pool *pgxpool.Pool }

// PostgresProbe wraps a pgx pool.
func PostgresProbe(pool *pgxpool.Pool) Probe { return pgProbe{pool} }

func (p pgProbe) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p pgProbe) Stats() *PoolStats {
	stat := p.pool.Stat()
	return &PoolStats{
		Driver:        Postgres,
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
		Healthy:       stat.TotalConns() > 0,
	}
}

type sqlProbe struct{ db *sql.DB }

// SQLiteProbe wraps a database/sql handle.
func SQLiteProbe(db *sql.DB) Probe { return sqlProbe{db} }

func (p sqlProbe) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p sqlProbe) Stats() *PoolStats {
	stat := p.db.Stats()
	return &PoolStats{
		Driver:        SQLite,
		TotalConns:    int32(stat.OpenConnections),
		IdleConns:     int32(stat.Idle),
		AcquiredConns: int32(stat.InUse),
		MaxConns:      int32(stat.MaxOpenConnections),
		Healthy:       true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
// Driver errors are logged, not returned, since they can name hosts.
func HealthHandler(probe Probe, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := probe.Ping(ctx)
		stats := probe.Stats()

		if err != nil {
			logger.Warn().Err(err).Str("driver", string(stats.Driver)).Msg("database health check failed")
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
