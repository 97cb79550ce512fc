package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"totalConns"`
	IdleConns       int32  `json:"idleConns"`
	AcquiredConns   int32  `json:"acquiredConns"`
	MaxConns        int32  `json:"maxConns"`
	AcquireDuration string `json:"acquireDuration"`
	Healthy         bool   `json:"healthy"`
	Error           string `json:"error,omitempty"`
}

// Checker reports database health for the health endpoints.
type Checker struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewChecker(pool *pgxpool.Pool) *Checker {
	return &Checker{pool: pool, timeout: 3 * time.Second}
}

// Check pings the database and snapshots the pool counters.
func (c *Checker) Check(ctx context.Context) *PoolStats {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stat := c.pool.Stat()
	stats := &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         true,
	}
	if err := c.pool.Ping(ctx); err != nil {
		stats.Healthy = false
		stats.Error = err.Error()
	}
	return stats
}
