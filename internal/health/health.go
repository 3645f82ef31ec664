// Package health provides liveness and readiness checks for the API server.
package health

import (
	"context"
	"database/sql"
	"time"
)

// pingTimeout bounds how long a readiness probe waits on the database.
const pingTimeout = 2 * time.Second

// Status describes the health of the server and its dependencies.
type Status struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Checker reports server health. A nil database is reported as "disabled",
// which is the in-memory storage mode.
type Checker struct {
	db *sql.DB
}

// NewChecker creates a health checker. db may be nil.
func NewChecker(db *sql.DB) *Checker {
	return &Checker{db: db}
}

// Check pings the database (when configured) and returns the overall status.
// The returned bool is false when a dependency is unhealthy.
func (c *Checker) Check(ctx context.Context) (Status, bool) {
	status := Status{Status: "ok", Database: "disabled"}

	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := c.db.PingContext(pingCtx); err != nil {
			status.Status = "degraded"
			status.Database = "unreachable"
			return status, false
		}
		status.Database = "ok"
	}

	return status, true
}
