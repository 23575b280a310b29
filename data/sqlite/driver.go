// Package sqlite provides a SQLite driver for lamet/data.
//
// This driver uses github.com/mattn/go-sqlite3 (cgo) and registers itself
// automatically when imported:
//
//	import _ "github.com/ncobase/lamet/data/sqlite"
package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
)

const busyTimeoutParam = "_busy_timeout"

// driver implements data.DatabaseDriver for SQLite.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return "sqlite"
}

// withBusyTimeout makes concurrent writers wait for the file lock instead of
// failing with SQLITE_BUSY.
func withBusyTimeout(source string) string {
	if strings.Contains(source, busyTimeoutParam+"=") {
		return source
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + busyTimeoutParam + "=5000"
}

// Connect opens a *sql.DB for a *config.DBNode whose Source is a file path,
// a file: URI or ":memory:". A single open connection is used unless
// configured otherwise, which also keeps an in-memory database alive.
func (d *driver) Connect(ctx context.Context, cfg any) (any, error) {
	node, ok := cfg.(*config.DBNode)
	if !ok {
		return nil, fmt.Errorf("sqlite: invalid configuration type, expected *config.DBNode")
	}
	if node.Source == "" {
		return nil, fmt.Errorf("sqlite: connection source is empty")
	}

	db, err := data.OpenSQL(ctx, "sqlite3", withBusyTimeout(node.Source), node, data.PoolDefaults{
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return db, nil
}

// Close terminates the SQLite connection and releases resources.
func (d *driver) Close(conn any) error {
	if err := data.CloseSQL(conn); err != nil {
		return fmt.Errorf("sqlite: failed to close connection: %w", err)
	}
	return nil
}

// Ping verifies the SQLite connection is alive and functional.
func (d *driver) Ping(ctx context.Context, conn any) error {
	if err := data.PingSQL(ctx, conn); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

func init() {
	data.RegisterDatabaseDriver(&driver{})
}
