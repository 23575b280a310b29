// Package mysql provides a MySQL driver for lamet/data.
//
// This driver uses github.com/go-sql-driver/mysql and registers itself
// automatically when imported:
//
//	import _ "github.com/ncobase/lamet/data/mysql"
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
)

// driver implements data.DatabaseDriver for MySQL.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return "mysql"
}

// normalizeDSN forces time parsing in UTC so recorded_at round-trips as time.Time.
func normalizeDSN(source string) (string, error) {
	cfg, err := mysql.ParseDSN(source)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Connect opens a *sql.DB for a *config.DBNode whose Source is a MySQL DSN:
//
//	user:password@tcp(localhost:3306)/dbname?charset=utf8mb4
func (d *driver) Connect(ctx context.Context, cfg any) (any, error) {
	node, ok := cfg.(*config.DBNode)
	if !ok {
		return nil, fmt.Errorf("mysql: invalid configuration type, expected *config.DBNode")
	}
	if node.Source == "" {
		return nil, fmt.Errorf("mysql: connection source is empty")
	}

	dsn, err := normalizeDSN(node.Source)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid connection source: %w", err)
	}

	db, err := data.OpenSQL(ctx, "mysql", dsn, node, data.PoolDefaults{})
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return db, nil
}

// Close terminates the MySQL connection and releases resources.
func (d *driver) Close(conn any) error {
	if err := data.CloseSQL(conn); err != nil {
		return fmt.Errorf("mysql: failed to close connection: %w", err)
	}
	return nil
}

// Ping verifies the MySQL connection is alive and functional.
func (d *driver) Ping(ctx context.Context, conn any) error {
	if err := data.PingSQL(ctx, conn); err != nil {
		return fmt.Errorf("mysql: ping failed: %w", err)
	}
	return nil
}

func init() {
	data.RegisterDatabaseDriver(&driver{})
}
