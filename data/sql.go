package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/lamet/data/config"
)

// PoolDefaults are applied when the node leaves a pool setting at zero.
type PoolDefaults struct {
	MaxIdleConn int
	MaxOpenConn int
}

// OpenSQL opens a database/sql pool for node through the named sql driver,
// applies pool settings and verifies it with a ping.
func OpenSQL(ctx context.Context, sqlDriver, dsn string, node *config.DBNode, defaults PoolDefaults) (*sql.DB, error) {
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	switch {
	case node.MaxIdleConn > 0:
		db.SetMaxIdleConns(node.MaxIdleConn)
	case defaults.MaxIdleConn > 0:
		db.SetMaxIdleConns(defaults.MaxIdleConn)
	}
	switch {
	case node.MaxOpenConn > 0:
		db.SetMaxOpenConns(node.MaxOpenConn)
	case defaults.MaxOpenConn > 0:
		db.SetMaxOpenConns(defaults.MaxOpenConn)
	}
	if node.ConnMaxLifeTime > 0 {
		db.SetConnMaxLifetime(node.ConnMaxLifeTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// CloseSQL closes a connection returned by a database driver.
func CloseSQL(conn any) error {
	db, ok := conn.(*sql.DB)
	if !ok {
		return fmt.Errorf("invalid connection type %T, expected *sql.DB", conn)
	}
	return db.Close()
}

// PingSQL pings a connection returned by a database driver.
func PingSQL(ctx context.Context, conn any) error {
	db, ok := conn.(*sql.DB)
	if !ok {
		return fmt.Errorf("invalid connection type %T, expected *sql.DB", conn)
	}
	return db.PingContext(ctx)
}
