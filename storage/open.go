package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/data"
	"go.mongodb.org/mongo-driver/mongo"
)

// Open connects the store named by cfg.Metrics.Storage through the data
// driver registry and wraps it in a BreakerStore when enabled. Driver
// packages must be imported (see github.com/ncobase/lamet/data/all).
// An empty storage setting returns ErrNoStorage.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if b := cfg.Metrics.Breaker; b != nil && b.Enabled {
		return NewBreakerStore(store, b.MaxFailures, b.OpenTimeout), nil
	}
	return store, nil
}

func open(ctx context.Context, cfg *config.Config) (Store, error) {
	name := cfg.Metrics.Storage
	switch name {
	case "":
		return nil, ErrNoStorage
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "mysql", "sqlite", "mongodb":
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", name)
	}

	driver, err := data.GetDatabaseDriver(name)
	if err != nil {
		return nil, err
	}

	if name == "mongodb" {
		if cfg.Data == nil || cfg.Data.MongoDB == nil {
			return nil, fmt.Errorf("storage: %w: data.mongodb is not configured", ErrNoStorage)
		}
		conn, err := driver.Connect(ctx, cfg.Data.MongoDB)
		if err != nil {
			return nil, err
		}
		client, ok := conn.(*mongo.Client)
		if !ok {
			_ = driver.Close(conn)
			return nil, fmt.Errorf("storage: driver %q returned %T, want *mongo.Client", name, conn)
		}
		db := client.Database(cfg.Data.MongoDB.Database)
		return NewMongoStore(db, cfg.Metrics.Table, func() error { return driver.Close(conn) }), nil
	}

	if cfg.Data == nil || cfg.Data.Database == nil || cfg.Data.Database.Source == "" {
		return nil, fmt.Errorf("storage: %w: data.database.source is empty", ErrNoStorage)
	}
	conn, err := driver.Connect(ctx, cfg.Data.Database)
	if err != nil {
		return nil, err
	}
	db, ok := conn.(*sql.DB)
	if !ok {
		_ = driver.Close(conn)
		return nil, fmt.Errorf("storage: driver %q returned %T, want *sql.DB", name, conn)
	}
	store, err := NewSQLStore(db, name, cfg.Metrics.Table, func() error { return driver.Close(conn) })
	if err != nil {
		_ = driver.Close(conn)
		return nil, err
	}
	return store, nil
}
