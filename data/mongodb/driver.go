// Package mongodb provides a MongoDB driver for lamet/data.
//
// This driver uses mongo-driver (go.mongodb.org/mongo-driver) as the underlying client.
// It registers itself automatically when imported:
//
//	import _ "github.com/ncobase/lamet/data/mongodb"
//
// Connect returns a *mongo.Client; callers pick the database from the same
// *config.MongoDB they connected with.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultConnectTimeout = 10 * time.Second

// driver implements data.DatabaseDriver for MongoDB.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return "mongodb"
}

// Connect establishes a MongoDB connection for a *config.MongoDB.
func (d *driver) Connect(ctx context.Context, cfg any) (any, error) {
	mongoCfg, ok := cfg.(*config.MongoDB)
	if !ok {
		return nil, fmt.Errorf("mongodb: invalid configuration type, expected *config.MongoDB")
	}
	if mongoCfg.URI == "" {
		return nil, errors.New("mongodb: URI is empty")
	}

	timeout := mongoCfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoCfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongodb: failed to connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: failed to ping server: %w", err)
	}

	return client, nil
}

// Close disconnects the client.
func (d *driver) Close(conn any) error {
	client, ok := conn.(*mongo.Client)
	if !ok {
		return fmt.Errorf("mongodb: invalid connection type, expected *mongo.Client")
	}
	if err := client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("mongodb: failed to disconnect: %w", err)
	}
	return nil
}

// Ping verifies the MongoDB connection is alive and functional.
func (d *driver) Ping(ctx context.Context, conn any) error {
	client, ok := conn.(*mongo.Client)
	if !ok {
		return fmt.Errorf("mongodb: invalid connection type, expected *mongo.Client")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}
	return nil
}

func init() {
	data.RegisterDatabaseDriver(&driver{})
}
