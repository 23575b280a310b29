package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Driver interfaces define contracts for the backends metrics flow through.
// Following the design pattern of database/sql, drivers register themselves
// using init() functions and are looked up at runtime based on configuration.

// DatabaseDriver defines the interface for durable storage drivers.
type DatabaseDriver interface {
	// Name returns the driver identifier (e.g., "postgres", "mysql", "sqlite")
	Name() string

	// Connect establishes a new connection using the provided configuration.
	Connect(ctx context.Context, cfg any) (any, error)

	// Close terminates the connection and releases resources.
	Close(conn any) error

	// Ping verifies the connection is alive and functional.
	Ping(ctx context.Context, conn any) error
}

// CacheDriver defines the interface for aggregation cache drivers.
type CacheDriver interface {
	Name() string
	Connect(ctx context.Context, cfg any) (any, error)
	Close(conn any) error
	Ping(ctx context.Context, conn any) error
}

// MessageDriver defines the interface for broker drivers used by exporters.
type MessageDriver interface {
	Name() string
	Connect(ctx context.Context, cfg any) (any, error)
	Close(conn any) error
}

type registry[T interface{ Name() string }] struct {
	kind    string
	mu      sync.RWMutex
	drivers map[string]T
}

func newRegistry[T interface{ Name() string }](kind string) *registry[T] {
	return &registry[T]{kind: kind, drivers: make(map[string]T)}
}

func (r *registry[T]) register(fn string, driver T, isNil bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isNil {
		panic(fmt.Sprintf("data: %s driver is nil", fn))
	}

	name := driver.Name()
	if name == "" {
		panic(fmt.Sprintf("data: %s driver name is empty", fn))
	}

	if _, exists := r.drivers[name]; exists {
		panic(fmt.Sprintf("data: %s called twice for driver %s", fn, name))
	}

	r.drivers[name] = driver
}

func (r *registry[T]) get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, ok := r.drivers[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf(
			"data: %s driver %q not registered\n\n"+
				"Did you forget to import the driver package?\n"+
				"Add to your imports:\n"+
				"    _ \"github.com/ncobase/lamet/data/%s\"\n\n"+
				"Available drivers: %v",
			r.kind, name, name, r.namesLocked(),
		)
	}
	return driver, nil
}

func (r *registry[T]) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *registry[T]) namesLocked() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry[T]) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = make(map[string]T)
}

var (
	databaseDrivers = newRegistry[DatabaseDriver]("database")
	cacheDrivers    = newRegistry[CacheDriver]("cache")
	messageDrivers  = newRegistry[MessageDriver]("message")
)

// RegisterDatabaseDriver makes a database driver available by the provided name.
// It is intended to be called from the init function in driver packages.
//
// Example usage in a driver package:
//
//	func init() {
//	    data.RegisterDatabaseDriver(&driver{})
//	}
//
// If RegisterDatabaseDriver is called twice with the same name or if driver is nil,
// it panics.
func RegisterDatabaseDriver(driver DatabaseDriver) {
	databaseDrivers.register("RegisterDatabaseDriver", driver, driver == nil)
}

// RegisterCacheDriver makes a cache driver available by the provided name.
func RegisterCacheDriver(driver CacheDriver) {
	cacheDrivers.register("RegisterCacheDriver", driver, driver == nil)
}

// RegisterMessageDriver makes a message broker driver available by the provided name.
func RegisterMessageDriver(driver MessageDriver) {
	messageDrivers.register("RegisterMessageDriver", driver, driver == nil)
}

// GetDatabaseDriver retrieves a registered database driver by name.
// It returns an error with helpful instructions if the driver is not found.
func GetDatabaseDriver(name string) (DatabaseDriver, error) {
	return databaseDrivers.get(name)
}

// GetCacheDriver retrieves a registered cache driver by name.
func GetCacheDriver(name string) (CacheDriver, error) {
	return cacheDrivers.get(name)
}

// GetMessageDriver retrieves a registered message driver by name.
func GetMessageDriver(name string) (MessageDriver, error) {
	return messageDrivers.get(name)
}

// ListRegisteredDrivers returns a snapshot of all registered drivers.
func ListRegisteredDrivers() map[string][]string {
	return map[string][]string{
		"database": databaseDrivers.names(),
		"cache":    cacheDrivers.names(),
		"message":  messageDrivers.names(),
	}
}
