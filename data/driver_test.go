package data

import (
	"context"
	"strings"
	"testing"
)

type mockDatabaseDriver struct {
	name string
}

func (d *mockDatabaseDriver) Name() string { return d.name }
func (d *mockDatabaseDriver) Connect(ctx context.Context, cfg any) (any, error) {
	return "mock-connection", nil
}
func (d *mockDatabaseDriver) Close(conn any) error                     { return nil }
func (d *mockDatabaseDriver) Ping(ctx context.Context, conn any) error { return nil }

type mockMessageDriver struct {
	name string
}

func (d *mockMessageDriver) Name() string { return d.name }
func (d *mockMessageDriver) Connect(ctx context.Context, cfg any) (any, error) {
	return "mock-writer", nil
}
func (d *mockMessageDriver) Close(conn any) error { return nil }

func TestRegisterDatabaseDriver(t *testing.T) {
	databaseDrivers.reset()

	RegisterDatabaseDriver(&mockDatabaseDriver{name: "test-db"})

	retrieved, err := GetDatabaseDriver("test-db")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if retrieved.Name() != "test-db" {
		t.Errorf("expected driver name 'test-db', got %q", retrieved.Name())
	}
}

func TestRegisterDatabaseDriverPanicsOnNil(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic when registering nil driver")
		}
	}()

	RegisterDatabaseDriver(nil)
}

func TestRegisterDatabaseDriverPanicsOnEmptyName(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic when registering driver without a name")
		}
	}()

	RegisterDatabaseDriver(&mockDatabaseDriver{})
}

func TestRegisterDatabaseDriverPanicsOnDuplicate(t *testing.T) {
	databaseDrivers.reset()

	driver := &mockDatabaseDriver{name: "duplicate"}
	RegisterDatabaseDriver(driver)

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic when registering duplicate driver")
		}
	}()

	RegisterDatabaseDriver(driver)
}

func TestGetDatabaseDriverNotFound(t *testing.T) {
	databaseDrivers.reset()
	RegisterDatabaseDriver(&mockDatabaseDriver{name: "sqlite"})

	_, err := GetDatabaseDriver("postgres")
	if err == nil {
		t.Fatal("expected error when getting non-existent driver")
	}
	if !strings.Contains(err.Error(), `_ "github.com/ncobase/lamet/data/postgres"`) {
		t.Errorf("error should suggest the driver import, got %q", err)
	}
	if !strings.Contains(err.Error(), "[sqlite]") {
		t.Errorf("error should list available drivers, got %q", err)
	}
}

func TestMessageDriverRegistry(t *testing.T) {
	messageDrivers.reset()
	RegisterMessageDriver(&mockMessageDriver{name: "kafka"})

	d, err := GetMessageDriver("kafka")
	if err != nil {
		t.Fatalf("GetMessageDriver() error = %v", err)
	}
	conn, err := d.Connect(context.Background(), nil)
	if err != nil || conn != "mock-writer" {
		t.Errorf("Connect() = %v, %v", conn, err)
	}

	if _, err := GetCacheDriver("kafka"); err == nil {
		t.Error("message drivers must not be visible as cache drivers")
	}
}

func TestListRegisteredDrivers(t *testing.T) {
	databaseDrivers.reset()
	cacheDrivers.reset()
	messageDrivers.reset()

	RegisterDatabaseDriver(&mockDatabaseDriver{name: "b"})
	RegisterDatabaseDriver(&mockDatabaseDriver{name: "a"})

	got := ListRegisteredDrivers()
	if want := []string{"a", "b"}; strings.Join(got["database"], ",") != strings.Join(want, ",") {
		t.Errorf("database drivers = %v, want %v", got["database"], want)
	}
	if len(got["cache"]) != 0 || len(got["message"]) != 0 {
		t.Errorf("unexpected drivers: %v", got)
	}
}
