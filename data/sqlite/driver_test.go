package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
)

func TestWithBusyTimeout(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{":memory:", ":memory:?_busy_timeout=5000"},
		{"file:x.db?cache=shared", "file:x.db?cache=shared&_busy_timeout=5000"},
		{"x.db?_busy_timeout=10", "x.db?_busy_timeout=10"},
	}
	for _, tt := range tests {
		if got := withBusyTimeout(tt.in); got != tt.want {
			t.Errorf("withBusyTimeout(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConnectInMemory(t *testing.T) {
	drv, err := data.GetDatabaseDriver("sqlite")
	if err != nil {
		t.Fatalf("GetDatabaseDriver() error = %v", err)
	}

	ctx := context.Background()
	conn, err := drv.Connect(ctx, &config.DBNode{Driver: "sqlite", Source: ":memory:"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer drv.Close(conn)

	db, ok := conn.(*sql.DB)
	if !ok {
		t.Fatalf("Connect() returned %T, want *sql.DB", conn)
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
	if err := drv.Ping(ctx, conn); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
