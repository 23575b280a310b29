package mysql

import (
	"context"
	"strings"
	"testing"

	"github.com/ncobase/lamet/data/config"
)

func TestDriverName(t *testing.T) {
	d := &driver{}
	if got := d.Name(); got != "mysql" {
		t.Errorf("Name() = %q, want %q", got, "mysql")
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("user:pw@tcp(localhost:3306)/app?charset=utf8mb4")
	if err != nil {
		t.Fatalf("normalizeDSN() error = %v", err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Errorf("normalizeDSN() = %q, want parseTime=true", got)
	}
	if !strings.Contains(got, "charset=utf8mb4") {
		t.Errorf("normalizeDSN() = %q, want charset kept", got)
	}
}

func TestConnectRejectsBadConfig(t *testing.T) {
	d := &driver{}
	if _, err := d.Connect(context.Background(), "nope"); err == nil {
		t.Error("Connect() with wrong config type should fail")
	}
	if _, err := d.Connect(context.Background(), &config.DBNode{}); err == nil {
		t.Error("Connect() with empty source should fail")
	}
}
