package mongodb

import (
	"context"
	"testing"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
)

func TestDriverRegistered(t *testing.T) {
	d, err := data.GetDatabaseDriver("mongodb")
	if err != nil {
		t.Fatalf("GetDatabaseDriver() error = %v", err)
	}
	if got := d.Name(); got != "mongodb" {
		t.Errorf("Name() = %q, want %q", got, "mongodb")
	}
}

func TestConnectValidation(t *testing.T) {
	d := &driver{}
	tests := []struct {
		name string
		cfg  any
	}{
		{"wrong type", &config.DBNode{}},
		{"empty uri", &config.MongoDB{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Connect(context.Background(), tt.cfg); err == nil {
				t.Errorf("Connect() expected error")
			}
		})
	}
}

func TestCloseRejectsWrongType(t *testing.T) {
	d := &driver{}
	if err := d.Close("conn"); err == nil {
		t.Error("Close() expected error for wrong connection type")
	}
}
