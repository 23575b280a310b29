package ignore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/types"
	"github.com/stretchr/testify/assert"
)

func TestMatchPath(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/foo/bar", "/foo/*", true},
		{"/foo", "/foo/*", true},
		{"/foo/", "/foo/*", true},
		{"/foobar", "/foo/*", false},
		{"/health", "health", true},
		{"health/", "/health", true},
		{"/health/live", "/health", false},
		{"/anything", "*", true},
		{"/api/v2/users", `/^api\/v\d+\/.*$/`, true},
		{"/api/users", `/^api\/v\d+\/.*$/`, false},
		{"/ADMIN/x", `/^admin/i`, true},
		{"/api", "/api/", true},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPath(tt.path, tt.pattern))
		})
	}
}

func TestShouldIgnorePathInvalidRegexFallsBackToLiteral(t *testing.T) {
	f := New(&config.Ignore{Paths: []string{`/[unclosed(/`, "/metrics"}}, "metrics")

	assert.True(t, f.ShouldIgnorePath("[unclosed("))
	assert.True(t, f.ShouldIgnorePath("/metrics"))
	assert.False(t, f.ShouldIgnorePath("/orders"))
}

func TestMatchClass(t *testing.T) {
	assert.True(t, MatchClass(`App\Billing\InvalidCharge`, `App\*`))
	assert.False(t, MatchClass(`AppBilling\Other`, `App\*`))
	assert.True(t, MatchClass("github.com/acme/app/billing.InvalidCharge", "github.com/acme/app/*"))
	assert.True(t, MatchClass("acme.NotFound", "acme.*"))
	assert.False(t, MatchClass("acmex.NotFound", "acme.*"))
	assert.True(t, MatchClass("io.EOF", "io.EOF"))
}

type chargeError struct{}

func (chargeError) Error() string { return "invalid charge" }

type classified struct{ class string }

func (c *classified) Error() string      { return c.class }
func (c *classified) ErrorClass() string { return c.class }

func TestClassName(t *testing.T) {
	assert.Equal(t, "github.com/ncobase/lamet/ignore.chargeError", ClassName(chargeError{}))
	assert.Equal(t, "github.com/ncobase/lamet/ignore.chargeError", ClassName(&chargeError{}))
	assert.Equal(t, "errors.errorString", ClassName(errors.New("x")))
	assert.Equal(t, `App\Billing\InvalidCharge`, ClassName(&classified{class: `App\Billing\InvalidCharge`}))
	assert.Equal(t, "", ClassName(nil))
}

func TestShouldIgnoreException(t *testing.T) {
	f := New(&config.Ignore{Exceptions: []string{
		"github.com/ncobase/lamet/ignore.chargeError",
		`App\*`,
	}}, "metrics")

	assert.True(t, f.ShouldIgnoreException(chargeError{}))
	assert.True(t, f.ShouldIgnoreException(fmt.Errorf("checkout: %w", chargeError{})))
	assert.True(t, f.ShouldIgnoreException(errors.Join(errors.New("a"), chargeError{})))
	assert.True(t, f.ShouldIgnoreException(&classified{class: `App\Billing\InvalidCharge`}))
	assert.False(t, f.ShouldIgnoreException(&classified{class: `AppBilling\Other`}))
	assert.False(t, f.ShouldIgnoreException(errors.New("plain")))
	assert.False(t, f.ShouldIgnoreException(nil))
}

func TestRecordErrorAlwaysIgnored(t *testing.T) {
	f := New(nil, "")

	err := types.NewRecordError("x", errors.New("cache down"))
	assert.True(t, f.ShouldIgnoreException(err))
	assert.True(t, f.ShouldIgnoreException(fmt.Errorf("wrapped: %w", err)))
}

func TestContainsTable(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"select * from metrics where id = 1", true},
		{"SELECT * FROM `metrics`", true},
		{`select * from "metrics" m`, true},
		{"insert into metrics (name) values (?)", true},
		{"UPDATE metrics SET value = 1", true},
		{"delete from metrics where recorded_at < ?", true},
		{"select * from users join metrics on 1=1", true},
		{"truncate table metrics", true},
		{"drop table if exists metrics", true},
		{"create table metrics (id int)", true},
		{"alter table metrics add column x int", true},
		{"select * from metrics_archive", false},
		{"select metrics from users", false},
		{"select * from users", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsTable(tt.sql, "metrics"))
		})
	}
}

func TestShouldIgnoreQuery(t *testing.T) {
	f := New(&config.Ignore{DBQuery: &config.IgnoreDBQuery{
		Tables:      []string{"sessions"},
		SQLPatterns: []string{`/^select \* from cache/i`, `pg_catalog`, `(bad`},
	}}, "app_metrics")

	assert.True(t, f.ShouldIgnoreQuery("insert into app_metrics values (1)"))
	assert.True(t, f.ShouldIgnoreQuery("SELECT * FROM sessions"))
	assert.True(t, f.ShouldIgnoreQuery("SELECT * FROM cache_locks"))
	assert.True(t, f.ShouldIgnoreQuery("select oid from pg_catalog.pg_type"))
	assert.True(t, f.ShouldIgnoreQuery("(bad"))
	assert.False(t, f.ShouldIgnoreQuery("select * from orders"))
}
