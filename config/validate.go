package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	m := c.Metrics
	if m.Cache.Driver == "redis" && (c.Data == nil || c.Data.Redis == nil || len(c.Data.Redis.Addrs) == 0) {
		return errors.New("invalid config: metrics.cache.driver is redis but data.redis.addr is empty")
	}
	switch m.Storage {
	case "postgres", "mysql", "sqlite":
		if c.Data == nil || c.Data.Database == nil || c.Data.Database.Source == "" {
			return fmt.Errorf("invalid config: metrics.storage is %s but data.database.source is empty", m.Storage)
		}
	case "mongodb":
		if c.Data == nil || c.Data.MongoDB == nil || c.Data.MongoDB.URI == "" {
			return errors.New("invalid config: metrics.storage is mongodb but data.mongodb.uri is empty")
		}
	}
	return nil
}

// Warnings reports settings that are allowed but likely to lose data.
func (c *Config) Warnings() []string {
	var out []string
	m := c.Metrics
	if m.Cache.TTL <= m.Cache.FlushInterval {
		out = append(out, fmt.Sprintf(
			"metrics.cache.ttl (%s) should exceed metrics.cache.flush_interval (%s); entries may expire before they are flushed",
			m.Cache.TTL, m.Cache.FlushInterval))
	}
	if m.Cache.Driver == "memory" {
		out = append(out, "metrics.cache.driver is memory; aggregation is not shared across processes")
	}
	if m.Storage == "" {
		out = append(out, "metrics.storage is empty; flush and clean will fail")
	}
	return out
}
