package config

import (
	"time"

	"github.com/spf13/viper"
)

// Metrics holds the collector settings
type Metrics struct {
	Enabled     bool           `json:"enabled" yaml:"enabled"`
	LogMetrics  bool           `json:"log_metrics" yaml:"log_metrics"`
	DefaultTags map[string]any `json:"default_tags" yaml:"default_tags"`
	// Storage names the database driver metrics are flushed to: postgres,
	// mysql, sqlite, mongodb or memory. Empty disables persistence.
	Storage   string     `json:"storage" yaml:"storage" validate:"omitempty,oneof=postgres mysql sqlite mongodb memory"`
	Table     string     `json:"table" yaml:"table" validate:"required,max=64"`
	Cache     *Cache     `json:"cache" yaml:"cache" validate:"required"`
	Ignore    *Ignore    `json:"ignore" yaml:"ignore" validate:"required"`
	DBQuery   *DBQuery   `json:"db_query" yaml:"db_query" validate:"required"`
	Exception *Exception `json:"exception" yaml:"exception" validate:"required"`
	Retention *Retention `json:"retention" yaml:"retention" validate:"required"`
	Breaker   *Breaker   `json:"breaker" yaml:"breaker" validate:"required"`
	Exporter  *Exporter  `json:"exporter" yaml:"exporter" validate:"required"`
}

// Cache configures the aggregation buffer
type Cache struct {
	Driver        string        `json:"driver" yaml:"driver" validate:"oneof=memory redis"`
	Prefix        string        `json:"prefix" yaml:"prefix"`
	TTL           time.Duration `json:"ttl" yaml:"ttl" validate:"gt=0"`
	BatchSize     int           `json:"batch_size" yaml:"batch_size" validate:"gt=0"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval" validate:"gt=0"`
	LockTTL       time.Duration `json:"lock_ttl" yaml:"lock_ttl" validate:"gt=0"`
	MaxRetries    int           `json:"max_retries" yaml:"max_retries" validate:"gte=1"`
}

// Ignore lists the rules that suppress recording
type Ignore struct {
	Paths      []string       `json:"paths" yaml:"paths"`
	Exceptions []string       `json:"exceptions" yaml:"exceptions"`
	DBQuery    *IgnoreDBQuery `json:"db_query" yaml:"db_query" validate:"required"`
}

// IgnoreDBQuery lists tables and SQL patterns that are never measured
type IgnoreDBQuery struct {
	Tables      []string `json:"tables" yaml:"tables"`
	SQLPatterns []string `json:"sql_patterns" yaml:"sql_patterns"`
}

// DBQuery configures the query recorder
type DBQuery struct {
	Enabled             bool          `json:"enabled" yaml:"enabled"`
	MetricName          string        `json:"metric_name" yaml:"metric_name" validate:"required"`
	StoreOnlySlowQuery  bool          `json:"store_only_slow_query" yaml:"store_only_slow_query"`
	SlowQueryThreshold  time.Duration `json:"slow_query_threshold" yaml:"slow_query_threshold" validate:"gte=0"`
	SlowQueryNameSuffix string        `json:"slow_query_name_suffix" yaml:"slow_query_name_suffix"`
	Tags                []string      `json:"tags" yaml:"tags" validate:"dive,oneof=connection sql duration file line"`
}

// Exception configures the exception recorder
type Exception struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	MetricName    string   `json:"metric_name" yaml:"metric_name" validate:"required"`
	TraceLines    int      `json:"trace_lines" yaml:"trace_lines" validate:"gte=0"`
	TraceMaxChars int      `json:"trace_max_chars" yaml:"trace_max_chars" validate:"gte=0"`
	Tags          []string `json:"tags" yaml:"tags" validate:"dive,oneof=exception_class message file line code trace"`
}

// Retention configures the scheduled sweep of stored metrics
type Retention struct {
	// Days to keep; zero disables the scheduled sweep.
	Days     int           `json:"days" yaml:"days" validate:"gte=0"`
	Interval time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
}

// Breaker guards storage writes with a circuit breaker
type Breaker struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	MaxFailures uint32        `json:"max_failures" yaml:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout" validate:"gt=0"`
}

// Exporter forwards flushed metrics to a broker
type Exporter struct {
	// Driver is a registered message driver (kafka, rabbitmq); empty disables export.
	Driver string `json:"driver" yaml:"driver" validate:"omitempty,oneof=kafka rabbitmq"`
}

// Defaults
const (
	defaultPrefix              = "metrics:"
	defaultTTL                 = time.Hour
	defaultBatchSize           = 1000
	defaultFlushInterval       = 5 * time.Minute
	defaultLockTTL             = time.Minute
	defaultMaxRetries          = 5
	defaultTable               = "metrics"
	defaultDBQueryMetric       = "db.query"
	defaultSlowQueryThreshold  = 1500 * time.Millisecond
	defaultSlowQuerySuffix     = ".slow"
	defaultExceptionMetric     = "exception.occurrence"
	defaultTraceLines          = 15
	defaultTraceMaxChars       = 2000
	defaultRetentionInterval   = 24 * time.Hour
	defaultBreakerMaxFailures  = 5
	defaultBreakerOpenDuration = 30 * time.Second
)

var (
	defaultDBQueryTags   = []string{"connection", "sql", "duration", "file", "line"}
	defaultExceptionTags = []string{"exception_class", "message", "file", "line", "code", "trace"}
)

// getMetricsConfig reads the metrics section
func getMetricsConfig(v *viper.Viper, appName, runMode string) *Metrics {
	defaultTags := map[string]any{
		"environment": runMode,
		"app_name":    appName,
	}
	if v.IsSet("metrics.default_tags") {
		defaultTags = v.GetStringMap("metrics.default_tags")
	}

	return &Metrics{
		Enabled:     getBoolOrDefault(v, "metrics.enabled", true),
		LogMetrics:  getBoolOrDefault(v, "metrics.log_metrics", false),
		DefaultTags: defaultTags,
		Storage:     v.GetString("metrics.storage"),
		Table:       getStringOrDefault(v, "metrics.table", defaultTable),
		Cache: &Cache{
			Driver:        getStringOrDefault(v, "metrics.cache.driver", "memory"),
			Prefix:        getStringOrDefault(v, "metrics.cache.prefix", defaultPrefix),
			TTL:           getDurationInUnitOrDefault(v, "metrics.cache.ttl", time.Second, defaultTTL),
			BatchSize:     getIntOrDefault(v, "metrics.cache.batch_size", defaultBatchSize),
			FlushInterval: getDurationInUnitOrDefault(v, "metrics.cache.flush_interval", time.Second, defaultFlushInterval),
			LockTTL:       getDurationOrDefault(v, "metrics.cache.lock_ttl", defaultLockTTL),
			MaxRetries:    getIntOrDefault(v, "metrics.cache.max_retries", defaultMaxRetries),
		},
		Ignore: &Ignore{
			Paths:      v.GetStringSlice("metrics.ignore.paths"),
			Exceptions: v.GetStringSlice("metrics.ignore.exceptions"),
			DBQuery: &IgnoreDBQuery{
				Tables:      v.GetStringSlice("metrics.ignore.db_query.tables"),
				SQLPatterns: v.GetStringSlice("metrics.ignore.db_query.sql_patterns"),
			},
		},
		DBQuery: &DBQuery{
			Enabled:             getBoolOrDefault(v, "metrics.db_query.enabled", true),
			MetricName:          getStringOrDefault(v, "metrics.db_query.metric_name", defaultDBQueryMetric),
			StoreOnlySlowQuery:  getBoolOrDefault(v, "metrics.db_query.store_only_slow_query", true),
			SlowQueryThreshold:  getDurationInUnitOrDefault(v, "metrics.db_query.slow_query_threshold", time.Millisecond, defaultSlowQueryThreshold),
			SlowQueryNameSuffix: getStringOrDefault(v, "metrics.db_query.slow_query_name_suffix", defaultSlowQuerySuffix),
			Tags:                getStringSliceOrDefault(v, "metrics.db_query.tags", defaultDBQueryTags),
		},
		Exception: &Exception{
			Enabled:       getBoolOrDefault(v, "metrics.exception.enabled", true),
			MetricName:    getStringOrDefault(v, "metrics.exception.metric_name", defaultExceptionMetric),
			TraceLines:    getIntOrDefault(v, "metrics.exception.trace_lines", defaultTraceLines),
			TraceMaxChars: getIntOrDefault(v, "metrics.exception.trace_max_chars", defaultTraceMaxChars),
			Tags:          getStringSliceOrDefault(v, "metrics.exception.tags", defaultExceptionTags),
		},
		Retention: &Retention{
			Days:     getIntOrDefault(v, "metrics.retention.days", 0),
			Interval: getDurationOrDefault(v, "metrics.retention.interval", defaultRetentionInterval),
		},
		Breaker: &Breaker{
			Enabled:     getBoolOrDefault(v, "metrics.breaker.enabled", false),
			MaxFailures: uint32(getIntOrDefault(v, "metrics.breaker.max_failures", defaultBreakerMaxFailures)),
			OpenTimeout: getDurationOrDefault(v, "metrics.breaker.open_timeout", defaultBreakerOpenDuration),
		},
		Exporter: &Exporter{
			Driver: v.GetString("metrics.exporter.driver"),
		},
	}
}
