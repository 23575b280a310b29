// Package config loads lamet configuration with viper.
//
// Values come from a YAML/JSON/TOML file and may be overridden by
// environment variables prefixed with LAMET_, where nested keys are joined
// with underscores (LAMET_METRICS_CACHE_TTL=2h).
package config
