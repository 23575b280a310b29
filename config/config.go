package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dc "github.com/ncobase/lamet/data/config"
	lc "github.com/ncobase/lamet/logging/logger/config"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LAMET"

// Config represents the configuration implementation.
type Config struct {
	AppName string       `json:"app_name" yaml:"app_name"`
	RunMode string       `json:"run_mode" yaml:"run_mode"`
	Server  *Server      `json:"server" yaml:"server" validate:"required"`
	Logger  *lc.Config   `json:"logger" yaml:"logger"`
	Data    *dc.Config   `json:"data" yaml:"data"`
	Metrics *Metrics     `json:"metrics" yaml:"metrics" validate:"required"`
	Viper   *viper.Viper `json:"-" yaml:"-"`
}

// Server is where `lamet serve` exposes its own telemetry
type Server struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads the configuration from the file. With an empty path the
// usual locations are searched and a missing file falls back to defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/lamet")
		v.AddConfigPath("$HOME/.lamet")
		v.AddConfigPath(".")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) *Config {
	appName := getStringOrDefault(v, "app_name", "lamet")
	runMode := getStringOrDefault(v, "run_mode", "production")

	return &Config{
		AppName: appName,
		RunMode: runMode,
		Server: &Server{
			Host: getStringOrDefault(v, "server.host", "127.0.0.1"),
			Port: getIntOrDefault(v, "server.port", 9464),
		},
		Logger:  lc.GetConfig(v),
		Data:    dc.GetConfig(v),
		Metrics: getMetricsConfig(v, appName, runMode),
		Viper:   v,
	}
}
