package config

import (
	"time"

	"github.com/spf13/viper"
)

// orDefault reads key with get when it is set and falls back to def.
func orDefault[T any](v *viper.Viper, key string, get func(string) T, def T) T {
	if !v.IsSet(key) {
		return def
	}
	return get(key)
}

func getDurationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	return orDefault(v, key, v.GetDuration, def)
}

// getDurationInUnitOrDefault reads a duration that may be written as a bare
// number of units (3600 with unit time.Second) or as a duration string ("1h").
func getDurationInUnitOrDefault(v *viper.Viper, key string, unit, def time.Duration) time.Duration {
	return orDefault(v, key, func(key string) time.Duration {
		if raw, ok := v.Get(key).(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				return d
			}
		}
		return time.Duration(v.GetFloat64(key) * float64(unit))
	}, def)
}

func getIntOrDefault(v *viper.Viper, key string, def int) int {
	return orDefault(v, key, v.GetInt, def)
}

func getStringOrDefault(v *viper.Viper, key string, def string) string {
	return orDefault(v, key, v.GetString, def)
}

func getBoolOrDefault(v *viper.Viper, key string, def bool) bool {
	return orDefault(v, key, v.GetBool, def)
}

func getStringSliceOrDefault(v *viper.Viper, key string, def []string) []string {
	return orDefault(v, key, v.GetStringSlice, def)
}
