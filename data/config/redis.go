package config

import (
	"time"

	"github.com/spf13/viper"
)

// Redis is the shared aggregation cache. A single address connects to one
// server; several addresses connect to a cluster, or to sentinels when
// MasterName is set.
type Redis struct {
	Addrs        []string      `json:"addrs" yaml:"addrs"`
	MasterName   string        `json:"master_name" yaml:"master_name"`
	Username     string        `json:"username" yaml:"username"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// data.redis.addr is accepted as a one-element data.redis.addrs.
func getRedisConfigs(v *viper.Viper) *Redis {
	addrs := v.GetStringSlice("data.redis.addrs")
	if addr := v.GetString("data.redis.addr"); addr != "" && len(addrs) == 0 {
		addrs = []string{addr}
	}
	return &Redis{
		Addrs:        addrs,
		MasterName:   v.GetString("data.redis.master_name"),
		Username:     v.GetString("data.redis.username"),
		Password:     v.GetString("data.redis.password"),
		DB:           v.GetInt("data.redis.db"),
		PoolSize:     v.GetInt("data.redis.pool_size"),
		ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
		WriteTimeout: v.GetDuration("data.redis.write_timeout"),
		DialTimeout:  v.GetDuration("data.redis.dial_timeout"),
	}
}
