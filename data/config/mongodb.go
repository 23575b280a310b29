package config

import (
	"time"

	"github.com/spf13/viper"
)

// MongoDB mongodb config struct
type MongoDB struct {
	URI            string        `json:"uri" yaml:"uri"`
	Database       string        `json:"database" yaml:"database"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

const defaultMongoDatabase = "lamet"

// getMongoDBConfigs reads MongoDB configurations
func getMongoDBConfigs(v *viper.Viper) *MongoDB {
	c := &MongoDB{
		URI:            v.GetString("data.mongodb.uri"),
		Database:       v.GetString("data.mongodb.database"),
		ConnectTimeout: v.GetDuration("data.mongodb.connect_timeout"),
	}
	if c.Database == "" {
		c.Database = defaultMongoDatabase
	}
	return c
}
