package config

import (
	"github.com/spf13/viper"
)

// Config data config struct
type Config struct {
	Database *DBNode   `yaml:"database" json:"database"`
	Redis    *Redis    `yaml:"redis" json:"redis"`
	MongoDB  *MongoDB  `yaml:"mongodb" json:"mongodb"`
	Kafka    *Kafka    `yaml:"kafka" json:"kafka"`
	RabbitMQ *RabbitMQ `yaml:"rabbitmq" json:"rabbitmq"`
}

// GetConfig returns data config
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		Database: getDatabaseConfig(v),
		Redis:    getRedisConfigs(v),
		MongoDB:  getMongoDBConfigs(v),
		Kafka:    getKafkaConfigs(v),
		RabbitMQ: getRabbitMQConfigs(v),
	}
}
