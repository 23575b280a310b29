// Package rabbitmq provides a RabbitMQ message driver for lamet/data.
//
// This driver uses amqp091-go (github.com/rabbitmq/amqp091-go). It registers
// itself automatically when imported:
//
//	import _ "github.com/ncobase/lamet/data/rabbitmq"
package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ncobase/lamet/data"
	"github.com/ncobase/lamet/data/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// driver implements data.MessageDriver for RabbitMQ.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return "rabbitmq"
}

// BuildURL returns an AMQP URL. A URL without scheme is treated as host:port
// and completed with the configured credentials and vhost.
func BuildURL(cfg *config.RabbitMQ) (string, error) {
	if cfg.URL == "" {
		return "", fmt.Errorf("rabbitmq: URL is empty")
	}
	if strings.HasPrefix(cfg.URL, "amqp://") || strings.HasPrefix(cfg.URL, "amqps://") {
		return cfg.URL, nil
	}

	u := url.URL{Scheme: "amqp", Host: cfg.URL, Path: "/"}
	if cfg.Username != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	if cfg.Vhost != "" {
		u.Path = "/" + strings.TrimPrefix(cfg.Vhost, "/")
	}
	return u.String(), nil
}

// Connect dials the broker and returns an *amqp.Connection.
func (d *driver) Connect(_ context.Context, cfg any) (any, error) {
	rmqCfg, ok := cfg.(*config.RabbitMQ)
	if !ok {
		return nil, fmt.Errorf("rabbitmq: invalid configuration type, expected *config.RabbitMQ")
	}

	connURL, err := BuildURL(rmqCfg)
	if err != nil {
		return nil, err
	}

	amqpCfg := amqp.Config{Heartbeat: rmqCfg.HeartbeatInterval}
	if rmqCfg.ConnectionTimeout > 0 {
		amqpCfg.Dial = amqp.DefaultDial(rmqCfg.ConnectionTimeout)
	}

	conn, err := amqp.DialConfig(connURL, amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to connect: %w", err)
	}
	return conn, nil
}

// Close terminates the RabbitMQ connection and releases resources.
func (d *driver) Close(conn any) error {
	amqpConn, ok := conn.(*amqp.Connection)
	if !ok {
		return fmt.Errorf("rabbitmq: invalid connection type, expected *amqp.Connection")
	}
	if err := amqpConn.Close(); err != nil {
		return fmt.Errorf("rabbitmq: failed to close connection: %w", err)
	}
	return nil
}

func init() {
	data.RegisterMessageDriver(&driver{})
}
