// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package config defines the StoryBoard configuration model and its koanf
// based loader. Settings merge from three layers, later layers winning:
// built-in defaults, an optional YAML file, STORYBOARD_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration shared by the API server, the event
// worker daemon and the scheduler.
type Config struct {
	API           APIConfig           `koanf:"api"`
	CORS          CORSConfig          `koanf:"cors"`
	Database      DatabaseConfig      `koanf:"database"`
	Notifications NotificationsConfig `koanf:"notifications"`
	TokenCleaner  TokenCleanerConfig  `koanf:"plugin_token_cleaner"`
	Logging       LoggingConfig       `koanf:"logging"`

	// WorkerCount is the number of event worker subscribers the daemon
	// supervises.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`
}

// APIConfig covers the HTTP surface of the API server.
type APIConfig struct {
	BindHost string `koanf:"bind_host"`
	BindPort int    `koanf:"bind_port" validate:"gte=1,lte=65535"`

	// EnableNotifications turns the notification hook on. With it off,
	// mutations still commit but no events reach the bus.
	EnableNotifications bool `koanf:"enable_notifications"`

	// EnableEditableComments allows comment PUTs; edits are journaled to
	// the comment history table.
	EnableEditableComments bool `koanf:"enable_editable_comments"`
}

// CORSConfig mirrors the allowed-origins contract of the original service.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	MaxAge         int      `koanf:"max_age"`
}

// DatabaseConfig selects and tunes the SQL backend.
type DatabaseConfig struct {
	// Driver is sqlite3 or mysql.
	Driver string `koanf:"driver" validate:"oneof=sqlite3 mysql"`

	// Connection is the driver-specific DSN.
	Connection string `koanf:"connection" validate:"required"`

	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
}

// NotificationsConfig selects and tunes the event bus driver.
type NotificationsConfig struct {
	// Driver is nats or channel. The channel driver is in-process and is
	// what tests and single-binary deployments use.
	Driver string `koanf:"driver" validate:"oneof=nats channel"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig configures the broker driver.
type NATSConfig struct {
	URL string `koanf:"url"`

	// ExchangeName is kept from the original deployment vocabulary; it
	// becomes the stream name and the first subject token.
	ExchangeName string `koanf:"exchange_name"`

	// EventQueueName names the durable consumer workers share.
	EventQueueName string `koanf:"event_queue_name"`

	ConnectionAttempts int           `koanf:"connection_attempts" validate:"gte=1"`
	RetryDelay         time.Duration `koanf:"retry_delay"`
}

// TokenCleanerConfig gates the scheduled OAuth token purge.
type TokenCleanerConfig struct {
	Enable bool `koanf:"enable"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in defaults, the first koanf layer.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BindHost:               "0.0.0.0",
			BindPort:               8080,
			EnableNotifications:    true,
			EnableEditableComments: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{},
			MaxAge:         3600,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			Connection:   "storyboard.sqlite",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Notifications: NotificationsConfig{
			Driver: "nats",
			NATS: NATSConfig{
				URL:                "nats://127.0.0.1:4222",
				ExchangeName:       "storyboard",
				EventQueueName:     "storyboard_events",
				ConnectionAttempts: 6,
				RetryDelay:         10 * time.Second,
			},
		},
		TokenCleaner: TokenCleanerConfig{
			Enable: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WorkerCount: 5,
	}
}

// BindAddr returns the host:port string for the HTTP listener.
func (c *Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.API.BindHost, c.API.BindPort)
}

// Validate checks the configuration after all layers merged.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
