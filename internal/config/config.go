package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	// Addr is the IRC listen address.
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
	// ServerName prefixes every server-authored message.
	ServerName string `mapstructure:"server_name" yaml:"server_name" validate:"required,hostname_rfc1123"`
	// HTTPAddr enables the admin HTTP server and the WebSocket gateway.
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr" validate:"omitempty,hostname_port"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	// SendQueue is the number of outbound lines buffered per connection.
	SendQueue int `mapstructure:"send_queue" yaml:"send_queue" validate:"min=1"`
	// DatabasePath enables the SQLite session audit log.
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              "127.0.0.1:8080",
		ServerName:        "localhost",
		LogLevel:          "info",
		SendQueue:         256,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ServerName != "" {
		c.ServerName = other.ServerName
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.SendQueue != 0 {
		c.SendQueue = other.SendQueue
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
