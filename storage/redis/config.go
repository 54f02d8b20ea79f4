package redis

import (
	"fmt"
	"time"

	"github.com/vgavro/requests-client/storage"
)

// Config holds Redis-specific configuration options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string `koanf:"host" validate:"required"`

	// Port is the Redis server port (default: 6379).
	Port int `koanf:"port"`

	// Password for Redis authentication (optional).
	Password string `koanf:"password"`

	// Database number to use (default: 0). Redis supports 0-15 by default.
	Database int `koanf:"database"`

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int `koanf:"pool_size"`

	// DialTimeout is the timeout for establishing new connections (default: 5s).
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads (default: 3s). -1 disables it.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the timeout for socket writes (default: 3s). -1 disables it.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// TTL is applied to every stored key. Zero keeps state forever.
	TTL time.Duration `koanf:"ttl"`
}

// withDefaults fills zero fields with production defaults.
func (c *Config) withDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate performs fail-fast validation of the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return storage.NewConfigError("redis.host", "host is required", nil)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return storage.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port), nil)
	}

	if c.Database < 0 || c.Database > 15 {
		return storage.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database), nil)
	}

	if c.TTL < 0 {
		return storage.NewConfigError("redis.ttl", "ttl cannot be negative", nil)
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
