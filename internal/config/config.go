package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Environment   string              `koanf:"environment"`
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Auth          AuthConfig          `koanf:"auth"`
	KV            KVConfig            `koanf:"kv"`
	Storage       StorageConfig       `koanf:"storage"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Logging       LoggingConfig       `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimit requests per RateWindow, per client IP, on the public auth routes.
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"max_conns"`
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode, d.MaxConns)
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

type KVConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

type StorageConfig struct {
	Bucket            string        `koanf:"bucket"`
	Region            string        `koanf:"region"`
	Endpoint          string        `koanf:"endpoint"`
	PresignTTL        time.Duration `koanf:"presign_ttl"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes"`
	DefaultProfileKey string        `koanf:"default_profile_key"`
	// ProfilePresets is how many stock pictures exist under profileImg/{n}.png.
	ProfilePresets int `koanf:"profile_presets"`
}

type NotificationsConfig struct {
	Interval        time.Duration `koanf:"interval"`
	Concurrency     int           `koanf:"concurrency"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	PageSize        int           `koanf:"page_size"`
	StreamBuffer    int           `koanf:"stream_buffer"`
	KeepAlive       time.Duration `koanf:"keepalive"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const maxPresignTTL = 7 * 24 * time.Hour

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if c.Environment == EnvProduction && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters in production"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth token lifetimes must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if c.Notifications.Interval <= 0 {
		errs = append(errs, errors.New("notifications.interval must be positive"))
	}
	if c.Notifications.Concurrency <= 0 {
		errs = append(errs, errors.New("notifications.concurrency must be positive"))
	}
	if c.Notifications.PageSize <= 0 {
		errs = append(errs, errors.New("notifications.page_size must be positive"))
	}

	if c.Storage.ProfilePresets < 0 {
		errs = append(errs, errors.New("storage.profile_presets must not be negative"))
	}
	if c.Storage.PresignTTL <= 0 || c.Storage.PresignTTL > maxPresignTTL {
		errs = append(errs, fmt.Errorf("storage.presign_ttl must be in (0, %s]", maxPresignTTL))
	}

	return errors.Join(errs...)
}
