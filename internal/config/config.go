// Package config loads sharebox configuration from defaults, an optional
// YAML file and SHAREBOX_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "SHAREBOX_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	CORSOrigins       []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StorageConfig points at an S3-compatible bucket for file bodies.
// An empty Endpoint keeps bodies in the database.
type StorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	UseSSL       bool   `yaml:"use_ssl"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

type AuthConfig struct {
	BcryptCost      int           `yaml:"bcrypt_cost"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
	LockoutAttempts int           `yaml:"lockout_attempts"`
	LockoutDuration time.Duration `yaml:"lockout_duration"`
	LockoutWindow   time.Duration `yaml:"lockout_window"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":4000",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      50 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Bucket: "sharebox",
		},
		Auth: AuthConfig{
			BcryptCost:      12,
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
			LockoutAttempts: 5,
			LockoutDuration: 15 * time.Minute,
			LockoutWindow:   10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	v := &validator{}
	applyEnv(&cfg, v)
	if v.hasErrors() {
		return Config{}, v.errs
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
// Malformed numbers and durations are recorded on v.
func applyEnv(cfg *Config, v *validator) {
	envString(&cfg.Server.Addr, "ADDR")
	envDuration(v, &cfg.Server.ReadHeaderTimeout, "READ_HEADER_TIMEOUT")
	envDuration(v, &cfg.Server.ReadTimeout, "READ_TIMEOUT")
	envDuration(v, &cfg.Server.WriteTimeout, "WRITE_TIMEOUT")
	envDuration(v, &cfg.Server.IdleTimeout, "IDLE_TIMEOUT")
	envDuration(v, &cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	envInt64(v, &cfg.Server.MaxBodyBytes, "MAX_BODY_BYTES")
	if raw, ok := lookup("CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitList(raw)
	}

	// DATABASE_URL is honoured for compatibility with hosting platforms;
	// the prefixed form wins when both are present.
	if raw, ok := os.LookupEnv("DATABASE_URL"); ok && raw != "" {
		cfg.Database.URL = raw
	}
	envString(&cfg.Database.URL, "DATABASE_URL")
	envInt(v, &cfg.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	envInt(v, &cfg.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")
	envDuration(v, &cfg.Database.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME")

	envString(&cfg.Storage.Endpoint, "MINIO_ENDPOINT")
	envString(&cfg.Storage.AccessKey, "MINIO_ACCESS_KEY")
	envString(&cfg.Storage.SecretKey, "MINIO_SECRET_KEY")
	envString(&cfg.Storage.Bucket, "MINIO_BUCKET")
	envBool(v, &cfg.Storage.UseSSL, "MINIO_USE_SSL")
	envBool(v, &cfg.Storage.CreateBucket, "MINIO_CREATE_BUCKET")

	envInt(v, &cfg.Auth.BcryptCost, "BCRYPT_COST")
	envInt(v, &cfg.Auth.LoginRateLimit, "LOGIN_RATE_LIMIT")
	envDuration(v, &cfg.Auth.LoginRateWindow, "LOGIN_RATE_WINDOW")
	envInt(v, &cfg.Auth.LockoutAttempts, "LOCKOUT_ATTEMPTS")
	envDuration(v, &cfg.Auth.LockoutDuration, "LOCKOUT_DURATION")
	envDuration(v, &cfg.Auth.LockoutWindow, "LOCKOUT_WINDOW")

	envString(&cfg.Log.Level, "LOG_LEVEL")
	envString(&cfg.Log.Format, "LOG_FORMAT")
}

func lookup(key string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

func envString(dst *string, key string) {
	if raw, ok := lookup(key); ok {
		*dst = raw
	}
}

func envInt(v *validator, dst *int, key string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.addError(envPrefix+key, "must be a valid integer")
		return
	}
	*dst = n
}

func envInt64(v *validator, dst *int64, key string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		v.addError(envPrefix+key, "must be a valid integer")
		return
	}
	*dst = n
}

func envBool(v *validator, dst *bool, key string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		v.addError(envPrefix+key, "must be true or false")
		return
	}
	*dst = b
}

func envDuration(v *validator, dst *time.Duration, key string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		v.addError(envPrefix+key, "must be a duration such as 30s or 5m")
		return
	}
	*dst = d
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
