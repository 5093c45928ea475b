package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// FieldError is a single configuration problem.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found so startup can report them
// all at once.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):", len(e))
	for i, fe := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, fe.Error())
	}
	return sb.String()
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) addError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

func (v *validator) hasErrors() bool {
	return len(v.errs) > 0
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.addError(field, "is required")
	}
}

func (v *validator) addr(field, value string) {
	if value == "" {
		return
	}
	_, portStr, err := net.SplitHostPort(value)
	if err != nil {
		v.addError(field, "must be host:port or :port")
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		v.addError(field, "port must be between 1 and 65535")
	}
}

func (v *validator) databaseURL(field, value string) {
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.addError(field, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		v.addError(field, "must use the postgres:// or postgresql:// scheme")
	}
}

func (v *validator) enum(field, value string, allowed ...string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.addError(field, fmt.Sprintf("must be one of: %s (got: %q)", strings.Join(allowed, ", "), value))
}

func (v *validator) positive(field string, n int64) {
	if n <= 0 {
		v.addError(field, "must be positive")
	}
}

func (v *validator) between(field string, n, lo, hi int) {
	if n < lo || n > hi {
		v.addError(field, fmt.Sprintf("must be between %d and %d (got %d)", lo, hi, n))
	}
}

// Validate checks the whole configuration and returns ValidationErrors
// when anything is wrong.
func (c Config) Validate() error {
	v := &validator{}

	v.required("server.addr", c.Server.Addr)
	v.addr("server.addr", c.Server.Addr)
	v.positive("server.read_header_timeout", int64(c.Server.ReadHeaderTimeout))
	v.positive("server.read_timeout", int64(c.Server.ReadTimeout))
	v.positive("server.write_timeout", int64(c.Server.WriteTimeout))
	v.positive("server.idle_timeout", int64(c.Server.IdleTimeout))
	v.positive("server.shutdown_timeout", int64(c.Server.ShutdownTimeout))
	v.positive("server.max_body_bytes", c.Server.MaxBodyBytes)

	v.required("database.url", c.Database.URL)
	v.databaseURL("database.url", c.Database.URL)
	v.positive("database.max_open_conns", int64(c.Database.MaxOpenConns))
	if c.Database.MaxIdleConns < 0 {
		v.addError("database.max_idle_conns", "must not be negative")
	}
	v.positive("database.conn_max_lifetime", int64(c.Database.ConnMaxLifetime))

	if c.Storage.Enabled() {
		v.required("storage.access_key", c.Storage.AccessKey)
		v.required("storage.secret_key", c.Storage.SecretKey)
		v.required("storage.bucket", c.Storage.Bucket)
	}

	// bcrypt.MinCost and bcrypt.MaxCost.
	v.between("auth.bcrypt_cost", c.Auth.BcryptCost, 4, 31)
	v.positive("auth.login_rate_limit", int64(c.Auth.LoginRateLimit))
	v.positive("auth.login_rate_window", int64(c.Auth.LoginRateWindow))
	v.positive("auth.lockout_attempts", int64(c.Auth.LockoutAttempts))
	v.positive("auth.lockout_duration", int64(c.Auth.LockoutDuration))
	v.positive("auth.lockout_window", int64(c.Auth.LockoutWindow))

	v.enum("log.level", c.Log.Level, "debug", "info", "warn", "error")
	v.enum("log.format", c.Log.Format, "json", "console")

	if v.hasErrors() {
		return v.errs
	}
	return nil
}
