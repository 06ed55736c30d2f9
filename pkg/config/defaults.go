package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rakshithvk19/rax-ftp-server/internal/bytesize"
)

// Default values applied for settings missing from the config file.
const (
	DefaultBindAddress       = "127.0.0.1"
	DefaultControlPort       = 2121
	DefaultDataPortMin       = 2122
	DefaultDataPortMax       = 2221
	DefaultMinClientPort     = 1024
	DefaultMaxClients        = 10
	DefaultMaxFileSize       = 100 * bytesize.MiB
	DefaultServerRoot        = "/srv/ftp"
	DefaultConnectionTimeout = 30 * time.Second
	DefaultLogLevel          = "INFO"
	DefaultLogFormat         = "text"
	DefaultLogOutput         = "stdout"
	DefaultMetricsPort       = 9090
)

// GetDefaultConfig returns a fully populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in defaults for any zero-valued settings.
func ApplyDefaults(cfg *Config) {
	if cfg.BindAddress == "" {
		cfg.BindAddress = DefaultBindAddress
	}
	if cfg.ControlPort == 0 {
		cfg.ControlPort = DefaultControlPort
	}
	if cfg.DataPortMin == 0 {
		cfg.DataPortMin = DefaultDataPortMin
	}
	if cfg.DataPortMax == 0 {
		cfg.DataPortMax = DefaultDataPortMax
	}
	if cfg.MinClientPort == 0 {
		cfg.MinClientPort = DefaultMinClientPort
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ServerRoot == "" {
		cfg.ServerRoot = DefaultServerRoot
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

// Validate checks struct tags and cross-field constraints. The server
// trusts a validated Config, so everything enforced here is a hard error.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.DataPortMin > cfg.DataPortMax {
		return fmt.Errorf("data_port_min (%d) must not exceed data_port_max (%d)",
			cfg.DataPortMin, cfg.DataPortMax)
	}
	if cfg.ControlPort >= cfg.DataPortMin && cfg.ControlPort <= cfg.DataPortMax {
		return fmt.Errorf("control_port (%d) must not fall within the data port range [%d, %d]",
			cfg.ControlPort, cfg.DataPortMin, cfg.DataPortMax)
	}
	for _, u := range cfg.Users {
		if u.PasswordHash == "" && u.Password == "" {
			return fmt.Errorf("user %q: one of password_hash or password is required", u.Username)
		}
	}
	return nil
}
