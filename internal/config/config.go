// Package config loads sbb settings from defaults, a YAML file, SBB_*
// environment variables and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/sbbkit/sbb/sbbprotocol"
)

// Output formats accepted by Config.Output.
var outputFormats = []string{"text", "json", "yaml"}

// Config is the full sbb configuration.
type Config struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	DialTimeout time.Duration `koanf:"dialtimeout"`
	Debug       bool          `koanf:"debug"`

	// Echo is on by default so that commands without a reply (click,
	// poke, ...) still complete.
	Echo bool     `koanf:"echo"`
	Init []string `koanf:"init"`

	// Rate caps commands per second; zero disables pacing.
	Rate  float64 `koanf:"rate"`
	Burst int     `koanf:"burst"`

	History string        `koanf:"history"`
	Output  string        `koanf:"output"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// LogConfig controls the hclog logger and its optional rotating file.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSize    int    `koanf:"maxsize"`
	MaxBackups int    `koanf:"maxbackups"`
	MaxAge     int    `koanf:"maxage"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Address
// disables it.
type MetricsConfig struct {
	Address string `koanf:"address"`
	Path    string `koanf:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:        sbbprotocol.DefaultPort,
		Timeout:     sbbprotocol.CommandTimeout,
		DialTimeout: sbbprotocol.DialTimeout,
		Echo:        true,
		Burst:       1,
		History:     filepath.Join(homeDir(), ".sbb_history"),
		Output:      "text",
		Log: LogConfig{
			Level:      "warn",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// DefaultPath returns ~/.config/sbb/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".config", "sbb", "config.yaml")
}

// Validate checks that the configuration can be used to build a client.
func (c Config) Validate() error {
	var errs []error

	if err := c.Endpoint().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dial timeout must be positive, got %s", c.DialTimeout))
	}
	if c.Rate < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %v", c.Rate))
	}
	if !validOutput(c.Output) {
		errs = append(errs, fmt.Errorf("unknown output format %q (want %s)", c.Output, strings.Join(outputFormats, ", ")))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Endpoint returns the console address described by the configuration.
func (c Config) Endpoint() sbbprotocol.Endpoint {
	return sbbprotocol.Endpoint{Host: c.Host, Port: c.Port}
}

// ClientOptions translates the configuration into client options. Logger
// and metrics are wired by the caller.
func (c Config) ClientOptions() []sbbprotocol.Option {
	opts := []sbbprotocol.Option{
		sbbprotocol.WithPort(c.Port),
		sbbprotocol.WithCommandTimeout(c.Timeout),
		sbbprotocol.WithDialTimeout(c.DialTimeout),
		sbbprotocol.WithDebug(c.Debug),
		sbbprotocol.WithEchoCommands(c.Echo),
	}
	if len(c.Init) > 0 {
		opts = append(opts, sbbprotocol.WithInitCommands(c.Init...))
	}
	if limiter := c.Limiter(); limiter != nil {
		opts = append(opts, sbbprotocol.WithRateLimiter(limiter))
	}
	return opts
}

// Limiter returns the command pacing limiter, or nil when Rate is zero.
func (c Config) Limiter() *rate.Limiter {
	if c.Rate <= 0 {
		return nil
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.Rate), burst)
}

func validOutput(format string) bool {
	for _, f := range outputFormats {
		if f == format {
			return true
		}
	}
	return false
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
