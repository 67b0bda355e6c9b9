package sbbprotocol

import (
	"context"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"
)

// Dialer opens the transport connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientOptions holds the tunables of a Client.
type ClientOptions struct {
	Port              int
	DialTimeout       time.Duration
	CommandTimeout    time.Duration
	MaxResponseLength int
	KeepAlive         bool

	// Debug asks the console for verbose result codes on connect.
	Debug bool
	// EchoCommands turns on command echo and echo-terminated reply framing.
	EchoCommands bool
	// InitCommands are sent after the configure commands on every connect.
	InitCommands []string

	Logger  hclog.Logger
	Limiter *rate.Limiter
	Metrics *Metrics
	Dialer  Dialer
}

// DefaultClientOptions returns the options used when none are given.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Port:              DefaultPort,
		DialTimeout:       DialTimeout,
		CommandTimeout:    CommandTimeout,
		MaxResponseLength: MaxResponseLength,
		KeepAlive:         true,
		Logger:            hclog.NewNullLogger(),
	}
}

// Option configures a Client.
type Option func(*ClientOptions)

// WithPort overrides the default port, for firmware rebuilt on another one.
func WithPort(port int) Option {
	return func(opts *ClientOptions) {
		opts.Port = port
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.DialTimeout = timeout
	}
}

// WithCommandTimeout bounds each exchange. A context deadline that expires
// earlier wins.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.CommandTimeout = timeout
	}
}

func WithMaxResponseLength(n int) Option {
	return func(opts *ClientOptions) {
		opts.MaxResponseLength = n
	}
}

func WithKeepAlive(keepAlive bool) Option {
	return func(opts *ClientOptions) {
		opts.KeepAlive = keepAlive
	}
}

func WithDebug(debug bool) Option {
	return func(opts *ClientOptions) {
		opts.Debug = debug
	}
}

func WithEchoCommands(echo bool) Option {
	return func(opts *ClientOptions) {
		opts.EchoCommands = echo
	}
}

// WithInitCommands appends commands to the connect-time init sequence,
// e.g. "detachController".
func WithInitCommands(commands ...string) Option {
	return func(opts *ClientOptions) {
		opts.InitCommands = append(opts.InitCommands, commands...)
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(opts *ClientOptions) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}

// WithRateLimiter paces command writes. Init commands are paced too.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(opts *ClientOptions) {
		opts.Limiter = limiter
	}
}

func WithMetrics(m *Metrics) Option {
	return func(opts *ClientOptions) {
		opts.Metrics = m
	}
}

func WithDialer(d Dialer) Option {
	return func(opts *ClientOptions) {
		opts.Dialer = d
	}
}
