// =============================================================================
// main.go - sbb CLI Entry Point
// =============================================================================
//
// sbb drives a console running sys-botbase from the shell. One-shot
// subcommands send commands and print the replies; the default action is an
// interactive REPL.
//
// Usage:
//
//	sbb --host 192.168.1.50                     Start the REPL
//	sbb -H 192.168.1.50 exec getTitleID         Send one command
//	sbb -H 192.168.1.50 -o json peek 0x4F3A0 4  Read 4 bytes of heap memory
//	sbb -H 192.168.1.50 poke 0x4F3A0 0x0A000000 Write heap memory
//
// Settings come from ~/.config/sbb/config.yaml, SBB_* environment variables
// and flags, later sources winning.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/sbbkit/sbb/internal/config"
	"github.com/sbbkit/sbb/internal/logging"
	"github.com/sbbkit/sbb/internal/output"
	"github.com/sbbkit/sbb/sbbprotocol"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

const appName = "sbb"

// errCommandFailed signals that a command reported its own error and the
// process should exit non-zero without printing it again.
var errCommandFailed = errors.New("command failed")

func fullTitle() string {
	return fmt.Sprintf("%s v%s (Go)", appName, version)
}

func welcomeBanner(endpoint sbbprotocol.Endpoint) string {
	return fmt.Sprintf(`%s - sys-botbase client
Console: %s
Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), endpoint)
}

// cliApp holds everything built from the configuration for one run.
type cliApp struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg       config.Config
	logger    hclog.Logger
	logCloser io.Closer
	client    *sbbprotocol.Client
	formatter output.Formatter
	metrics   *metricsServer

	teardownOnce sync.Once
}

// newApp builds the urfave/cli application.
func newApp(stdin io.Reader, stdout, stderr io.Writer) (*cli.App, *cliApp) {
	a := &cliApp{stdin: stdin, stdout: stdout, stderr: stderr}

	app := &cli.App{
		Name:        appName,
		Usage:       "talk to a console running sys-botbase",
		Version:     version,
		HideVersion: true,
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags:       globalFlags(),
		Action:      a.replAction,
		After:       a.after,
		Commands: []*cli.Command{
			a.execCommand(),
			a.peekCommand(),
			a.pokeCommand(),
			a.replCommand(),
			versionCommand(),
		},
		// Errors are reported by main so tests never hit os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app, a
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.config/sbb/config.yaml)",
			EnvVars: []string{"SBB_CONFIG"},
		},
		&cli.StringFlag{Name: "host", Aliases: []string{"H"}, Usage: "console address"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "sys-botbase port (default 6000)"},
		&cli.DurationFlag{Name: "timeout", Usage: "per-command timeout (default 1s)"},
		&cli.DurationFlag{Name: "dial-timeout", Usage: "connect timeout (default 5s)"},
		&cli.BoolFlag{Name: "debug", Usage: "ask the console for debug result codes"},
		&cli.BoolFlag{Name: "echo", Usage: "use command echo to frame replies (default true)"},
		&cli.StringSliceFlag{Name: "init", Usage: "extra command sent on every connect (repeatable)"},
		&cli.Float64Flag{Name: "rate", Usage: "maximum commands per second (0 = unlimited)"},
		&cli.IntFlag{Name: "burst", Usage: "commands allowed back to back under --rate"},
		&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		&cli.StringFlag{Name: "log-file", Usage: "also write logs to this rotating file"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "text, json or yaml"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
	}
}

// flagOverrides maps the flags the user actually set onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	set := func(flag, key string, value any) {
		if c.IsSet(flag) {
			overrides[key] = value
		}
	}

	set("host", "host", c.String("host"))
	set("port", "port", c.Int("port"))
	set("timeout", "timeout", c.Duration("timeout"))
	set("dial-timeout", "dialtimeout", c.Duration("dial-timeout"))
	set("debug", "debug", c.Bool("debug"))
	set("echo", "echo", c.Bool("echo"))
	set("init", "init", c.StringSlice("init"))
	set("rate", "rate", c.Float64("rate"))
	set("burst", "burst", c.Int("burst"))
	set("log-level", "log.level", c.String("log-level"))
	set("log-file", "log.file", c.String("log-file"))
	set("output", "output", c.String("output"))
	set("metrics-addr", "metrics.address", c.String("metrics-addr"))
	return overrides
}

// setup loads the configuration and builds the logger, metrics and client.
// It runs before every command that talks to the console.
func (a *cliApp) setup(c *cli.Context) error {
	if a.client != nil {
		return nil
	}

	cfg, err := config.Load(
		config.WithConfigFile(c.String("config")),
		config.WithOverrides(flagOverrides(c)),
	)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	reg := prometheus.NewRegistry()
	metrics := sbbprotocol.NewMetrics(reg)
	if cfg.Metrics.Address != "" {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srv, err := startMetricsServer(cfg.Metrics.Address, cfg.Metrics.Path, reg, logger)
		if err != nil {
			return err
		}
		a.metrics = srv
	}

	opts := append(cfg.ClientOptions(),
		sbbprotocol.WithLogger(logger),
		sbbprotocol.WithMetrics(metrics),
	)
	a.client = sbbprotocol.NewClient(cfg.Host, opts...)

	a.formatter = output.NewFormatter(output.Format(cfg.Output))
	if tf, ok := a.formatter.(*output.TextFormatter); ok {
		tf.Errors = a.stderr
	}

	logger.Debug("configured", "endpoint", a.client.Endpoint().String(), "echo", cfg.Echo, "output", cfg.Output)
	return nil
}

func (a *cliApp) after(*cli.Context) error {
	a.teardown()
	return nil
}

// teardown disconnects and releases everything setup built. Safe to call
// from the signal handler and from After.
func (a *cliApp) teardown() {
	a.teardownOnce.Do(func() {
		if a.client != nil {
			if err := a.client.Disconnect(); err != nil {
				a.logger.Warn("disconnect failed", "error", err)
			}
		}
		if a.metrics != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := a.metrics.Shutdown(ctx); err != nil {
				a.logger.Warn("metrics server shutdown failed", "error", err)
			}
		}
		if a.logCloser != nil {
			if err := a.logCloser.Close(); err != nil {
				a.logger.Warn("closing log file failed", "error", err)
			}
		}
	})
}

// render writes results with the configured formatter and reports failure.
func (a *cliApp) render(results []output.Result) error {
	if err := a.formatter.Format(a.stdout, results); err != nil {
		return err
	}
	if output.Failed(results) {
		return errCommandFailed
	}
	return nil
}

// setupSignalHandler runs cleanup and exits on SIGINT or SIGTERM.
func setupSignalHandler(cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println()
		cleanup()
		os.Exit(130)
	}()
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

func main() {
	app, state := newApp(os.Stdin, os.Stdout, os.Stderr)
	setupSignalHandler(state.teardown)

	if err := app.Run(os.Args); err != nil {
		if !errors.Is(err, errCommandFailed) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}
