// Package logging builds the hclog logger shared by the sbb CLI and client.
package logging

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sbbkit/sbb/internal/config"
)

// Name is the root logger name.
const Name = "sbb"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger writing to stderr and, when cfg.File is set, to a
// rotating log file. The returned closer releases the file. An empty level
// means info.
func New(cfg config.LogConfig, stderr io.Writer) (hclog.Logger, io.Closer, error) {
	level := hclog.Info
	if cfg.Level != "" {
		level = hclog.LevelFromString(cfg.Level)
		if level == hclog.NoLevel {
			return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
		}
	}

	var out io.Writer = stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		}
		out = io.MultiWriter(stderr, file)
		closer = file
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      level,
		Output:     out,
		JSONFormat: cfg.Format == "json",
		Color:      hclog.ColorOff,
	})
	return logger, closer, nil
}
