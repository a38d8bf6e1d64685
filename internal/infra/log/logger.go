package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"threads/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Config    *config.Config
	Lifecycle fx.Lifecycle `optional:"true"`
}

// New creates and initializes slog.Logger.
// When env.log.file is set, records are also written to a rotating file.
func New(params Params) (*slog.Logger, error) {
	level, err := parseLogLevel(params.Config.Env.Log.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if fileCfg := params.Config.Env.Log.File; fileCfg != nil && fileCfg.Path != "" {
		rotator := newRotator(fileCfg)
		out = io.MultiWriter(os.Stdout, rotator)

		if params.Lifecycle != nil {
			params.Lifecycle.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return rotator.Close()
				},
			})
		}
	}

	logger := slog.New(newHandler(out, level, params.Config.Env.Log.Pretty))
	if name := params.Config.Env.ServiceName; name != "" {
		logger = logger.With(slog.String("service", name))
	}

	return logger, nil
}

func newHandler(out io.Writer, level slog.Level, pretty bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if pretty {
		return slog.NewTextHandler(out, opts)
	}

	return slog.NewJSONHandler(out, opts)
}

func newRotator(cfg *config.LogFile) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}
