package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// loggerNameKey carries the name passed to GetLogger. Package level overrides
// are matched against it.
const loggerNameKey = "logger"

type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

//nolint:gochecknoglobals
var Group = slog.Group

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// Output is "stdout", "stderr", "discard" or a file path
	Output string `env:"OUTPUT" default:"stderr"`

	// Level is the minimum level ("debug", "info", "warn", "error")
	Level string `env:"LEVEL" default:"info"`

	// Filter overrides the level per logger name ("svc.usersvc:debug,infra:warn")
	Filter string `env:"FILTER" default:""`

	// JSON switches from console lines to one JSON object per record
	JSON bool `env:"JSON" default:"false"`

	// NoColor disables ANSI escapes in console output
	NoColor bool `env:"NO_COLOR" default:"false"`

	// Redact lists attribute keys whose values are masked, matched case-insensitively
	Redact []string `env:"REDACT" default:"password,token,secret,authorization,cookie"`
}

// state is the process wide logging setup installed by Configure.
type state struct {
	cfg    LoggerConfig
	app    string
	output io.Writer
	level  *slog.LevelVar
	pkgs   map[string]slog.Level
	redact redactor
}

//nolint:gochecknoglobals
var (
	current   *state
	currentMu sync.RWMutex
)

// Configure installs cfg for all loggers created afterwards. Until it is called
// GetLogger hands out loggers that discard everything. An unusable output path
// panics since the process cannot report anything without it.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	output, err := openOutput(cfg.Output)
	if err != nil {
		panic(err)
	}

	s := &state{
		cfg:    cfg,
		app:    appName,
		output: output,
		level:  new(slog.LevelVar),
		pkgs:   parsePkgLevels(cfg.Filter),
		redact: newRedactor(cfg.Redact),
	}
	s.level.Set(parseLogLevel(cfg.Level, LevelInfo))

	currentMu.Lock()
	current = s
	currentMu.Unlock()

	slog.SetLogLoggerLevel(s.level.Level())

	GetLogger("infra.logging").DebugContext(ctx, "logging configured", Group("config",
		"app", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
	))
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "discard":
		return io.Discard, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// GetLogger returns a logger tagged with name. Names are dotted paths such as
// "svc.usersvc" so filters can address whole subtrees.
func GetLogger(name string) Logger {
	currentMu.RLock()
	s := current
	currentMu.RUnlock()

	if s == nil || s.output == io.Discard {
		return NewNopLogger()
	}

	logger := slog.New(NewContextHandler(s.handler()))
	if s.app != "" {
		logger = logger.With("app", s.app)
	}

	return logger.With(loggerNameKey, name)
}

func (s *state) handler() slog.Handler {
	if s.cfg.JSON {
		//nolint:exhaustruct
		return slog.NewJSONHandler(s.output, &slog.HandlerOptions{
			AddSource:   true,
			Level:       s.level,
			ReplaceAttr: s.redact.replaceAttr,
		})
	}

	//nolint:exhaustruct
	return &ConsoleHandler{
		Output:    s.output,
		Level:     s.level,
		PkgLevels: s.pkgs,
		NoColor:   s.cfg.NoColor,
		Redact:    s.cfg.Redact,
	}
}

// GetLogLogger adapts logger for APIs that want a *log.Logger, such as
// http.Server.ErrorLog.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

// parsePkgLevels reads "name:level" pairs. Malformed pairs are skipped.
func parsePkgLevels(filter string) map[string]slog.Level {
	levels := make(map[string]slog.Level)

	for _, pair := range strings.Split(filter, ",") {
		name, level, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}

		levels[strings.TrimSpace(name)] = parseLogLevel(level, LevelDebug)
	}

	return levels
}

func parseLogLevel(s string, fallback Level) Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fallback
	}

	return level
}
