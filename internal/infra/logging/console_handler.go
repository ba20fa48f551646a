package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset     = "\033[0m"
	ansiRed       = "\033[31m"
	ansiGreen     = "\033[32m"
	ansiYellow    = "\033[33m"
	ansiCyan      = "\033[36m"
	ansiGray      = "\033[90m"
	ansiUnderline = "\033[4m"
)

// consoleMu serializes writes of all console handlers.
//
//nolint:gochecknoglobals
var consoleMu sync.Mutex

//nolint:gochecknoglobals
var levelColors = map[slog.Level]string{
	slog.LevelDebug: ansiCyan,
	slog.LevelInfo:  ansiGreen,
	slog.LevelWarn:  ansiYellow,
	slog.LevelError: ansiRed,
}

// ConsoleHandler renders records as single human-readable lines for local
// development, followed by the calling function on a second line.
type ConsoleHandler struct {
	// Output is the destination, typically os.Stderr
	Output io.Writer
	// Level is the minimum level for records without a package override
	Level slog.Leveler
	// PkgLevels maps logger names to minimum levels. A name also covers its
	// dotted children, so "svc" applies to "svc.usersvc".
	PkgLevels map[string]slog.Level
	// NoColor disables ANSI escapes
	NoColor bool
	// Redact lists attribute keys whose values are masked
	Redact []string

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	attrs = append(attrs, h.attrs...)

	if r.Level < h.minLevel(loggerName(attrs)) {
		return nil
	}

	var b strings.Builder

	b.WriteString(h.color(ansiGray, r.Time.Format("15:04:05.000000")))
	b.WriteString(" " + h.color(levelColors[r.Level], "["+r.Level.String()+"]"))
	b.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		var prefix string
		if len(h.groups) > 0 {
			prefix = strings.Join(h.groups, ".") + "."
		}

		b.WriteString(" " + h.color(ansiGray, "|"))
		h.renderAttrs(&b, newRedactor(h.Redact), prefix, attrs)
	}

	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fn := f.Function[strings.LastIndex(f.Function, string(os.PathSeparator))+1:]

		b.WriteString("\n-> " + h.color(ansiGray, fn+"()"))
		b.WriteString(" in " + h.color(ansiUnderline, f.File+":"+strconv.Itoa(f.Line)))
	}

	b.WriteByte('\n')

	consoleMu.Lock()
	defer consoleMu.Unlock()

	_, err := io.WriteString(h.Output, b.String())

	return err //nolint:wrapcheck
}

// minLevel walks from the full logger name up to the root and returns the
// first configured override, or the handler level when there is none.
func (h *ConsoleHandler) minLevel(name string) slog.Level {
	for name != "" {
		if level, ok := h.PkgLevels[name]; ok {
			return level
		}

		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}

		name = name[:i]
	}

	if level, ok := h.PkgLevels[""]; ok {
		return level
	}

	return h.Level.Level()
}

func (h *ConsoleHandler) renderAttrs(b *strings.Builder, redact redactor, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			h.renderAttrs(b, redact, prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		value := attr.Value.String()
		if redact.match(attr.Key) {
			value = redactedValue
		}

		b.WriteString(" " + prefix + attr.Key + "=" + h.color(ansiGray, value))
	}
}

func (h *ConsoleHandler) color(code, s string) string {
	if h.NoColor || code == "" {
		return s
	}

	return code + s + ansiReset
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	c := *h

	return &c
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	c := h.clone()
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)

	return c
}

func (h *ConsoleHandler) WithGroup(name string) Handler {
	c := h.clone()
	c.groups = append(append([]string(nil), h.groups...), name)

	return c
}

// Enabled only checks the global level. Package overrides are applied in
// Handle because the logger name is an attribute.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if len(h.PkgLevels) > 0 {
		return true
	}

	return h.Level.Level() <= level
}

func loggerName(attrs []slog.Attr) string {
	for _, attr := range attrs {
		if attr.Key == loggerNameKey {
			return attr.Value.String()
		}
	}

	return ""
}
