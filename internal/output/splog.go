package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables read by NewSplogFromEnv
const (
	EnvLogFile       = "STACKGRAPH_LOG_FILE"
	EnvLogMaxSize    = "STACKGRAPH_LOG_MAX_SIZE"
	EnvLogMaxBackups = "STACKGRAPH_LOG_MAX_BACKUPS"
	EnvLogMaxAge     = "STACKGRAPH_LOG_MAX_AGE"
	EnvDebug         = "DEBUG"
)

// LogFilePath returns the log file from the environment, falling back to
// fallback (usually from the repository config). Empty disables file logs.
func LogFilePath(fallback string) string {
	if p := os.Getenv(EnvLogFile); p != "" {
		return p
	}
	return fallback
}

// consoleHandler prints bare messages: no timestamps, levels or attributes.
type consoleHandler struct {
	writer io.Writer
	debug  bool
	quiet  *bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level < slog.LevelInfo {
		return h.debug
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if *h.quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// fanout sends records to every handler that accepts them
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

func rotatingFile(path string) *lumberjack.Logger {
	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     30,
	}
	if n, err := strconv.Atoi(os.Getenv(EnvLogMaxSize)); err == nil && n > 0 {
		l.MaxSize = n
	}
	if n, err := strconv.Atoi(os.Getenv(EnvLogMaxBackups)); err == nil && n >= 0 {
		l.MaxBackups = n
	}
	if n, err := strconv.Atoi(os.Getenv(EnvLogMaxAge)); err == nil && n > 0 {
		l.MaxAge = n
	}
	return l
}

// Splog writes user-facing messages to the console and, optionally, a
// rotating log file. Logger exposes the same sinks for structured logging.
type Splog struct {
	logger  *slog.Logger
	writer  io.Writer
	logFile io.WriteCloser
	quiet   bool
}

// NewSplog creates a console-only splog writing to w.
func NewSplog(w io.Writer) *Splog {
	s, _ := NewSplogWithFile(w, "")
	return s
}

// NewSplogWithFile creates a splog that also logs everything, debug
// included, to logFile.
func NewSplogWithFile(w io.Writer, logFile string) (*Splog, error) {
	s := &Splog{writer: w}
	handlers := fanout{&consoleHandler{
		writer: w,
		debug:  os.Getenv(EnvDebug) != "",
		quiet:  &s.quiet,
	}}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := rotatingFile(logFile)
		s.logFile = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
				}
				return a
			},
		}))
	}

	s.logger = slog.New(handlers)
	return s, nil
}

// Logger returns a structured logger backed by the splog's sinks
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

// SetQuiet suppresses console output
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

func (s *Splog) log(level slog.Level, prefix, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
func (s *Splog) Info(format string, args ...any) {
	s.log(slog.LevelInfo, "", format, args)
}

// Warn writes a warning message
func (s *Splog) Warn(format string, args ...any) {
	s.log(slog.LevelWarn, "⚠️  ", format, args)
}

// Error writes an error message
func (s *Splog) Error(format string, args ...any) {
	s.log(slog.LevelError, "❌ ", format, args)
}

// Debug writes a message shown only when DEBUG is set
func (s *Splog) Debug(format string, args ...any) {
	s.log(slog.LevelDebug, "", format, args)
}

// Tip writes a hint
func (s *Splog) Tip(format string, args ...any) {
	s.log(slog.LevelInfo, "💡 ", format, args)
}

// Page writes content verbatim
func (s *Splog) Page(content string) {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprint(s.writer, content)
}

// Newline writes an empty line
func (s *Splog) Newline() {
	s.Page("\n")
}

// Close closes the log file, if any
func (s *Splog) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}
