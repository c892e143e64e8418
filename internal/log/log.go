// Package log builds the slog logger used by every zonescript component.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	// LevelNone is above every level that is ever logged.
	LevelNone = slog.Level(16)
)

// ParseLevel accepts trace, debug, info, warn, error and none in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "none", "off":
		return LevelNone, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

type Options struct {
	Level  string
	Format string
	// File, when set, receives the log instead of the fallback writer and
	// is reopened on SIGHUP.
	File string
}

// Logger owns the output of a slog.Logger.
type Logger struct {
	*slog.Logger
	file    *reopenFile
	signals chan os.Signal
}

// New builds a logger writing to opts.File or, without one, to fallback.
func New(opts Options, fallback io.Writer) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	out := fallback
	if opts.File != "" {
		l.file, err = openFile(opts.File)
		if err != nil {
			return nil, err
		}
		out = l.file
		l.watchSignals()
	}

	handlerOptions := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOptions)
	} else {
		handler = slog.NewTextHandler(out, handlerOptions)
	}

	l.Logger = slog.New(handler)
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelNone}))
}

// Reopen reopens the log file after it was rotated away.
func (l *Logger) Reopen() error {
	if l.file == nil {
		return nil
	}
	return l.file.reopen()
}

func (l *Logger) Close() error {
	if l.signals != nil {
		signal.Stop(l.signals)
		close(l.signals)
		l.signals = nil
	}
	if l.file == nil {
		return nil
	}
	return l.file.close()
}

// watchSignals reopens the file on SIGHUP:
//
//	mv zonescript.log zonescript.log.1 && kill -HUP <pid>
func (l *Logger) watchSignals() {
	l.signals = make(chan os.Signal, 1)
	signal.Notify(l.signals, syscall.SIGHUP)
	go func(sigs <-chan os.Signal, file *reopenFile) {
		for range sigs {
			if err := file.reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
			}
		}
	}(l.signals, l.file)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

type reopenFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openFile(path string) (*reopenFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &reopenFile{path: path, f: f}, nil
}

func (r *reopenFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, os.ErrClosed
	}
	return r.f.Write(p)
}

func (r *reopenFile) reopen() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	r.mu.Lock()
	old := r.f
	r.f = f
	r.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

func (r *reopenFile) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
