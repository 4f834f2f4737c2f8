// Package logger builds the process-wide slog.Logger. Logs go to stdout by
// default, or to a size-rotated file when a path is configured:
//
//	LOG_FILE=/var/log/mc-webhooks/system.log (rotated at 50 MB, 5 backups kept)
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how logs are written.
type Options struct {
	Level  slog.Level
	Format string // json (default) or text
	File   string // empty writes to stdout

	// Mirror, when set, also receives every record at or above Level.
	Mirror slog.Handler
}

// New creates a slog.Logger for the given options. When File is set its
// directory is created if it does not exist.
func New(opts Options) (*slog.Logger, error) {
	w, err := output(opts.File)
	if err != nil {
		return nil, err
	}
	h := NewHandler(w, opts)
	if opts.Mirror != nil {
		h = tee{h, &levelGate{level: opts.Level, next: opts.Mirror}}
	}
	return slog.New(h), nil
}

// NewHandler returns the slog.Handler New would use, writing to w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: opts.Level}
	if strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(w, ho)
	}
	return slog.NewJSONHandler(w, ho)
}

func output(path string) (io.Writer, error) {
	if path == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", filepath.Dir(path), err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}, nil
}

// tee forwards each record to every handler that accepts its level.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// levelGate applies a minimum level to a handler that has none of its own.
type levelGate struct {
	level slog.Level
	next  slog.Handler
}

func (g *levelGate) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= g.level && g.next.Enabled(ctx, level)
}

func (g *levelGate) Handle(ctx context.Context, r slog.Record) error {
	return g.next.Handle(ctx, r)
}

func (g *levelGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelGate{level: g.level, next: g.next.WithAttrs(attrs)}
}

func (g *levelGate) WithGroup(name string) slog.Handler {
	return &levelGate{level: g.level, next: g.next.WithGroup(name)}
}
