// Package log builds the slog logger shared by all iptsgo commands.
//
// The daemon usually runs under systemd: regular records go to stdout
// and errors to stderr, so they stand out in the journal. When a log
// file is configured, every record is additionally copied there; that is
// how bug reports with DFT traces are collected without stopping the
// console output.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LevelTrace is one step below debug. On top of the regular debug
// output it enables the raw report buffer dumps.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Level maps a configuration string onto a slog level. Unknown values
// fall back to info; a typo in a config file must not silence or kill
// the daemon.
func Level(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// splitHandler routes records by severity: errors and above go to err,
// everything else to out. The optional tee receives all records on top,
// regardless of where they were routed.
type splitHandler struct {
	out slog.Handler
	err slog.Handler
	tee slog.Handler
}

func (h splitHandler) route(level slog.Level) slog.Handler {
	if level >= slog.LevelError {
		return h.err
	}
	return h.out
}

func (h splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.route(level).Enabled(ctx, level) {
		return true
	}
	return h.tee != nil && h.tee.Enabled(ctx, level)
}

func (h splitHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	if target := h.route(r.Level); target.Enabled(ctx, r.Level) {
		err = target.Handle(ctx, r)
	}
	if h.tee != nil && h.tee.Enabled(ctx, r.Level) {
		err = errors.Join(err, h.tee.Handle(ctx, r.Clone()))
	}

	return err
}

func (h splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := splitHandler{
		out: h.out.WithAttrs(attrs),
		err: h.err.WithAttrs(attrs),
	}
	if h.tee != nil {
		next.tee = h.tee.WithAttrs(attrs)
	}
	return next
}

func (h splitHandler) WithGroup(name string) slog.Handler {
	next := splitHandler{
		out: h.out.WithGroup(name),
		err: h.err.WithGroup(name),
	}
	if h.tee != nil {
		next.tee = h.tee.WithGroup(name)
	}
	return next
}

// Setup builds the logger for the given level string and optional log
// file path. The returned closer owns the file handle and is nil when
// no file is configured.
func Setup(level, file string) (*slog.Logger, io.Closer, error) {
	lv := Level(level)

	h := splitHandler{
		out: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lv}),
		err: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}),
	}

	var closer io.Closer
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		h.tee = slog.NewTextHandler(f, &slog.HandlerOptions{Level: lv})
		closer = f
	}

	return slog.New(h), closer, nil
}
