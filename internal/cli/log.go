// Package cli implements the rdhtml command-line interface.
//
// rdhtml reads one document (a file, or stdin when the argument is "-" or
// absent), renders it to XHTML and optionally writes the label file other
// documents resolve their cross-references against.
package cli

import (
	"context"
	"io"
	"log/slog"
)

type loggerKey struct{}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
