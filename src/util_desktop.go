package main

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
)

// Log writer implementation
func NewLogWriter() io.Writer {
	return os.Stderr
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
