package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// newLogger writes text records to path, truncating it, or to stderr when
// path is "-" or empty.
func newLogger(path string, verbose bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if path == "" || path == "-" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
}
