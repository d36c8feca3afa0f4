// Package logging provides the process-wide structured logger every
// other package in this module reaches through L(). Init is called
// exactly once at startup (spec.md §6: "Logging is routed through a
// process-wide logger initialized at startup"); before that call L()
// returns a logger writing to stderr at Info level so library code and
// tests never need a nil check.
package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Init installs the process-wide logger at the given level and returns
// it. cmd/kernel calls this once, from its root command's RunE.
func Init(level slog.Level) *slog.Logger {
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	current.Store(l)
	return l
}

// L returns the current process-wide logger.
func L() *slog.Logger { return current.Load() }
