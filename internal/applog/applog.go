// Package applog is a thin wrapper over the standard library's log.Logger.
// Store and search code never log; the event log ingester logs per-line
// parse failures (spec §4.8) and the scheduler (C14) and daemon entrypoint
// emit one-line pass summaries.
package applog

import (
	"io"
	"log"
	"os"
)

// Logger is the minimal surface used across the codebase.
type Logger struct {
	l *log.Logger
}

// New builds a Logger writing to w with no standard-library date/time
// prefix (callers include their own timestamp where it matters, matching
// cmd/memstore's log.SetFlags(0) convention).
func New(w io.Writer) *Logger {
	return &Logger{l: log.New(w, "", log.LstdFlags)}
}

// NewStderr is a convenience constructor for a Logger writing to os.Stderr,
// used by daemons that must keep stdout clean for any future RPC surface.
func NewStderr() *Logger { return New(os.Stderr) }

func (lg *Logger) Infof(format string, args ...any)  { lg.l.Printf("INFO  "+format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.l.Printf("WARN  "+format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.l.Printf("ERROR "+format, args...) }
