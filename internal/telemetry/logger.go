// Package telemetry carries the simulator's ambient logging and
// metrics concerns: a Logger interface generalized from go-mcast's
// definition.DefaultLogger, and a Prometheus metrics registry
// generalized from shurli's pkg/p2pnet/metrics.go.
package telemetry

import (
	"fmt"
	"io"
	"log"
	"os"
)

const calldepth = 2

const (
	levelInfo  = "INFO"
	levelWarn  = "WARN"
	levelError = "ERROR"
	levelDebug = "DEBUG"
	levelFatal = "FATAL"
)

// Logger is the logging interface every peer, service, and harness
// component is handed. It never panics on its own account; Fatal/
// Fatalf terminate the process deliberately, the way the teacher's
// DefaultLogger does.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(enabled bool) bool
}

// DefaultLogger wraps a stdlib *log.Logger the way go-mcast's
// DefaultLogger does, generalized to carry a component name (so a
// per-peer logfile can be created with one of these per peer, per
// spec.md §6's "one log file per peer at logger_dir/<peer-repr>.log").
type DefaultLogger struct {
	*log.Logger
	name  string
	debug bool
}

// NewLogger builds a Logger writing "<name> [<LEVEL>]: <message>"
// lines to w.
func NewLogger(name string, w io.Writer) *DefaultLogger {
	return &DefaultLogger{
		Logger: log.New(w, name+" ", 0),
		name:   name,
	}
}

// NewStderrLogger builds a single shared logger writing to stderr,
// mirroring go-mcast's NewDefaultLogger. No logger_dir setting exists;
// nothing in the module opens per-peer log files.
func NewStderrLogger(name string) *DefaultLogger {
	return NewLogger(name, os.Stderr)
}

func level(prefix, message string) string {
	return fmt.Sprintf("[%s]: %s", prefix, message)
}

func (l *DefaultLogger) Info(v ...interface{}) {
	l.Output(calldepth, level(levelInfo, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.Output(calldepth, level(levelInfo, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Warn(v ...interface{}) {
	l.Output(calldepth, level(levelWarn, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.Output(calldepth, level(levelWarn, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Error(v ...interface{}) {
	l.Output(calldepth, level(levelError, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.Output(calldepth, level(levelError, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.Output(calldepth, level(levelDebug, fmt.Sprint(v...)))
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.Output(calldepth, level(levelDebug, fmt.Sprintf(format, v...)))
	}
}

func (l *DefaultLogger) Fatal(v ...interface{}) {
	l.Output(calldepth, level(levelFatal, fmt.Sprint(v...)))
	os.Exit(1)
}

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) {
	l.Output(calldepth, level(levelFatal, fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func (l *DefaultLogger) ToggleDebug(enabled bool) bool {
	l.debug = enabled
	return l.debug
}
