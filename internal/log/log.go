// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package log provides leveled, module-tagged loggers that
// share a single output sink.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
	"golang.org/x/term"
)

// Level is the type of logging levels.
type Level logging.Level

// The levels that can be passed to SetLevel.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// Formats used by SetSink. Colors are only emitted if the
// sink is a terminal.
var (
	colorFormat = logging.MustStringFormatter(
		`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
	)
	plainFormat = logging.MustStringFormatter(
		`[%{time:15:04:05.000}] [%{module}] [%{level}] %{message}`,
	)
)

var (
	leveledBackend logging.LeveledBackend
	level          = Notice
)

// Logger is the interface of named loggers.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a new named logger.
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink overrides the output sink of every logger.
// The current level is preserved.
func SetSink(sink io.Writer) {
	format := plainFormat
	if IsTerminal(sink) {
		format = colorFormat
	}
	backend := logging.NewLogBackend(sink, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(formatted)
	leveledBackend.SetLevel(level.backend(), "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity of every logger.
// Messages below lvl are discarded.
func SetLevel(lvl Level) {
	level = lvl
	leveledBackend.SetLevel(lvl.backend(), "")
}

// IsEnabled returns whether messages of level lvl are
// written for the given module.
func IsEnabled(lvl Level, module string) bool {
	return leveledBackend.IsEnabledFor(lvl.backend(), module)
}

// IsTerminal returns whether w refers to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l Level) backend() logging.Level {
	switch l {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Notice:
		return logging.NOTICE
	case Warning:
		return logging.WARNING
	}
	return logging.ERROR
}

func init() {
	SetSink(os.Stderr)
}
