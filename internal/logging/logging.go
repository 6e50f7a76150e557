// Package logging provides the small leveled stderr logger the CLI and the
// watch loop share.
package logging

import (
	"io"
	"log"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	level Level
	l     *log.Logger
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, l: log.New(w, "", log.LstdFlags)}
}

func (lg *Logger) Debugf(format string, args ...any) { lg.logf(LevelDebug, "DEBUG", format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.logf(LevelInfo, "INFO", format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.logf(LevelWarn, "WARN", format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.logf(LevelError, "ERROR", format, args...) }

func (lg *Logger) logf(level Level, tag, format string, args ...any) {
	if lg == nil || level < lg.level {
		return
	}
	lg.l.Printf("["+tag+"] "+format, args...)
}
