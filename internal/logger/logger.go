// Package logger is a small leveled logger writing to the run log file, with
// optional stdout echo kept above Debug so diagnostics don't tear the
// progress bar apart.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	out           *log.Logger
	level         Level
	includeStdout bool
	runID         string
}

// New opens (or creates) the log file at filePath for appending. runID tags
// every line so interleaved resumed runs stay distinguishable in one file.
func New(filePath string, level Level, includeStdout bool, runID string) (*Logger, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		out:           log.New(f, "", 0),
		level:         level,
		includeStdout: includeStdout,
		runID:         runID,
	}, nil
}

// NewWriter builds a logger over an arbitrary writer. Used by tests.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: log.New(w, "", 0), level: level}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWriter(io.Discard, LevelError+1)
}

func (l *Logger) log(lvl Level, prefix string, format string, v ...interface{}) {
	if lvl < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	fullMsg := fmt.Sprintf("%s [%s] [%s] %s", timestamp, l.runID, prefix, msg)

	l.out.Println(fullMsg)

	// Debug stays out of the terminal so it can't break the progress bar
	if l.includeStdout && lvl >= LevelInfo {
		fmt.Printf("\n%s", fullMsg)
	}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, "DEBUG", f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, "INFO", f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, "WARN", f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, "ERROR", f, v...) }
