package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/perarneng/autoboard/pkg/interfaces"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Anything
// else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type ColorLogger struct {
	mu    sync.Mutex
	out   io.Writer
	file  io.Writer
	level Level
	now   func() time.Time
}

func NewLogger() interfaces.Logger {
	return &ColorLogger{out: os.Stdout, level: LevelInfo, now: time.Now}
}

// New creates a logger writing coloured lines to out and, when file is not
// nil, plain lines to file.
func New(out, file io.Writer, level Level) *ColorLogger {
	return &ColorLogger{out: out, file: file, level: level, now: time.Now}
}

// OpenFile opens path for appending, creating its directory.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}
	return f, nil
}

func (l *ColorLogger) log(level Level, name, message string, colorFunc func(...interface{}) string) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fmt.Fprintf(l.out, "%s %s %s\n", now.Format("2006-01-02 15:04:05"), colorFunc(name), message)
	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] [%s] %s\n", now.UTC().Format(time.RFC3339), name, message)
	}
}

func (l *ColorLogger) Info(message string) {
	l.log(LevelInfo, "INFO", message, color.New(color.FgGreen).SprintFunc())
}

func (l *ColorLogger) Error(message string) {
	l.log(LevelError, "ERROR", message, color.New(color.FgRed).SprintFunc())
}

func (l *ColorLogger) Warn(message string) {
	l.log(LevelWarn, "WARN", message, color.New(color.FgYellow).SprintFunc())
}

func (l *ColorLogger) Debug(message string) {
	l.log(LevelDebug, "DEBUG", message, color.New(color.FgCyan).SprintFunc())
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string)  {}
func (Nop) Error(string) {}
func (Nop) Warn(string)  {}
func (Nop) Debug(string) {}
