// Package logger provides component-tagged leveled logging on top of the
// standard library logger. Components are short names like "llm", "scoring",
// "memory" that prefix every line.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu       sync.Mutex
	minLevel = LevelInfo
	std      = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel sets the minimum level by name. Unknown names keep the current level.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		minLevel = LevelDebug
	case "info":
		minLevel = LevelInfo
	case "warn", "warning":
		minLevel = LevelWarn
	case "error":
		minLevel = LevelError
	}
}

// SetOutput redirects all log output, e.g. to a file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

func logC(lvl Level, tag, component, msg string) {
	mu.Lock()
	enabled := lvl >= minLevel
	mu.Unlock()
	if !enabled {
		return
	}
	std.Output(3, fmt.Sprintf("%s [%s] %s", tag, component, msg))
}

func DebugC(component, msg string) { logC(LevelDebug, "DEBUG", component, msg) }
func InfoC(component, msg string)  { logC(LevelInfo, "INFO", component, msg) }
func WarnC(component, msg string)  { logC(LevelWarn, "WARN", component, msg) }
func ErrorC(component, msg string) { logC(LevelError, "ERROR", component, msg) }
