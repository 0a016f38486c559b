// Package logger installs the process-wide slog handler and records crash
// logs when a command panics.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"
)

// MaxCrashLogs is the maximum number of crash logs to keep.
const MaxCrashLogs = 10

type crashContext struct {
	mu       sync.RWMutex
	dir      string
	version  string
	command  string
	subject  string
	exitFunc func(int)
}

var current = &crashContext{exitFunc: os.Exit}

// SetCrashDir sets where crash logs are written.
func SetCrashDir(dir string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.dir = dir
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.command = cmd
}

// SetSubject records what the command was working on, such as a document
// path or feature id.
func SetSubject(subject string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.subject = truncateForLog(strings.TrimSpace(subject), 500)
}

func truncateForLog(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashLog is what gets written for one panic.
type CrashLog struct {
	Timestamp  time.Time
	Version    string
	Command    string
	Subject    string
	PanicValue string
	StackTrace string
}

// HandlePanic recovers a panic, writes a crash log and exits with status 2.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	log := newCrashLog(r)
	path, err := WriteCrashLog(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "featuregraph: panic: %v\n%s\n", r, log.StackTrace)
		fmt.Fprintf(os.Stderr, "featuregraph: could not write crash log: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "featuregraph: unexpected error: %v\ncrash log: %s\n", r, path)
	}
	current.mu.RLock()
	exit := current.exitFunc
	current.mu.RUnlock()
	exit(2)
}

func newCrashLog(panicValue any) CrashLog {
	current.mu.RLock()
	defer current.mu.RUnlock()
	return CrashLog{
		Timestamp:  time.Now(),
		Version:    current.version,
		Command:    current.command,
		Subject:    current.subject,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
	}
}

// WriteCrashLog writes log into the crash directory and prunes old logs.
func WriteCrashLog(log CrashLog) (string, error) {
	dir := crashDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash_%s.log", log.Timestamp.Format("20060102_150405.000")))
	if err := os.WriteFile(path, []byte(formatCrashLog(log)), 0o644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	if err := pruneCrashLogs(dir, MaxCrashLogs); err != nil {
		fmt.Fprintf(os.Stderr, "featuregraph: prune crash logs: %v\n", err)
	}
	return path, nil
}

func crashDir() string {
	current.mu.RLock()
	defer current.mu.RUnlock()
	if current.dir != "" {
		return current.dir
	}
	return filepath.Join(os.TempDir(), "featuregraph", "logs")
}

func formatCrashLog(log CrashLog) string {
	var sb strings.Builder
	rule := strings.Repeat("-", 72) + "\n"
	fmt.Fprintf(&sb, "featuregraph crash %s\n", log.Timestamp.Format(time.RFC3339))
	sb.WriteString(rule)
	fmt.Fprintf(&sb, "version: %s\n", log.Version)
	fmt.Fprintf(&sb, "command: %s\n", log.Command)
	if log.Subject != "" {
		fmt.Fprintf(&sb, "subject: %s\n", log.Subject)
	}
	fmt.Fprintf(&sb, "runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	sb.WriteString(rule)
	fmt.Fprintf(&sb, "panic: %s\n\n", log.PanicValue)
	sb.WriteString(log.StackTrace)
	return sb.String()
}

// ListCrashLogs returns crash log paths, oldest first.
func ListCrashLogs() ([]string, error) {
	return listCrashLogs(crashDir())
}

func listCrashLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, filepath.Join(dir, e.Name()))
		}
	}
	// names embed the timestamp
	slices.Sort(logs)
	return logs, nil
}

func pruneCrashLogs(dir string, keep int) error {
	logs, err := listCrashLogs(dir)
	if err != nil {
		return err
	}
	for len(logs) > keep {
		if err := os.Remove(logs[0]); err != nil {
			return fmt.Errorf("remove %s: %w", logs[0], err)
		}
		logs = logs[1:]
	}
	return nil
}
