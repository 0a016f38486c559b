package logger

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetCrashContext(t *testing.T) {
	t.Helper()
	prev := current
	current = &crashContext{exitFunc: os.Exit}
	t.Cleanup(func() { current = prev })
}

func TestHandlePanic_WritesCrashLog(t *testing.T) {
	resetCrashContext(t)
	dir := t.TempDir()
	SetCrashDir(dir)
	SetVersion("1.2.3")
	SetCommand("validate")
	SetSubject("docs/api.md")

	var code int
	current.exitFunc = func(c int) { code = c }

	func() {
		defer HandlePanic()
		panic("boom")
	}()

	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	logs, err := ListCrashLogs()
	if err != nil {
		t.Fatalf("ListCrashLogs() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d crash logs, want 1", len(logs))
	}
	data, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"version: 1.2.3", "command: validate", "subject: docs/api.md", "panic: boom"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("crash log missing %q", want)
		}
	}
}

func TestHandlePanic_NoPanicIsNoop(t *testing.T) {
	resetCrashContext(t)
	called := false
	current.exitFunc = func(int) { called = true }

	func() {
		defer HandlePanic()
	}()

	if called {
		t.Error("exit called without a panic")
	}
}

func TestSetSubject_Truncation(t *testing.T) {
	resetCrashContext(t)
	SetSubject(strings.Repeat("a", 900))
	if len(current.subject) > 520 || !strings.HasSuffix(current.subject, "[truncated]") {
		t.Errorf("subject not truncated: len %d", len(current.subject))
	}
}

func TestWriteCrashLog_KeepsNewest(t *testing.T) {
	resetCrashContext(t)
	dir := t.TempDir()
	SetCrashDir(dir)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range MaxCrashLogs + 3 {
		if _, err := WriteCrashLog(CrashLog{Timestamp: base.Add(time.Duration(i) * time.Second), PanicValue: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}
	logs, err := ListCrashLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != MaxCrashLogs {
		t.Fatalf("got %d logs, want %d", len(logs), MaxCrashLogs)
	}
	if filepath.Base(logs[0]) != "crash_20260101_000003.000.log" {
		t.Errorf("oldest kept = %s", filepath.Base(logs[0]))
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if _, err := Setup("debug", "json", &buf); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	slog.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json output = %q", buf.String())
	}

	if _, err := Setup("loud", "text", &buf); err == nil {
		t.Error("Setup() accepted unknown level")
	}
	if _, err := Setup("info", "xml", &buf); err == nil {
		t.Error("Setup() accepted unknown format")
	}
}
