package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("test message", "foo", 42, "bar", true)

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(out, `"foo":42`) || !strings.Contains(out, `"bar":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestWarnLoggingWithError(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Warn("font load failed", "path", "/x.ttf", "error", errors.New("bad magic"))

	out := buf.String()
	if !strings.Contains(out, `"path":"/x.ttf"`) || !strings.Contains(out, `"error":"bad magic"`) {
		t.Errorf("Warn log output missing expected content: %s", out)
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}
}

func TestDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Error("err", "ok", true, "dangling")
	if !strings.Contains(buf.String(), `"dangling":null`) {
		t.Errorf("expected dangling key to be logged, got %s", buf.String())
	}
}

func TestInitLoggerAndSetLogLevelFallback(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "consent.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	SetLogLevel("invalid")
	Info("hello", "k", "v")
	Warn("warn")
	Error("error")
}
