// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Format)
	}
	if cfg.Output == nil {
		t.Error("expected default output to be set")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("info line should be filtered at warn level, got %q", buf.String())
	}

	l.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn line in output, got %q", buf.String())
	}
}

func TestWithComponentTagsLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf}).WithComponent("compiler")

	l.Info("hello")
	if !strings.Contains(buf.String(), "component") || !strings.Contains(buf.String(), "compiler") {
		t.Errorf("expected component=compiler in output, got %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("hi", "k", "v")
	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON-formatted line, got %q", out)
	}
}

func TestSetDefaultAndPackageLevelFuncs(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(Config{Level: "debug", Output: &buf}))
	defer SetDefault(New(DefaultConfig()))

	Info("package level info")
	if !strings.Contains(buf.String(), "package level info") {
		t.Errorf("expected package-level Info to reach the default logger, got %q", buf.String())
	}
}
