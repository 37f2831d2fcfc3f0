package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"certichain/internal/config"
)

func TestProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.Config{Env: "production"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	Component(logger, "verify").Info("verdict")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
	if line["component"] != "verify" || line["msg"] != "verdict" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestTextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.Config{LogLevel: "warn", LogFormat: "text"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRejectsUnknownSettings(t *testing.T) {
	if _, err := NewWithWriter(config.Config{LogLevel: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected invalid level to be rejected")
	}
	if _, err := NewWithWriter(config.Config{LogFormat: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected invalid format to be rejected")
	}
}
