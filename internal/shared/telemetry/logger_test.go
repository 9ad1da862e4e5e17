package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestWriteIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Error("cfdi.attempt_failed", map[string]any{"job_id": 7, "err": errors.New("boom")})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "cfdi.attempt_failed" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["level"] != "ERROR" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if entry["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", entry["err"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Info("quiet", nil)
	Debug("quieter", nil)
	Warn("loud", nil)

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info/debug lines should be filtered: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("warn line missing: %q", out)
	}
}
