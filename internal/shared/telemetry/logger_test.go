package telemetry

import (
	"testing"
)

type captureLogger struct {
	level  string
	msg    string
	fields map[string]any
}

func (c *captureLogger) Info(msg string, fields map[string]any) {
	c.level, c.msg, c.fields = "info", msg, fields
}

func (c *captureLogger) Warn(msg string, fields map[string]any) {
	c.level, c.msg, c.fields = "warn", msg, fields
}

func (c *captureLogger) Error(msg string, fields map[string]any) {
	c.level, c.msg, c.fields = "error", msg, fields
}

func TestWithMergesFields(t *testing.T) {
	capture := &captureLogger{}
	log := With(capture, map[string]any{"report_id": "r-1", "mode": "dual"})

	log.Warn("csv.validation.warnings", map[string]any{"mode": "single", "count": 2})

	if capture.level != "warn" || capture.msg != "csv.validation.warnings" {
		t.Fatalf("unexpected entry %s %s", capture.level, capture.msg)
	}
	if capture.fields["report_id"] != "r-1" {
		t.Fatalf("expected base field, got %+v", capture.fields)
	}
	if capture.fields["mode"] != "single" {
		t.Fatalf("call-site field should win, got %v", capture.fields["mode"])
	}
	if capture.fields["count"] != 2 {
		t.Fatalf("expected count field, got %v", capture.fields["count"])
	}
}
