package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Logger is the structured logger injected into services and pipelines.
type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write("warn", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

type stdLogger struct{}

func (stdLogger) Info(msg string, fields map[string]any)  { Info(msg, fields) }
func (stdLogger) Warn(msg string, fields map[string]any)  { Warn(msg, fields) }
func (stdLogger) Error(msg string, fields map[string]any) { Error(msg, fields) }

// Std returns a Logger that writes JSON lines to stdout.
func Std() Logger { return stdLogger{} }

type nopLogger struct{}

func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

// With returns a Logger that adds base to every entry. Call-site fields win.
func With(l Logger, base map[string]any) Logger {
	if l == nil {
		l = Std()
	}
	return withLogger{next: l, base: base}
}

type withLogger struct {
	next Logger
	base map[string]any
}

func (w withLogger) merge(fields map[string]any) map[string]any {
	out := make(map[string]any, len(w.base)+len(fields))
	for k, v := range w.base {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (w withLogger) Info(msg string, fields map[string]any)  { w.next.Info(msg, w.merge(fields)) }
func (w withLogger) Warn(msg string, fields map[string]any)  { w.next.Warn(msg, w.merge(fields)) }
func (w withLogger) Error(msg string, fields map[string]any) { w.next.Error(msg, w.merge(fields)) }

func write(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
