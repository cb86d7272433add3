package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"ENV", "PORT", "OBJECT_STORE", "CSV_MAX_BYTES", "CSV_FETCH_TIMEOUT", "GAP_QUEUE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" || cfg.Port != "8080" || cfg.ObjectStoreType != "local" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CSVMaxBytes != 50<<20 || cfg.CSVFetchTimeout != 30*time.Second || cfg.CSVMaxRowErrors != 50 {
		t.Fatalf("unexpected csv defaults %+v", cfg)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	body := "PORT=9999\nGAP_QUEUE_URL=https://sqs.local/gap\nOBJECT_STORE=minio\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("GAP_QUEUE_URL", "")
	t.Setenv("OBJECT_STORE", "")
	os.Unsetenv("GAP_QUEUE_URL")
	os.Unsetenv("OBJECT_STORE")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("process env must win, got %s", cfg.Port)
	}
	if cfg.GapQueueURL != "https://sqs.local/gap" {
		t.Fatalf("expected value from .env, got %q", cfg.GapQueueURL)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("minio should map to s3, got %s", cfg.ObjectStoreType)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"45s":   45 * time.Second,
		"10":    10 * time.Second,
		"bogus": 30 * time.Second,
		"-5":    30 * time.Second,
	}
	for raw, want := range tests {
		t.Setenv("CSV_FETCH_TIMEOUT", raw)
		if got := getEnvDuration("CSV_FETCH_TIMEOUT", 30*time.Second); got != want {
			t.Fatalf("getEnvDuration(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNormalizeEnv(t *testing.T) {
	tests := map[string]string{
		"prod":        "production",
		"Production":  "production",
		"staging":     "staging",
		"development": "dev",
		"":            "dev",
	}
	for in, want := range tests {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
