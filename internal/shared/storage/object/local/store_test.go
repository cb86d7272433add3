package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "guest:g-1", "report.pdf", strings.NewReader("%PDF-1.4\nbody"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != 13 || mime != "application/pdf" {
		t.Fatalf("unexpected size=%d mime=%s", size, mime)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "%PDF-1.4\nbody" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestSaveWithKeyRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "../escape.xlsx", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := store.Open(ctx, "/etc/passwd"); err == nil {
		t.Fatalf("expected absolute key rejection")
	}

	n, err := store.SaveWithKey(ctx, "reports/r-1/gap-analysis.xlsx", "application/octet-stream", strings.NewReader("abc"))
	if err != nil || n != 3 {
		t.Fatalf("SaveWithKey = %d, %v", n, err)
	}
}
