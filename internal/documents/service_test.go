package documents

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	localstore "esg-gap-backend/internal/shared/storage/object/local"
	"esg-gap-backend/internal/shared/telemetry"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extract", "testdata", "two-pages.pdf"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	clock := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	return &Service{
		Store:           localstore.New(t.TempDir()),
		Repo:            NewMemoryRepo(),
		StorageProvider: "local",
		Logger:          telemetry.Nop(),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
}

func TestUploadRecordsPDF(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	data := readFixture(t)

	doc, err := svc.Upload(ctx, "guest:g-1", "Sustainability Report 2024.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.PageCount != 2 || doc.MimeType != "application/pdf" || doc.SizeBytes != int64(len(data)) {
		t.Fatalf("unexpected document %+v", doc)
	}

	rc, err := svc.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		t.Fatalf("open stored pdf: %v", err)
	}
	rc.Close()

	got, err := svc.Get(ctx, "guest:g-1", doc.ID)
	if err != nil || got.ID != doc.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, "guest:other", doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("documents must be scoped to their owner, got %v", err)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fileName string
		body     string
		want     error
	}{
		{name: "wrong extension", fileName: "report.docx", body: "PK", want: ErrUnsupportedType},
		{name: "renamed csv", fileName: "report.pdf", body: "Theme,Response\n", want: ErrUnsupportedType},
		{name: "blank name", fileName: " ", body: "%PDF-1.4", want: ErrInvalidInput},
	}
	for _, tt := range tests {
		_, err := svc.Upload(ctx, "u-1", tt.fileName, strings.NewReader(tt.body))
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestUploadEnforcesSizeLimit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	svc.MaxBytes = 64

	_, err := svc.Upload(context.Background(), "u-1", "big.pdf", bytes.NewReader(readFixture(t)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	data := readFixture(t)

	first, err := svc.Upload(ctx, "u-1", "a.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload a: %v", err)
	}
	second, err := svc.Upload(ctx, "u-1", "b.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload b: %v", err)
	}

	docs, err := svc.List(ctx, "u-1", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != second.ID || docs[1].ID != first.ID {
		t.Fatalf("unexpected order %+v", docs)
	}

	current, err := svc.Current(ctx, "u-1")
	if err != nil || current.ID != second.ID {
		t.Fatalf("Current = %+v, %v", current, err)
	}

	page, err := svc.List(ctx, "u-1", 1, 1)
	if err != nil || len(page) != 1 || page[0].ID != first.ID {
		t.Fatalf("paged list = %+v, %v", page, err)
	}
}
