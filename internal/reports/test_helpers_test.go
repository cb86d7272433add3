package reports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"esg-gap-backend/internal/documents"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/queue"
	localstore "esg-gap-backend/internal/shared/storage/object/local"
	"esg-gap-backend/internal/shared/telemetry"
)

const (
	mergedURL   = "http://minio:9000/reports/merged.csv"
	detailedURL = "http://minio:9000/reports/detailed.csv"
)

const mergedCSV = "Theme,Indicator Code,Indicator,Indicator Question Code,Indicator Question,Response\n" +
	"Climate Change,CC01,Emissions,CC01.1,Q1?,No\n" +
	"Climate Change,CC01,Emissions,CC01.2,Q2?,Yes\n"

const detailedCSV = "Theme,Indicator Code,Indicator,Indicator Question Code,Indicator Question,Response,Source Text,PageNumber,Source_File\n" +
	"Climate Change,CC01,Emissions,CC01.2,Q2?,Yes,Scope 1 disclosed,5,r.pdf\n"

type stubFetcher struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{texts: map[string]string{mergedURL: mergedCSV, detailedURL: detailedCSV}}
}

func (f *stubFetcher) FetchText(ctx context.Context, url string) (string, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	text, ok := f.texts[url]
	if !ok {
		return "", errors.New("status 404")
	}
	return text, nil
}

func (f *stubFetcher) FetchPair(ctx context.Context, merged, detailed string) (string, string, error) {
	m, err := f.FetchText(ctx, merged)
	if err != nil {
		return "", "", err
	}
	d, err := f.FetchText(ctx, detailed)
	if err != nil {
		return "", "", err
	}
	return m, d, nil
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	svc      *Service
	repo     *MemoryRepo
	fetcher  *stubFetcher
	process  *queue.MemoryClient
	storeDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := localstore.New(dir)
	repo := NewMemoryRepo()
	fetcher := newStubFetcher()
	process := &queue.MemoryClient{}

	clock := time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	svc := &Service{
		Repo: repo,
		Documents: &documents.Service{
			Store:           store,
			Repo:            documents.NewMemoryRepo(),
			StorageProvider: "local",
			Logger:          telemetry.Nop(),
		},
		Pipeline:        gapanalysis.NewPipeline(fetcher, telemetry.Nop()),
		Store:           store,
		ProcessingQueue: process,
		Logger:          telemetry.Nop(),
		Now:             now,
	}
	return &testEnv{svc: svc, repo: repo, fetcher: fetcher, process: process, storeDir: dir}
}

func readPDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extract", "testdata", "two-pages.pdf"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func (e *testEnv) submit(t *testing.T, userID string) Report {
	t.Helper()
	sub, err := e.svc.Submit(context.Background(), SubmitInput{
		UserID:      userID,
		Year:        2024,
		CompanyName: "PTT Public Company",
		Files:       []UploadFile{{Name: "annual-2024.pdf", Body: bytes.NewReader(readPDF(t))}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sub.Report
}

func (e *testEnv) complete(t *testing.T, reportID, merged, detailed string) Report {
	t.Helper()
	report, _, err := e.svc.UpdateStatus(context.Background(), reportID, StatusUpdate{
		Status:             StatusComplete,
		CSVMergedReportURL: merged,
		CSVReportURL:       detailed,
	})
	if err != nil {
		t.Fatalf("UpdateStatus COMPLETE: %v", err)
	}
	e.svc.Wait()
	return report
}
