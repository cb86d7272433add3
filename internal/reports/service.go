package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"esg-gap-backend/internal/documents"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/queue"
	"esg-gap-backend/internal/shared/metrics"
	"esg-gap-backend/internal/shared/storage/object"
	"esg-gap-backend/internal/shared/telemetry"
)

const (
	minReportYear            = 1900
	maxReportYear            = 2100
	estimatedMinutesPerFile  = 5
	estimatedMinutesBaseline = 5
	defaultGapTimeout        = 2 * time.Minute
)

// Service contains business logic for ESG reports.
type Service struct {
	Repo      Repo
	Documents *documents.Service
	Pipeline  *gapanalysis.Pipeline
	Store     object.ObjectStore
	// ProcessingQueue receives process_documents jobs. Nil leaves reports
	// INQUEUE until the processing service calls back.
	ProcessingQueue queue.Client
	// GapQueue receives gap_analysis jobs. Nil computes in-process.
	GapQueue queue.Client
	Logger   telemetry.Logger
	Now      func() time.Time
	// GapTimeout bounds a shared gap computation. Zero means two minutes.
	GapTimeout time.Duration

	gapGroup singleflight.Group
	inflight sync.WaitGroup
}

// UploadFile is one PDF attached to a submission.
type UploadFile struct {
	Name string
	Body io.Reader
}

// SubmitInput is a report submission.
type SubmitInput struct {
	UserID         string
	Year           int
	CompanyName    string
	CompanyURL     string
	StockTicker    string
	AdditionalInfo string
	SubsectorCode  string
	Files          []UploadFile
}

// Submission is the outcome of Submit.
type Submission struct {
	Report           Report
	Files            []documents.Document
	EstimatedMinutes int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() telemetry.Logger {
	if s.Logger == nil {
		return telemetry.Std()
	}
	return s.Logger
}

// Submit stores the report PDFs, creates an INQUEUE report and hands the job
// to the processing service.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Submission, error) {
	if err := validateSubmit(in); err != nil {
		return Submission{}, err
	}
	if s.Documents == nil {
		return Submission{}, errors.New("document service not configured")
	}

	docs := make([]documents.Document, 0, len(in.Files))
	for _, f := range in.Files {
		doc, err := s.Documents.Upload(ctx, in.UserID, f.Name, f.Body)
		if err != nil {
			return Submission{}, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		docs = append(docs, doc)
	}

	now := s.now()
	report := Report{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		JobID:             uuid.NewString(),
		Status:            StatusInQueue,
		Year:              in.Year,
		CompanyName:       strings.TrimSpace(in.CompanyName),
		CompanyURL:        strings.TrimSpace(in.CompanyURL),
		StockTicker:       strings.ToUpper(strings.TrimSpace(in.StockTicker)),
		AdditionalInfo:    strings.TrimSpace(in.AdditionalInfo),
		SubsectorCode:     strings.TrimSpace(in.SubsectorCode),
		DocumentInputName: make([]string, 0, len(docs)),
		DocumentInputURL:  make([]string, 0, len(docs)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	refs := make([]queue.DocumentRef, 0, len(docs))
	for _, doc := range docs {
		report.DocumentInputName = append(report.DocumentInputName, doc.FileName)
		report.DocumentInputURL = append(report.DocumentInputURL, doc.ID)
		refs = append(refs, queue.DocumentRef{
			DocumentID: doc.ID,
			FileName:   doc.FileName,
			StorageKey: doc.StorageKey,
			SizeBytes:  doc.SizeBytes,
		})
	}

	if err := s.Repo.Create(ctx, report); err != nil {
		return Submission{}, fmt.Errorf("create report: %w", err)
	}

	log := telemetry.With(s.logger(), map[string]any{
		"request_id": requestIDFromContext(ctx),
		"report_id":  report.ID,
		"user_id":    report.UserID,
		"job_id":     report.JobID,
	})

	if s.ProcessingQueue != nil {
		msg := queue.NewMessage(queue.KindProcessDocuments, report.ID, requestIDFromContext(ctx))
		msg.UserID = report.UserID
		msg.Documents = refs
		if err := s.ProcessingQueue.Send(ctx, msg); err != nil {
			log.Error("report.enqueue_failed", map[string]any{"error": err.Error()})
			s.markFailed(ctx, report, "failed to queue report for processing")
			return Submission{}, fmt.Errorf("enqueue report: %w", err)
		}
		metrics.IncReportJobsEnqueued()
	} else {
		log.Warn("report.processing_queue_disabled", nil)
	}

	log.Info("report.submitted", map[string]any{
		"status": report.Status,
		"files":  len(docs),
	})

	return Submission{
		Report:           report,
		Files:            docs,
		EstimatedMinutes: estimatedMinutesBaseline + estimatedMinutesPerFile*len(docs),
	}, nil
}

func validateSubmit(in SubmitInput) error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	case strings.TrimSpace(in.CompanyName) == "":
		return fmt.Errorf("%w: companyName is required", ErrInvalidInput)
	case len(in.Files) == 0:
		return fmt.Errorf("%w: at least one pdf file is required", ErrInvalidInput)
	case in.Year != 0 && (in.Year < minReportYear || in.Year > maxReportYear):
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalidInput, minReportYear, maxReportYear)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, report Report, message string) {
	_, err := s.Repo.UpdateStatus(ctx, report.ID, report.Status, StatusUpdate{
		Status:       StatusFailed,
		Progress:     report.Progress,
		ErrorMessage: message,
		UpdatedAt:    s.now(),
	})
	if err != nil {
		s.logger().Error("report.mark_failed", map[string]any{
			"report_id": report.ID,
			"error":     err.Error(),
		})
	}
}

// Get returns one of the user's reports.
func (s *Service) Get(ctx context.Context, userID, reportID string) (Report, error) {
	if userID == "" || reportID == "" {
		return Report{}, ErrInvalidInput
	}
	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	if report.UserID != userID {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// List returns the user's reports, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateStatus applies a processing-service callback and returns the updated
// report with its previous status. Terminal reports cannot change. A report
// that becomes COMPLETE with a merged CSV gets a gap computation scheduled.
func (s *Service) UpdateStatus(ctx context.Context, reportID string, upd StatusUpdate) (Report, string, error) {
	upd.Status = strings.ToUpper(strings.TrimSpace(upd.Status))
	upd.CSVReportURL = strings.TrimSpace(upd.CSVReportURL)
	upd.CSVMergedReportURL = strings.TrimSpace(upd.CSVMergedReportURL)
	if reportID == "" {
		return Report{}, "", fmt.Errorf("%w: report id required", ErrInvalidInput)
	}
	if !ValidStatus(upd.Status) {
		return Report{}, "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, upd.Status)
	}
	if upd.Progress < 0 || upd.Progress > 100 {
		return Report{}, "", fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
	}
	if upd.Status == StatusComplete {
		upd.Progress = 100
	}
	if upd.UpdatedAt.IsZero() {
		upd.UpdatedAt = s.now()
	}

	current, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return Report{}, "", err
	}
	if !CanTransition(current.Status, upd.Status) {
		return Report{}, "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, upd.Status)
	}

	updated, err := s.Repo.UpdateStatus(ctx, reportID, current.Status, upd)
	if err != nil {
		return Report{}, "", err
	}

	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"report_id":         reportID,
		"user_id":           updated.UserID,
		"status":            updated.Status,
		"progress":          updated.Progress,
		"status_transition": current.Status + "->" + updated.Status,
	}
	if updated.Status == StatusFailed {
		fields["error"] = updated.ErrorMessage
		s.logger().Warn("report.status", fields)
	} else {
		s.logger().Info("report.status", fields)
	}

	if updated.Status == StatusComplete && updated.HasCSV() {
		s.scheduleGap(ctx, updated)
	}
	return updated, current.Status, nil
}

func (s *Service) scheduleGap(ctx context.Context, report Report) {
	requestID := requestIDFromContext(ctx)
	if s.GapQueue != nil {
		msg := queue.NewMessage(queue.KindGapAnalysis, report.ID, requestID)
		msg.UserID = report.UserID
		err := s.GapQueue.Send(ctx, msg)
		if err == nil {
			metrics.IncReportJobsEnqueued()
			return
		}
		s.logger().Error("report.gap.enqueue_failed", map[string]any{
			"request_id": requestID,
			"report_id":  report.ID,
			"error":      err.Error(),
		})
	}

	s.inflight.Add(1)
	go func(ctx context.Context, reportID string) {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger().Error("report.gap.panic", map[string]any{
					"report_id": reportID,
					"error":     fmt.Sprint(r),
				})
			}
		}()
		_ = s.ComputeGapAnalysis(ctx, reportID)
	}(backgroundWithRequestID(ctx), report.ID)
}

// Wait blocks until in-process gap computations finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}
