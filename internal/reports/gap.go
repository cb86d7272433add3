package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"esg-gap-backend/internal/csvdata"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/shared/util"
)

// GapAnalysis returns the gap analysis for one of the user's reports. A stored
// snapshot is reused while the report's CSV URLs are unchanged.
func (s *Service) GapAnalysis(ctx context.Context, userID, reportID string) (gapanalysis.Result, error) {
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return gapanalysis.Result{}, err
	}
	return s.gapFor(ctx, report)
}

// ComputeGapAnalysis computes and stores the snapshot for a report. It is the
// entry point for queued gap_analysis jobs.
func (s *Service) ComputeGapAnalysis(ctx context.Context, reportID string) error {
	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if _, err := s.gapFor(ctx, report); err != nil {
		s.logger().Error("report.gap.failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  reportID,
			"user_id":    report.UserID,
			"error":      err.Error(),
		})
		return err
	}
	return nil
}

// ExportXLSX renders the report's gap analysis as a workbook and archives a
// copy in the object store. Archiving failures are logged, not returned.
func (s *Service) ExportXLSX(ctx context.Context, userID, reportID string) ([]byte, string, error) {
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return nil, "", err
	}
	result, err := s.gapFor(ctx, report)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := gapanalysis.WriteXLSX(&buf, result); err != nil {
		return nil, "", fmt.Errorf("render workbook: %w", err)
	}

	if s.Store != nil {
		key := "reports/" + report.ID + "/gap-analysis.xlsx"
		if _, err := s.Store.SaveWithKey(ctx, key, gapanalysis.XLSXContentType, bytes.NewReader(buf.Bytes())); err != nil {
			s.logger().Warn("report.export.archive_failed", map[string]any{
				"report_id": report.ID,
				"key":       key,
				"error":     err.Error(),
			})
		}
	}
	return buf.Bytes(), exportFileName(report), nil
}

func (s *Service) gapFor(ctx context.Context, report Report) (gapanalysis.Result, error) {
	if report.Status != StatusComplete || !report.HasCSV() {
		return gapanalysis.Result{}, fmt.Errorf("%w: status %s", ErrNotReady, report.Status)
	}
	if s.Pipeline == nil {
		return gapanalysis.Result{}, errors.New("gap pipeline not configured")
	}
	mergedURL, detailedURL := report.CSVMergedReportURL, report.CSVReportURL
	if report.Gap.Matches(mergedURL, detailedURL) {
		return report.Gap.Result, nil
	}

	key := report.ID + "\n" + mergedURL + "\n" + detailedURL
	// The shared computation outlives any single caller; each caller only
	// stops waiting when its own context ends.
	ch := s.gapGroup.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gapTimeout())
		defer cancel()
		analysis, err := s.Pipeline.Fetch(ctx, mergedURL, detailedURL)
		if err != nil {
			return nil, err
		}
		snap := GapSnapshot{
			Result:      analysis.Result,
			MergedURL:   mergedURL,
			DetailedURL: detailedURL,
			ComputedAt:  s.now(),
		}
		if err := s.Repo.SaveGapSnapshot(ctx, report.ID, snap); err != nil {
			s.logger().Warn("report.gap.snapshot_failed", map[string]any{
				"report_id": report.ID,
				"error":     err.Error(),
			})
		}
		s.logger().Info("report.gap.computed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  report.ID,
			"user_id":    report.UserID,
			"mode":       analysis.Diagnostics.Mode,
			"gap_count":  analysis.Result.OverallData.GapAnalysis.GapCount,
		})
		return analysis.Result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return gapanalysis.Result{}, res.Err
		}
		return res.Val.(gapanalysis.Result), nil
	case <-ctx.Done():
		return gapanalysis.Result{}, ctx.Err()
	}
}

func (s *Service) gapTimeout() time.Duration {
	if s.GapTimeout > 0 {
		return s.GapTimeout
	}
	return defaultGapTimeout
}

// IsPermanent reports whether retrying a gap computation cannot succeed.
func IsPermanent(err error) bool {
	var verr *csvdata.ValidationError
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotReady) || errors.As(err, &verr)
}

func exportFileName(report Report) string {
	base := util.Slug(report.CompanyName, "report")
	if report.Year > 0 {
		base = fmt.Sprintf("%s-%d", base, report.Year)
	}
	return base + "-gap-analysis.xlsx"
}
