package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"esg-gap-backend/internal/gapanalysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `id, user_id, job_id, status, year, company_name, company_url, stock_ticker,
       additional_info, subsector_code, document_input_name, document_input_url,
       csv_report_url, csv_merged_report_url, progress, error_message,
       gap_result, gap_merged_url, gap_detailed_url, gap_computed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var r Report
	var names, urls []byte
	var gapResult sql.NullString
	var gapMergedURL, gapDetailedURL string
	var gapComputedAt sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.JobID,
		&r.Status,
		&r.Year,
		&r.CompanyName,
		&r.CompanyURL,
		&r.StockTicker,
		&r.AdditionalInfo,
		&r.SubsectorCode,
		&names,
		&urls,
		&r.CSVReportURL,
		&r.CSVMergedReportURL,
		&r.Progress,
		&r.ErrorMessage,
		&gapResult,
		&gapMergedURL,
		&gapDetailedURL,
		&gapComputedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	if r.DocumentInputName, err = unmarshalStrings(names); err != nil {
		return Report{}, fmt.Errorf("decode document_input_name: %w", err)
	}
	if r.DocumentInputURL, err = unmarshalStrings(urls); err != nil {
		return Report{}, fmt.Errorf("decode document_input_url: %w", err)
	}
	if gapResult.Valid && gapResult.String != "" {
		var result gapanalysis.Result
		if err := json.Unmarshal([]byte(gapResult.String), &result); err != nil {
			return Report{}, fmt.Errorf("decode gap_result: %w", err)
		}
		r.Gap = &GapSnapshot{
			Result:      result,
			MergedURL:   gapMergedURL,
			DetailedURL: gapDetailedURL,
			ComputedAt:  gapComputedAt.Time,
		}
	}
	return r, nil
}

// Create inserts a new report.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO reports (
    id, user_id, job_id, status, year, company_name, company_url, stock_ticker,
    additional_info, subsector_code, document_input_name, document_input_url,
    csv_report_url, csv_merged_report_url, progress, error_message, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	names, err := marshalStrings(report.DocumentInputName)
	if err != nil {
		return err
	}
	urls, err := marshalStrings(report.DocumentInputURL)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		report.ID,
		report.UserID,
		report.JobID,
		report.Status,
		report.Year,
		report.CompanyName,
		report.CompanyURL,
		report.StockTicker,
		report.AdditionalInfo,
		report.SubsectorCode,
		names,
		urls,
		report.CSVReportURL,
		report.CSVMergedReportURL,
		report.Progress,
		report.ErrorMessage,
		report.CreatedAt,
		report.UpdatedAt,
	)
	return err
}

// GetByID returns a report by ID.
func (r *PGRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	query := `
SELECT ` + reportColumns + `
FROM reports
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return report, err
}

// ListByUser returns a user's reports ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + reportColumns + `
FROM reports
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// UpdateStatus applies a status callback with a compare-and-set on status.
// Empty CSV URLs keep the stored values.
func (r *PGRepo) UpdateStatus(ctx context.Context, reportID, fromStatus string, upd StatusUpdate) (Report, error) {
	query := `
UPDATE reports
SET status = $3,
    progress = $4,
    csv_report_url = COALESCE(NULLIF($5::text, ''), csv_report_url),
    csv_merged_report_url = COALESCE(NULLIF($6::text, ''), csv_merged_report_url),
    error_message = $7,
    updated_at = $8
WHERE id = $1 AND status = $2 AND deleted_at IS NULL
RETURNING ` + reportColumns

	report, err := scanReport(r.DB.QueryRowContext(ctx, query,
		reportID,
		fromStatus,
		upd.Status,
		upd.Progress,
		upd.CSVReportURL,
		upd.CSVMergedReportURL,
		upd.ErrorMessage,
		upd.UpdatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, reportID); getErr != nil {
			return Report{}, getErr
		}
		return Report{}, ErrInvalidTransition
	}
	return report, err
}

// SaveGapSnapshot stores the computed gap analysis on the report.
func (r *PGRepo) SaveGapSnapshot(ctx context.Context, reportID string, snap GapSnapshot) error {
	const query = `
UPDATE reports
SET gap_result = $2, gap_merged_url = $3, gap_detailed_url = $4, gap_computed_at = $5
WHERE id = $1 AND deleted_at IS NULL`

	payload, err := json.Marshal(snap.Result)
	if err != nil {
		return fmt.Errorf("encode gap_result: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, reportID, string(payload), snap.MergedURL, snap.DetailedURL, snap.ComputedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStrings(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
