package reports

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Report
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Report)}
}

// Create stores a new report.
func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[report.ID] = cloneReport(report)
	return nil
}

// GetByID returns a report by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.data[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return cloneReport(report), nil
}

// ListByUser returns a user's reports, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	out := []Report{}
	for _, report := range r.data {
		if report.UserID == userID {
			out = append(out, cloneReport(report))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Report{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// UpdateStatus applies a status callback when the stored status still matches.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, reportID, fromStatus string, upd StatusUpdate) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.data[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	if report.Status != fromStatus {
		return Report{}, ErrInvalidTransition
	}
	applyUpdate(&report, upd)
	r.data[reportID] = report
	return cloneReport(report), nil
}

// SaveGapSnapshot stores the computed gap analysis on the report.
func (r *MemoryRepo) SaveGapSnapshot(ctx context.Context, reportID string, snap GapSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.data[reportID]
	if !ok {
		return ErrNotFound
	}
	report.Gap = &snap
	r.data[reportID] = report
	return nil
}

func applyUpdate(report *Report, upd StatusUpdate) {
	report.Status = upd.Status
	report.Progress = upd.Progress
	if upd.CSVReportURL != "" {
		report.CSVReportURL = upd.CSVReportURL
	}
	if upd.CSVMergedReportURL != "" {
		report.CSVMergedReportURL = upd.CSVMergedReportURL
	}
	report.ErrorMessage = upd.ErrorMessage
	report.UpdatedAt = upd.UpdatedAt
}

func cloneReport(r Report) Report {
	r.DocumentInputName = append([]string(nil), r.DocumentInputName...)
	r.DocumentInputURL = append([]string(nil), r.DocumentInputURL...)
	if r.Gap != nil {
		snap := *r.Gap
		r.Gap = &snap
	}
	return r
}

var _ Repo = (*MemoryRepo)(nil)
