package reports

import "context"

// Repo defines persistence operations for reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, reportID string) (Report, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
	// UpdateStatus applies upd only while the report is still in fromStatus.
	// It returns ErrInvalidTransition when the status changed underneath.
	UpdateStatus(ctx context.Context, reportID, fromStatus string, upd StatusUpdate) (Report, error)
	SaveGapSnapshot(ctx context.Context, reportID string, snap GapSnapshot) error
}
