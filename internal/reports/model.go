package reports

import (
	"time"

	"esg-gap-backend/internal/gapanalysis"
)

// Report statuses as reported by the processing service.
const (
	StatusInQueue    = "INQUEUE"
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusCancelled  = "CANCELLED"
	StatusFailed     = "FAILED"
)

// Report is one ESG report submission and its processing state.
type Report struct {
	ID                 string
	UserID             string
	JobID              string
	Status             string
	Year               int
	CompanyName        string
	CompanyURL         string
	StockTicker        string
	AdditionalInfo     string
	SubsectorCode      string
	DocumentInputName  []string
	DocumentInputURL   []string
	CSVReportURL       string
	CSVMergedReportURL string
	Progress           int
	ErrorMessage       string
	Gap                *GapSnapshot
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GapSnapshot is a stored gap-analysis result together with the CSV URLs it
// was computed from.
type GapSnapshot struct {
	Result      gapanalysis.Result
	MergedURL   string
	DetailedURL string
	ComputedAt  time.Time
}

// Matches reports whether the snapshot was computed from the given URLs.
func (s *GapSnapshot) Matches(mergedURL, detailedURL string) bool {
	return s != nil && s.MergedURL == mergedURL && s.DetailedURL == detailedURL
}

// StatusUpdate carries a processing-service callback.
type StatusUpdate struct {
	Status             string
	Progress           int
	CSVReportURL       string
	CSVMergedReportURL string
	ErrorMessage       string
	UpdatedAt          time.Time
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusInQueue, StatusProcessing, StatusComplete, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether a report in status s can no longer change.
func IsTerminal(s string) bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a report may move from one status to another.
// Non-terminal reports may repeat their status to publish progress.
func CanTransition(from, to string) bool {
	if !ValidStatus(to) || IsTerminal(from) {
		return false
	}
	if from == StatusProcessing && to == StatusInQueue {
		return false
	}
	return true
}

// HasCSV reports whether the processing service has published the merged export.
func (r Report) HasCSV() bool {
	return r.CSVMergedReportURL != ""
}
