package reports

import (
	"time"
)

// ReportResponse is the status-polling representation of a report.
type ReportResponse struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	JobID              string    `json:"jobId"`
	Status             string    `json:"status"`
	Progress           int       `json:"progress"`
	Year               int       `json:"year,omitempty"`
	CompanyName        string    `json:"companyName"`
	CompanyURL         string    `json:"companyUrl,omitempty"`
	StockTicker        string    `json:"stockTicker,omitempty"`
	AdditionalInfo     string    `json:"additionalInfo,omitempty"`
	SubsectorCode      string    `json:"subsectorCode,omitempty"`
	DocumentInputName  []string  `json:"documentInputName"`
	DocumentInputURL   []string  `json:"documentInputUrl"`
	CSVReportURL       string    `json:"csvReportUrl,omitempty"`
	CSVMergedReportURL string    `json:"csvMergedReportUrl,omitempty"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
	GapAnalysisReady   bool      `json:"gapAnalysisReady"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// FileProcessed describes one accepted PDF.
type FileProcessed struct {
	Name   string  `json:"name"`
	SizeMB float64 `json:"size_mb"`
}

// SubmitResponse is returned when a report is accepted for processing.
type SubmitResponse struct {
	ReportID             string          `json:"reportId"`
	JobID                string          `json:"jobId"`
	Status               string          `json:"status"`
	Message              string          `json:"message"`
	EstimatedTimeMinutes int             `json:"estimatedTimeMinutes"`
	FilesProcessed       []FileProcessed `json:"filesProcessed"`
	IndicatorsCount      int             `json:"indicatorsCount"`
}

// StatusRequest is the processing-service callback body.
type StatusRequest struct {
	Status             string `json:"status" binding:"required"`
	Progress           int    `json:"progress"`
	CSVReportURL       string `json:"csvReportUrl"`
	CSVMergedReportURL string `json:"csvMergedReportUrl"`
	ErrorMessage       string `json:"errorMessage"`
}

func toResponse(r Report) ReportResponse {
	return ReportResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		JobID:              r.JobID,
		Status:             r.Status,
		Progress:           r.Progress,
		Year:               r.Year,
		CompanyName:        r.CompanyName,
		CompanyURL:         r.CompanyURL,
		StockTicker:        r.StockTicker,
		AdditionalInfo:     r.AdditionalInfo,
		SubsectorCode:      r.SubsectorCode,
		DocumentInputName:  nonNil(r.DocumentInputName),
		DocumentInputURL:   nonNil(r.DocumentInputURL),
		CSVReportURL:       r.CSVReportURL,
		CSVMergedReportURL: r.CSVMergedReportURL,
		ErrorMessage:       r.ErrorMessage,
		GapAnalysisReady:   r.Gap.Matches(r.CSVMergedReportURL, r.CSVReportURL),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toSubmitResponse(sub Submission) SubmitResponse {
	files := make([]FileProcessed, 0, len(sub.Files))
	for _, doc := range sub.Files {
		files = append(files, FileProcessed{Name: doc.FileName, SizeMB: doc.SizeMB()})
	}
	return SubmitResponse{
		ReportID:             sub.Report.ID,
		JobID:                sub.Report.JobID,
		Status:               sub.Report.Status,
		Message:              "Documents accepted for processing",
		EstimatedTimeMinutes: sub.EstimatedMinutes,
		FilesProcessed:       files,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
