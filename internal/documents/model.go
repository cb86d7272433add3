package documents

import (
	"math"
	"time"
)

// Document is an uploaded sustainability report PDF.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	PageCount       int
	StorageProvider string
	StorageKey      string
	CreatedAt       time.Time
}

// SizeMB is the size in mebibytes rounded to two decimals.
func (d Document) SizeMB() float64 {
	return math.Round(float64(d.SizeBytes)/(1<<20)*100) / 100
}
