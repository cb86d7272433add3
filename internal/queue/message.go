package queue

import (
	"encoding/json"
	"time"
)

// Message kinds.
const (
	KindProcessDocuments = "process_documents"
	KindGapAnalysis      = "gap_analysis"
)

// CurrentVersion is the payload version written by this service.
const CurrentVersion = 1

// DocumentRef points the processing service at a stored report PDF.
type DocumentRef struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	StorageKey string `json:"storageKey"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind       string        `json:"kind"`
	ReportID   string        `json:"reportId"`
	UserID     string        `json:"userId,omitempty"`
	RequestID  string        `json:"requestId"`
	Documents  []DocumentRef `json:"documents,omitempty"`
	EnqueuedAt string        `json:"enqueuedAt"`
	Version    int           `json:"version"`
}

// NewMessage returns a message stamped with the current time and version.
func NewMessage(kind, reportID, requestID string) Message {
	return Message{
		Kind:       kind,
		ReportID:   reportID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    CurrentVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. Payloads without a kind
// are treated as gap_analysis jobs.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Kind == "" {
		msg.Kind = KindGapAnalysis
	}
	return msg, nil
}
