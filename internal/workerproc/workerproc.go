package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"esg-gap-backend/internal/queue"
	"esg-gap-backend/internal/reports"
)

// GapProcessor computes the gap analysis for a report.
type GapProcessor interface {
	ComputeGapAnalysis(ctx context.Context, reportID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingReportID indicates a message missing the report id.
type ErrMissingReportID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingReportID) Error() string { return "missing report id" }

// ErrUnsupportedKind indicates a message this worker does not handle.
type ErrUnsupportedKind struct {
	Kind     string
	ReportID string
}

func (e ErrUnsupportedKind) Error() string { return "unsupported message kind " + e.Kind }

// ErrProcess indicates processing failed after successful parsing. Permanent
// failures will not succeed on redelivery.
type ErrProcess struct {
	ReportID  string
	RequestID string
	Permanent bool
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process report"
	}
	return "process report: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ReportID) == "" {
		return msg, meta, ErrMissingReportID{Meta: meta, RequestID: msg.RequestID}
	}
	if msg.Kind != queue.KindGapAnalysis {
		return msg, meta, ErrUnsupportedKind{Kind: msg.Kind, ReportID: msg.ReportID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, processor GapProcessor, body string) error {
	if processor == nil {
		return errors.New("gap processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.ReportID) == "" {
		return ErrMissingReportID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := reports.WithRequestID(ctx, msg.RequestID)
	if err := processor.ComputeGapAnalysis(ctxWithRequest, msg.ReportID); err != nil {
		return ErrProcess{
			ReportID:  msg.ReportID,
			RequestID: msg.RequestID,
			Permanent: reports.IsPermanent(err),
			Err:       err,
		}
	}
	return nil
}

// Retryable reports whether a HandleMessage error should leave the message on
// the queue. Malformed messages and permanent processing failures are not
// retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var (
		emptyErr   ErrEmptyBody
		decodeErr  ErrDecode
		missingErr ErrMissingReportID
		kindErr    ErrUnsupportedKind
		procErr    ErrProcess
	)
	switch {
	case errors.As(err, &emptyErr), errors.As(err, &decodeErr),
		errors.As(err, &missingErr), errors.As(err, &kindErr):
		return false
	case errors.As(err, &procErr):
		return !procErr.Permanent
	default:
		return true
	}
}
