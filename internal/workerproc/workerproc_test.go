package workerproc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"esg-gap-backend/internal/queue"
	"esg-gap-backend/internal/reports"
)

type recordingProcessor struct {
	reportIDs []string
	err       error
}

func (p *recordingProcessor) ComputeGapAnalysis(ctx context.Context, reportID string) error {
	_ = ctx
	p.reportIDs = append(p.reportIDs, reportID)
	return p.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	payload, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(payload)
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr any
	}{
		{name: "empty", body: "  ", wantErr: ErrEmptyBody{}},
		{name: "bad json", body: "{nope", wantErr: ErrDecode{}},
		{name: "missing id", body: `{"kind":"gap_analysis","requestId":"q"}`, wantErr: ErrMissingReportID{}},
		{name: "other kind", body: `{"kind":"process_documents","reportId":"r-1"}`, wantErr: ErrUnsupportedKind{}},
		{name: "legacy without kind", body: `{"reportId":"r-1"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseMessage(tt.body)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", tt.wantErr) {
				t.Fatalf("expected %T, got %T (%v)", tt.wantErr, err, err)
			}
		})
	}
}

func TestParseMessageMeta(t *testing.T) {
	_, meta, err := ParseMessage("{nope")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 5 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestHandleMessageCallsProcessor(t *testing.T) {
	proc := &recordingProcessor{}
	body := encode(t, queue.NewMessage(queue.KindGapAnalysis, "r-1", "req-1"))

	if err := HandleMessage(context.Background(), proc, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.reportIDs) != 1 || proc.reportIDs[0] != "r-1" {
		t.Fatalf("unexpected calls %+v", proc.reportIDs)
	}
}

func TestHandleMessageReusesParsedMessage(t *testing.T) {
	proc := &recordingProcessor{}
	msg := queue.NewMessage(queue.KindGapAnalysis, "r-2", "")
	ctx := WithParsedMessage(context.Background(), msg)

	if err := HandleMessage(ctx, proc, "ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.reportIDs) != 1 || proc.reportIDs[0] != "r-2" {
		t.Fatalf("unexpected calls %+v", proc.reportIDs)
	}
}

func TestHandleMessageClassifiesFailures(t *testing.T) {
	body := encode(t, queue.NewMessage(queue.KindGapAnalysis, "r-3", "req-3"))

	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{name: "missing report", err: reports.ErrNotFound, wantPermanent: true},
		{name: "not ready", err: fmt.Errorf("wrap: %w", reports.ErrNotReady), wantPermanent: true},
		{name: "transient", err: errors.New("connection reset"), wantPermanent: false},
	}
	for _, tt := range tests {
		err := HandleMessage(context.Background(), &recordingProcessor{err: tt.err}, body)
		var procErr ErrProcess
		if !errors.As(err, &procErr) {
			t.Fatalf("%s: expected ErrProcess, got %v", tt.name, err)
		}
		if procErr.Permanent != tt.wantPermanent || procErr.ReportID != "r-3" {
			t.Fatalf("%s: unexpected %+v", tt.name, procErr)
		}
		if !errors.Is(err, tt.err) {
			t.Fatalf("%s: cause not wrapped", tt.name)
		}
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "empty body", err: ErrEmptyBody{}, want: false},
		{name: "decode", err: ErrDecode{Err: errors.New("bad")}, want: false},
		{name: "missing id", err: ErrMissingReportID{}, want: false},
		{name: "unsupported kind", err: ErrUnsupportedKind{Kind: "x"}, want: false},
		{name: "permanent", err: ErrProcess{ReportID: "r-1", Permanent: true, Err: reports.ErrNotFound}, want: false},
		{name: "transient", err: ErrProcess{ReportID: "r-1", Err: errors.New("timeout")}, want: true},
		{name: "wrapped transient", err: fmt.Errorf("batch: %w", ErrProcess{Err: errors.New("timeout")}), want: true},
		{name: "unknown", err: errors.New("boom"), want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
