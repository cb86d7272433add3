package queue

import (
	"context"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Kind:      KindProcessDocuments,
		ReportID:  "report-123",
		UserID:    "guest:g-1",
		RequestID: "request-456",
		Documents: []DocumentRef{
			{DocumentID: "doc-1", FileName: "annual.pdf", StorageKey: "abc/1_annual.pdf", SizeBytes: 1024},
		},
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    1,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestDecodeMessageDefaultsKind(t *testing.T) {
	got, err := DecodeMessage([]byte(`{"reportId":"r-1","requestId":"q-1"}`))
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Kind != KindGapAnalysis {
		t.Fatalf("expected default kind %q, got %q", KindGapAnalysis, got.Kind)
	}
}

type fakeSendAPI struct {
	inputs []*sqs.SendMessageInput
}

func (f *fakeSendAPI) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	api := &fakeSendAPI{}
	client := NewSQSClientWithAPI(api, "https://sqs.us-east-1.amazonaws.com/123/gap")

	msg := NewMessage(KindGapAnalysis, "report-1", "req-1")
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(api.inputs))
	}
	in := api.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.us-east-1.amazonaws.com/123/gap" {
		t.Fatalf("unexpected queue url %s", aws.ToString(in.QueueUrl))
	}
	if aws.ToString(in.MessageAttributes["kind"].StringValue) != KindGapAnalysis {
		t.Fatalf("missing kind attribute: %+v", in.MessageAttributes)
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ReportID != "report-1" || decoded.Version != CurrentVersion {
		t.Fatalf("unexpected body %+v", decoded)
	}
}

func TestMemoryClientRecords(t *testing.T) {
	var client MemoryClient
	if err := client.Send(context.Background(), NewMessage(KindProcessDocuments, "r-1", "")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := client.Sent()
	if len(sent) != 1 || sent[0].ReportID != "r-1" {
		t.Fatalf("unexpected sent messages %+v", sent)
	}
}
