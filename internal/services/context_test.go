package services

import (
	"context"
	"testing"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithProjectID(ctx, 42)
	ctx = WithSegmentIndex(ctx, 3)
	ctx = WithSessionID(ctx, "session-1")
	ctx = WithStage(ctx, "transcribing")
	ctx = WithRequestID(ctx, "req-123")

	if id, ok := ProjectIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected project id: %v %v", id, ok)
	}
	if idx, ok := SegmentIndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected segment index: %v %v", idx, ok)
	}
	if sid, ok := SessionIDFromContext(ctx); !ok || sid != "session-1" {
		t.Fatalf("unexpected session id: %q %v", sid, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcribing" {
		t.Fatalf("unexpected stage: %q %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %q %v", rid, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	ctx = WithSessionID(ctx, "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be ignored")
	}
	if _, ok := SessionIDFromContext(ctx); ok {
		t.Fatal("expected empty session id to be ignored")
	}
	if _, ok := ProjectIDFromContext(ctx); ok {
		t.Fatal("expected missing project id")
	}
}
