package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type errExtractor struct{}

func (errExtractor) Extract(context.Context, Request) (Extraction, error) {
	return Extraction{}, ErrExtraction
}

type okExtractor struct {
	intent Intent
}

func (o okExtractor) Extract(context.Context, Request) (Extraction, error) {
	return Extraction{Intent: o.intent}, nil
}

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) Extract(context.Context, Request) (Extraction, error) {
	c.calls++
	return Extraction{Intent: IntentUnclear}, nil
}

type cancelExtractor struct{}

func (cancelExtractor) Extract(ctx context.Context, _ Request) (Extraction, error) {
	return Extraction{}, ctx.Err()
}

func TestFallbackExtractorUsesFallback(t *testing.T) {
	f := NewFallbackExtractor(errExtractor{}, okExtractor{intent: IntentCancel})
	ex, err := f.Extract(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ex.Intent != IntentCancel {
		t.Fatalf("Intent = %q, want cancel", ex.Intent)
	}
}

func TestFallbackExtractorPrefersPrimary(t *testing.T) {
	fb := &countingExtractor{}
	f := NewFallbackExtractor(okExtractor{intent: IntentConfirm}, fb)
	ex, err := f.Extract(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ex.Intent != IntentConfirm {
		t.Fatalf("Intent = %q, want confirm", ex.Intent)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback should not be called, calls = %d", fb.calls)
	}
}

func TestFallbackExtractorSkipsFallbackOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fb := &countingExtractor{}
	f := NewFallbackExtractor(cancelExtractor{}, fb)
	_, err := f.Extract(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback should not be called, calls = %d", fb.calls)
	}
}

func TestFallbackExtractorReportsBothErrors(t *testing.T) {
	f := NewFallbackExtractor(errExtractor{}, errExtractor{})
	_, err := f.Extract(context.Background(), Request{})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
	if !strings.Contains(err.Error(), "fallback extractor error") {
		t.Fatalf("error = %q, want both failures named", err.Error())
	}
}

func TestFallbackExtractorName(t *testing.T) {
	f := NewFallbackExtractor(errExtractor{}, NewRuleExtractor(nil, nil))
	if got := f.Name(); got != "custom+rules" {
		t.Fatalf("Name() = %q, want custom+rules", got)
	}
}
