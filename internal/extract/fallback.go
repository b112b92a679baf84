package extract

import (
	"context"
	"fmt"
)

// FallbackExtractor attempts a primary extractor first and falls back on error.
type FallbackExtractor struct {
	primary  Extractor
	fallback Extractor
}

func NewFallbackExtractor(primary Extractor, fallback Extractor) *FallbackExtractor {
	return &FallbackExtractor{
		primary:  primary,
		fallback: fallback,
	}
}

// Primary returns the preferred extractor used before fallback.
func (f *FallbackExtractor) Primary() Extractor {
	if f == nil {
		return nil
	}
	return f.primary
}

// Secondary returns the fallback extractor.
func (f *FallbackExtractor) Secondary() Extractor {
	if f == nil {
		return nil
	}
	return f.fallback
}

func (f *FallbackExtractor) Name() string {
	return NameOf(f.primary) + "+" + NameOf(f.fallback)
}

func (f *FallbackExtractor) Extract(ctx context.Context, req Request) (Extraction, error) {
	if f == nil || f.primary == nil {
		if f != nil && f.fallback != nil {
			return f.fallback.Extract(ctx, req)
		}
		return Extraction{}, fmt.Errorf("fallback extractor misconfigured")
	}
	ex, err := f.primary.Extract(ctx, req)
	if err == nil {
		return ex, nil
	}
	// Caller canceled; skip the fallback.
	if ctx.Err() != nil {
		return Extraction{}, err
	}
	if f.fallback == nil {
		return Extraction{}, err
	}
	fallbackEx, fallbackErr := f.fallback.Extract(ctx, req)
	if fallbackErr != nil {
		return Extraction{}, fmt.Errorf("primary extractor error: %w; fallback extractor error: %v", err, fallbackErr)
	}
	return fallbackEx, nil
}
