package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/receptionist/internal/catalog"
)

const (
	ModeAuto   = "auto"
	ModeRules  = "rules"
	ModeOpenAI = "openai"
	ModeGemini = "gemini"
)

// Config controls extractor construction.
type Config struct {
	Mode          string
	OpenAIBaseURL string
	OpenAIToken   string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
	Attempts      int
	Catalog       *catalog.Catalog
	Location      *time.Location
}

// NewExtractor builds the configured extractor. The returned cleanup releases
// model clients and is never nil.
func NewExtractor(ctx context.Context, cfg Config, logger *zap.Logger) (Extractor, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeAuto
	}
	rules := NewRuleExtractor(cfg.Catalog, cfg.Location)
	opts := ModelOptions{Timeout: cfg.Timeout, Attempts: cfg.Attempts}

	switch mode {
	case ModeRules:
		return rules, noop, nil
	case ModeOpenAI:
		gen, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: cfg.OpenAIBaseURL, Token: cfg.OpenAIToken, Model: cfg.OpenAIModel}, logger)
		if err != nil {
			return nil, noop, err
		}
		return NewModelExtractor(gen, cfg.Catalog, cfg.Location, opts, logger), noop, nil
	case ModeGemini:
		gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return NewModelExtractor(gen, cfg.Catalog, cfg.Location, opts, logger), gen.Close, nil
	case ModeAuto:
		return newAutoExtractor(ctx, cfg, opts, rules, logger)
	default:
		return nil, noop, fmt.Errorf("unsupported extractor mode %q", cfg.Mode)
	}
}

func newAutoExtractor(ctx context.Context, cfg Config, opts ModelOptions, rules *RuleExtractor, logger *zap.Logger) (Extractor, func() error, error) {
	noop := func() error { return nil }

	// Prefer a model when credentials exist, keeping the rules as a safety net.
	if strings.TrimSpace(cfg.OpenAIToken) != "" {
		gen, err := NewOpenAIGenerator(OpenAIConfig{BaseURL: cfg.OpenAIBaseURL, Token: cfg.OpenAIToken, Model: cfg.OpenAIModel}, logger)
		if err == nil {
			return NewFallbackExtractor(NewModelExtractor(gen, cfg.Catalog, cfg.Location, opts, logger), rules), noop, nil
		}
		logger.Warn("openai extractor unavailable, trying next option", zap.Error(err))
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err == nil {
			return NewFallbackExtractor(NewModelExtractor(gen, cfg.Catalog, cfg.Location, opts, logger), rules), gen.Close, nil
		}
		logger.Warn("gemini extractor unavailable, using rules", zap.Error(err))
	}
	return rules, noop, nil
}
