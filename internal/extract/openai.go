package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIConfig struct {
	// OpenAI-compatible base url, empty for the public API
	BaseURL string
	Token   string
	Model   string
}

// OpenAIGenerator calls an OpenAI-compatible chat endpoint through langchaingo.
type OpenAIGenerator struct {
	llm   llms.Model
	model string
}

func NewOpenAIGenerator(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, oops.In("extract").Errorf("openai token is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithModel(model),
		openai.WithCallback(NewLogCallbackHandler(logger)),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, oops.In("extract").With("model", model).Wrapf(err, "failed to create openai client")
	}
	return &OpenAIGenerator{llm: llm, model: model}, nil
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(0),
		llms.WithJSONMode(),
		llms.WithMaxTokens(800),
	)
	if err != nil {
		return "", fmt.Errorf("openai generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no chat completion found")
	}
	return resp.Choices[0].Content, nil
}
