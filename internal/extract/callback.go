package extract

import (
	"context"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

var _ callbacks.Handler = (*LogCallbackHandler)(nil)

// LogCallbackHandler reports langchaingo model errors and token usage to zap.
type LogCallbackHandler struct {
	callbacks.SimpleHandler
	logger *zap.Logger
}

func NewLogCallbackHandler(logger *zap.Logger) *LogCallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogCallbackHandler{logger: logger}
}

func (l *LogCallbackHandler) HandleLLMError(_ context.Context, err error) {
	l.logger.Error("LLM error", zap.Error(err))
}

func (l *LogCallbackHandler) HandleLLMGenerateContentEnd(_ context.Context, res *llms.ContentResponse) {
	if res == nil || len(res.Choices) == 0 {
		return
	}
	info := res.Choices[0].GenerationInfo
	l.logger.Debug("LLM generate content end",
		zap.String("stop_reason", res.Choices[0].StopReason),
		zap.Any("completion_tokens", info["CompletionTokens"]),
		zap.Any("prompt_tokens", info["PromptTokens"]),
	)
}
