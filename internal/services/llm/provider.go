package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
)

// ProviderType identifies an AI text backend
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI chat completions API
	ProviderOpenAI ProviderType = "openai"
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// Service routes text generation to the configured provider. It implements
// interfaces.TextGenerator; clients are created lazily on first use.
type Service struct {
	config *common.LLMConfig
	logger arbor.ILogger

	openai *openaiClient
	claude *claudeClient
	gemini *geminiClient
}

// NewService creates the provider-routing text generation service
func NewService(config *common.LLMConfig, logger arbor.ILogger) interfaces.TextGenerator {
	return &Service{
		config: config,
		logger: logger,
	}
}

// DetectProvider determines the provider from an explicit provider name or a
// model string. Model strings can carry a provider prefix ("claude/...") or
// be matched by naming convention ("gpt-", "claude-", "gemini-"). An empty
// request falls back to the configured default provider.
func (s *Service) DetectProvider(provider, model string) ProviderType {
	if provider != "" {
		switch ProviderType(strings.ToLower(provider)) {
		case ProviderOpenAI, ProviderClaude, ProviderGemini:
			return ProviderType(strings.ToLower(provider))
		}
	}

	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "openai/"), strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1-"), strings.HasPrefix(m, "o3-"):
		return ProviderOpenAI
	case strings.HasPrefix(m, "claude/"), strings.HasPrefix(m, "anthropic/"), strings.HasPrefix(m, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(m, "gemini/"), strings.HasPrefix(m, "google/"), strings.HasPrefix(m, "gemini-"):
		return ProviderGemini
	}

	return ProviderType(s.config.DefaultProvider)
}

// NormalizeModel removes a provider prefix from the model name if present
func NormalizeModel(model string) string {
	prefixes := []string{"openai/", "claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Generate produces text with the provider resolved from the request
func (s *Service) Generate(ctx context.Context, req *interfaces.TextRequest) (*interfaces.TextResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	provider := s.DetectProvider(req.Provider, req.Model)
	model := NormalizeModel(req.Model)

	s.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("prompt_len", len(req.Prompt)).
		Msg("Generating content with provider")

	var (
		text string
		err  error
	)
	switch provider {
	case ProviderOpenAI:
		text, model, err = s.generateWithOpenAI(ctx, req.Prompt, model)
	case ProviderClaude:
		text, model, err = s.generateWithClaude(ctx, req.Prompt, model)
	case ProviderGemini:
		text, model, err = s.generateWithGemini(ctx, req.Prompt, model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty response from %s API", provider)
	}

	return &interfaces.TextResponse{
		Text:     text,
		Provider: string(provider),
		Model:    model,
	}, nil
}
