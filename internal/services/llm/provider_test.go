package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
)

func newTestService() *Service {
	return &Service{
		config: &common.LLMConfig{
			DefaultProvider: common.LLMProviderGemini,
		},
		logger: arbor.NewLogger(),
	}
}

func TestDetectProvider(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name     string
		provider string
		model    string
		want     ProviderType
	}{
		{"explicit provider wins", "claude", "gpt-4o", ProviderClaude},
		{"openai model prefix", "", "gpt-4o-mini", ProviderOpenAI},
		{"claude model prefix", "", "claude-sonnet-4-20250514", ProviderClaude},
		{"gemini model prefix", "", "gemini-2.0-flash", ProviderGemini},
		{"provider path prefix", "", "anthropic/claude-sonnet-4-20250514", ProviderClaude},
		{"empty falls back to default", "", "", ProviderGemini},
		{"unknown model falls back to default", "", "llama-3", ProviderGemini},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.DetectProvider(tt.provider, tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.0-flash", NormalizeModel("google/gemini-2.0-flash"))
	assert.Equal(t, "gpt-4o", NormalizeModel("gpt-4o"))
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	s := newTestService()

	_, err := s.Generate(context.Background(), &interfaces.TextRequest{Prompt: "   "})
	assert.Error(t, err)
}
