package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type claudeClient struct {
	client anthropic.Client
}

func (s *Service) getClaudeClient() (*claudeClient, error) {
	if s.claude != nil {
		return s.claude, nil
	}

	apiKey := s.config.Claude.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is not configured")
	}

	s.claude = &claudeClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
	return s.claude, nil
}

// generateWithClaude generates content using the Claude API
func (s *Service) generateWithClaude(ctx context.Context, prompt, model string) (string, string, error) {
	c, err := s.getClaudeClient()
	if err != nil {
		return "", "", err
	}

	if model == "" {
		model = s.config.Claude.Model
	}
	maxTokens := s.config.Claude.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var resp *anthropic.Message
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = c.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		}

		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", "", fmt.Errorf("Claude API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return text.String(), model, nil
}
