package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wongohq/wongo/internal/common"
)

const openaiChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

// openaiClient is a minimal chat completions client. There is no official
// Go SDK dependency here; the API surface needed is one JSON POST.
type openaiClient struct {
	httpClient *http.Client
	apiKey     string
}

type openaiChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (s *Service) getOpenAIClient() (*openaiClient, error) {
	if s.openai != nil {
		return s.openai, nil
	}

	apiKey := s.config.OpenAI.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}

	timeout := common.Duration(s.config.OpenAI.Timeout, 60*time.Second)
	s.openai = &openaiClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
	}
	return s.openai, nil
}

// generateWithOpenAI generates content using the OpenAI chat completions API
func (s *Service) generateWithOpenAI(ctx context.Context, prompt, model string) (string, string, error) {
	c, err := s.getOpenAIClient()
	if err != nil {
		return "", "", err
	}

	if model == "" {
		model = s.config.OpenAI.Model
	}

	reqBody := openaiChatRequest{
		Model: model,
		Messages: []openaiMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: s.config.OpenAI.MaxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		text, apiErr = c.complete(ctx, payload)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying OpenAI API call")

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", "", fmt.Errorf("OpenAI API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	return text, model, nil
}

func (c *openaiClient) complete(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiChatCompletionsURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed openaiChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("OpenAI API error: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI API")
	}

	return parsed.Choices[0].Message.Content, nil
}
