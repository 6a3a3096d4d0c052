package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

type geminiClient struct {
	client *genai.Client
}

func (s *Service) getGeminiClient(ctx context.Context) (*geminiClient, error) {
	if s.gemini != nil {
		return s.gemini, nil
	}

	apiKey := s.config.Gemini.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s.gemini = &geminiClient{client: client}
	return s.gemini, nil
}

// generateWithGemini generates content using the Gemini API
func (s *Service) generateWithGemini(ctx context.Context, prompt, model string) (string, string, error) {
	c, err := s.getGeminiClient(ctx)
	if err != nil {
		return "", "", err
	}

	if model == "" {
		model = s.config.Gemini.Model
	}

	config := &genai.GenerateContentConfig{}
	if s.config.Gemini.Temperature > 0 {
		config.Temperature = genai.Ptr(s.config.Gemini.Temperature)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = c.client.Models.GenerateContent(ctx, model, contents, config)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", "", fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", fmt.Errorf("empty response from Gemini API")
	}

	return resp.Text(), model, nil
}
