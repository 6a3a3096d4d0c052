package imageai

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
	"google.golang.org/genai"
)

const watermarkDirective = "이미지에 워터마크나 로고가 있다면 자연스럽게 제거해주세요."

// Service transforms and generates manuscript images through the Gemini
// image model. It implements interfaces.ImageTransformer and
// interfaces.ImageGenerator.
type Service struct {
	config *common.ImageAIConfig
	apiKey string
	logger arbor.ILogger
	client *genai.Client
}

// NewService creates the Gemini-backed image service. The API key is shared
// with the Gemini text provider.
func NewService(config *common.ImageAIConfig, apiKey string, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		apiKey: apiKey,
		logger: logger,
	}
}

func (s *Service) getClient(ctx context.Context) (*genai.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	return client, nil
}

// ProcessImage rewrites a source image per the template prompt. When the AI
// call fails the original image is copied through unchanged so one bad
// transform does not cost the manuscript an image slot.
func (s *Service) ProcessImage(ctx context.Context, req *interfaces.TransformRequest, outputDir, filename string) (string, error) {
	outputPath := filepath.Join(outputDir, filename)

	transformed, err := s.transform(ctx, req)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source", req.SourcePath).
			Msg("Image transform failed, copying original")
		if copyErr := copyFile(req.SourcePath, outputPath); copyErr != nil {
			return "", fmt.Errorf("transform failed and copy fallback failed: %w", copyErr)
		}
		return outputPath, nil
	}

	if err := writeImage(outputPath, transformed); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (s *Service) transform(ctx context.Context, req *interfaces.TransformRequest) ([]byte, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source image: %w", err)
	}

	prompt := req.Prompt
	if req.RemoveWatermark {
		prompt = prompt + "\n" + watermarkDirective
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(data, mimeTypeForPath(req.SourcePath)),
			genai.NewPartFromText(prompt),
		},
	}}

	return s.generateImageBytes(ctx, client, contents)
}

// GenerateImage creates a brand-new image from the template prompt plus
// article context
func (s *Service) GenerateImage(ctx context.Context, req *interfaces.GenerateImageRequest, outputDir, filename string) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	prompt := req.Prompt
	if req.Context != "" {
		prompt = prompt + "\n\n" + req.Context
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	data, err := s.generateImageBytes(ctx, client, contents)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, filename)
	if err := writeImage(outputPath, data); err != nil {
		return "", err
	}
	return outputPath, nil
}

// generateImageBytes runs the model and returns the first inline image part
func (s *Service) generateImageBytes(ctx context.Context, client *genai.Client, contents []*genai.Content) ([]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini image call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini image API")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("no image data in Gemini response")
}

func mimeTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func writeImage(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
