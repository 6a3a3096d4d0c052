package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

// Service runs the manuscript generation pipeline for one claimed job:
// prompt assembly, LLM call, image processing and placement, persistence.
type Service struct {
	manuscripts interfaces.ManuscriptStorage
	sources     interfaces.SourceStorage
	text        interfaces.TextGenerator
	transformer interfaces.ImageTransformer
	generator   interfaces.ImageGenerator
	store       interfaces.ObjectStore
	scratchDir  string
	logger      arbor.ILogger
}

// NewService wires the generation pipeline. scratchDir holds AI image output
// before upload to the object store.
func NewService(
	manuscripts interfaces.ManuscriptStorage,
	sources interfaces.SourceStorage,
	text interfaces.TextGenerator,
	transformer interfaces.ImageTransformer,
	generator interfaces.ImageGenerator,
	store interfaces.ObjectStore,
	scratchDir string,
	logger arbor.ILogger,
) *Service {
	return &Service{
		manuscripts: manuscripts,
		sources:     sources,
		text:        text,
		transformer: transformer,
		generator:   generator,
		store:       store,
		scratchDir:  scratchDir,
		logger:      logger,
	}
}

type storedImage struct {
	key           string
	url           string
	sourceImageID uint64
}

// Generate executes the pipeline for a claimed generation job. The source
// worker claim is released on the way out, success or failure.
func (s *Service) Generate(ctx context.Context, payload *models.GeneratePayload) error {
	source, err := s.sources.GetByID(ctx, payload.SourceID)
	if err != nil {
		return fmt.Errorf("source %d not found: %w", payload.SourceID, err)
	}

	defer func() {
		if err := s.sources.RemoveWorker(context.WithoutCancel(ctx), payload.SourceID, payload.UserID); err != nil {
			s.logger.Warn().Err(err).
				Int64("source_id", int64(payload.SourceID)).
				Int64("user_id", int64(payload.UserID)).
				Msg("Failed to release source worker")
		}
	}()

	sourceImages, err := s.sources.ImagesBySource(ctx, payload.SourceID)
	if err != nil {
		return fmt.Errorf("failed to load source images: %w", err)
	}

	// 1. Prompt assembly and LLM call
	prompt := BuildPrompt(payload.PromptContent, source.ContentHTML, payload.Keyword, payload.LengthOption)
	resp, err := s.text.Generate(ctx, &interfaces.TextRequest{
		Prompt:   prompt,
		Provider: payload.ModelProvider,
		Model:    payload.ModelName,
	})
	if err != nil {
		return fmt.Errorf("text generation failed: %w", err)
	}
	contentHTML := resp.Text

	s.logger.Info().
		Int64("manuscript_id", int64(payload.ManuscriptID)).
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("content_len", len(contentHTML)).
		Msg("Manuscript text generated")

	scratchDir := filepath.Join(s.scratchDir, fmt.Sprintf("%d", payload.ManuscriptID))

	// 2. Transform source images. A failed transform costs one image, not
	// the manuscript.
	processed := make([]storedImage, 0, len(sourceImages))
	for i, srcImg := range sourceImages {
		filename := fmt.Sprintf("original_%d.png", i+1)
		localPath, err := s.transformer.ProcessImage(ctx, &interfaces.TransformRequest{
			SourcePath:      srcImg.LocalPath,
			Prompt:          payload.ImageTemplate.OriginalImagePrompt,
			RemoveWatermark: payload.ImageTemplate.RemoveWatermark,
		}, scratchDir, filename)
		if err != nil {
			s.logger.Warn().Err(err).
				Int64("source_image_id", int64(srcImg.ID)).
				Msg("Image transform failed, skipping image")
			continue
		}

		stored, err := s.storeImage(ctx, localPath, payload.ManuscriptID, filename)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", localPath).Msg("Image upload failed, skipping image")
			continue
		}
		stored.sourceImageID = srcImg.ID
		processed = append(processed, *stored)
	}

	// 3. Generate brand-new images grounded on the article context
	var generated []storedImage
	if payload.NewImageCount > 0 && payload.ImageTemplate.NewImagePrompt != "" {
		imageContext := BuildImageContext(source.Title, payload.Keyword, StripHTMLToText(source.ContentHTML))
		for i := 0; i < payload.NewImageCount; i++ {
			filename := fmt.Sprintf("generated_%d.png", i+1)
			localPath, err := s.generator.GenerateImage(ctx, &interfaces.GenerateImageRequest{
				Prompt:  payload.ImageTemplate.NewImagePrompt,
				Context: imageContext,
			}, scratchDir, filename)
			if err != nil {
				s.logger.Warn().Err(err).Int("index", i+1).Msg("Image generation failed, skipping image")
				continue
			}

			stored, err := s.storeImage(ctx, localPath, payload.ManuscriptID, filename)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", localPath).Msg("Image upload failed, skipping image")
				continue
			}
			generated = append(generated, *stored)
		}
	}

	// 4. Weave images into the manuscript body, processed first
	allURLs := make([]string, 0, len(processed)+len(generated))
	for _, img := range processed {
		allURLs = append(allURLs, img.url)
	}
	for _, img := range generated {
		allURLs = append(allURLs, img.url)
	}
	if len(allURLs) > 0 {
		contentHTML = InsertImagesIntoHTML(contentHTML, allURLs)
	}

	// 5. Persist body and image records
	if err := s.manuscripts.UpdateContent(ctx, payload.ManuscriptID, contentHTML); err != nil {
		return fmt.Errorf("failed to store manuscript content: %w", err)
	}

	sortOrder := 0
	for _, img := range processed {
		if err := s.createImageRecord(ctx, payload.ManuscriptID, models.ImageTypeOriginalProcessed, img, sortOrder); err != nil {
			return err
		}
		sortOrder++
	}
	for _, img := range generated {
		if err := s.createImageRecord(ctx, payload.ManuscriptID, models.ImageTypeGenerated, img, sortOrder); err != nil {
			return err
		}
		sortOrder++
	}

	s.logger.Info().
		Int64("manuscript_id", int64(payload.ManuscriptID)).
		Int("processed_images", len(processed)).
		Int("generated_images", len(generated)).
		Msg("Manuscript generation finished")
	return nil
}

// storeImage uploads a scratch file to the object store and removes the
// local copy
func (s *Service) storeImage(ctx context.Context, localPath string, manuscriptID uint64, filename string) (*storedImage, error) {
	key := fmt.Sprintf("manuscripts/%d/%s", manuscriptID, filename)
	obj, err := s.store.Upload(ctx, localPath, key)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", localPath).Msg("Failed to clean up scratch image")
	}
	return &storedImage{key: obj.Key, url: obj.URL}, nil
}

func (s *Service) createImageRecord(ctx context.Context, manuscriptID uint64, imageType models.ManuscriptImageType, img storedImage, sortOrder int) error {
	record := &models.ManuscriptImage{
		ManuscriptID:          manuscriptID,
		ImageType:             imageType,
		OriginalSourceImageID: img.sourceImageID,
		FilePath:              img.key,
		FileURL:               img.url,
		SortOrder:             sortOrder,
	}
	if err := s.manuscripts.CreateImage(ctx, record); err != nil {
		return fmt.Errorf("failed to record manuscript image: %w", err)
	}
	return nil
}
