package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
	"github.com/wongohq/wongo/internal/models"
)

type fakeManuscripts struct {
	mu      sync.Mutex
	content map[uint64]string
	status  map[uint64]models.ManuscriptStatus
	images  []models.ManuscriptImage
}

func newFakeManuscripts() *fakeManuscripts {
	return &fakeManuscripts{
		content: make(map[uint64]string),
		status:  make(map[uint64]models.ManuscriptStatus),
	}
}

func (f *fakeManuscripts) Create(ctx context.Context, m *models.Manuscript) error { return nil }
func (f *fakeManuscripts) GetByID(ctx context.Context, id uint64) (*models.Manuscript, error) {
	return nil, interfaces.ErrNotFound
}
func (f *fakeManuscripts) UpdateContent(ctx context.Context, id uint64, contentHTML string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[id] = contentHTML
	f.status[id] = models.ManuscriptStatusGenerated
	return nil
}
func (f *fakeManuscripts) UpdateStatus(ctx context.Context, id uint64, status models.ManuscriptStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = status
	return nil
}
func (f *fakeManuscripts) Detach(ctx context.Context, id uint64, title, url string) error {
	return nil
}
func (f *fakeManuscripts) CreateImage(ctx context.Context, image *models.ManuscriptImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, *image)
	return nil
}
func (f *fakeManuscripts) ImagesByManuscript(ctx context.Context, manuscriptID uint64) ([]models.ManuscriptImage, error) {
	return f.images, nil
}
func (f *fakeManuscripts) BySourceID(ctx context.Context, sourceID uint64) ([]models.Manuscript, error) {
	return nil, nil
}

type fakeSources struct {
	source        *models.Source
	images        []models.SourceImage
	workerRemoved bool
}

func (f *fakeSources) Create(ctx context.Context, source *models.Source) error { return nil }
func (f *fakeSources) GetByID(ctx context.Context, id uint64) (*models.Source, error) {
	if f.source == nil || f.source.ID != id {
		return nil, interfaces.ErrNotFound
	}
	return f.source, nil
}
func (f *fakeSources) FindByURLHash(ctx context.Context, hash string) (*models.Source, error) {
	return nil, nil
}
func (f *fakeSources) UpdateThumbnailLocalPath(ctx context.Context, id uint64, localPath string) error {
	return nil
}
func (f *fakeSources) CreateImage(ctx context.Context, image *models.SourceImage) error { return nil }
func (f *fakeSources) ImagesBySource(ctx context.Context, sourceID uint64) ([]models.SourceImage, error) {
	return f.images, nil
}
func (f *fakeSources) AddWorker(ctx context.Context, sourceID, userID uint64) error { return nil }
func (f *fakeSources) RemoveWorker(ctx context.Context, sourceID, userID uint64) error {
	f.workerRemoved = true
	return nil
}
func (f *fakeSources) SnapshotAndDetachExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
func (f *fakeSources) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type fakeText struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeText) Generate(ctx context.Context, req *interfaces.TextRequest) (*interfaces.TextResponse, error) {
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.TextResponse{Text: f.response, Provider: "fake", Model: "fake-1"}, nil
}

// fakeTransformer fails for source paths listed in failFor
type fakeTransformer struct {
	failFor map[string]bool
}

func (f *fakeTransformer) ProcessImage(ctx context.Context, req *interfaces.TransformRequest, outputDir, filename string) (string, error) {
	if f.failFor[req.SourcePath] {
		return "", fmt.Errorf("transform rejected")
	}
	path := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("png"), 0644)
}

type fakeGenerator struct {
	failAll bool
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req *interfaces.GenerateImageRequest, outputDir, filename string) (string, error) {
	if f.failAll {
		return "", fmt.Errorf("generation rejected")
	}
	path := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("png"), 0644)
}

type fakeObjectStore struct {
	uploads []string
}

func (f *fakeObjectStore) Upload(ctx context.Context, localPath, key string) (*interfaces.StoredObject, error) {
	f.uploads = append(f.uploads, key)
	return &interfaces.StoredObject{Key: key, URL: "https://cdn.example.com/" + key}, nil
}
func (f *fakeObjectStore) Delete(ctx context.Context, key string) error { return nil }

func testPayload() *models.GeneratePayload {
	return &models.GeneratePayload{
		ManuscriptID:  42,
		UserID:        7,
		SourceID:      1,
		PromptContent: "재작성: {원문}",
		Keyword:       "맛집",
		LengthOption:  models.LengthShort,
		NewImageCount: 2,
		ImageTemplate: models.ImageTemplate{
			OriginalImagePrompt: "이미지를 자연스럽게 변형",
			NewImagePrompt:      "기사에 어울리는 이미지",
			RemoveWatermark:     true,
		},
	}
}

func testFixtures(t *testing.T, imageCount int) *fakeSources {
	t.Helper()
	dir := t.TempDir()
	sources := &fakeSources{
		source: &models.Source{
			ID:          1,
			Title:       "기사 제목",
			ContentHTML: "<p>원문 내용</p>",
		},
	}
	for i := 0; i < imageCount; i++ {
		path := filepath.Join(dir, fmt.Sprintf("src_%d.jpg", i+1))
		require.NoError(t, os.WriteFile(path, []byte("jpg"), 0644))
		sources.images = append(sources.images, models.SourceImage{
			ID:        uint64(i + 1),
			SourceID:  1,
			LocalPath: path,
		})
	}
	return sources
}

func TestGeneratePipelineHappyPath(t *testing.T) {
	manuscripts := newFakeManuscripts()
	sources := testFixtures(t, 2)
	text := &fakeText{response: "<p>첫 문단</p>\n<p>둘째 문단</p>\n<p>셋째 문단</p>"}
	store := &fakeObjectStore{}

	svc := NewService(manuscripts, sources, text, &fakeTransformer{}, &fakeGenerator{}, store, t.TempDir(), arbor.NewLogger())

	err := svc.Generate(context.Background(), testPayload())
	require.NoError(t, err)

	// Prompt carried the substituted body and length directive
	assert.Contains(t, text.lastPrompt, "<p>원문 내용</p>")
	assert.Contains(t, text.lastPrompt, "500자 내외의 짧은 글")

	// 2 processed + 2 generated images uploaded and recorded in order
	assert.Len(t, store.uploads, 4)
	require.Len(t, manuscripts.images, 4)
	assert.Equal(t, models.ImageTypeOriginalProcessed, manuscripts.images[0].ImageType)
	assert.Equal(t, models.ImageTypeGenerated, manuscripts.images[3].ImageType)
	for i, img := range manuscripts.images {
		assert.Equal(t, i, img.SortOrder)
	}

	content := manuscripts.content[42]
	assert.Contains(t, content, "manuscripts/42/original_1.png")
	assert.Contains(t, content, "manuscripts/42/generated_2.png")
	assert.Equal(t, models.ManuscriptStatusGenerated, manuscripts.status[42])
	assert.True(t, sources.workerRemoved)
}

func TestGenerateToleratesPartialImageFailures(t *testing.T) {
	manuscripts := newFakeManuscripts()
	sources := testFixtures(t, 3)
	text := &fakeText{response: "<p>본문</p>"}

	// Two of the three source images fail to transform; all new image
	// generations fail
	transformer := &fakeTransformer{failFor: map[string]bool{
		sources.images[0].LocalPath: true,
		sources.images[2].LocalPath: true,
	}}

	svc := NewService(manuscripts, sources, text, transformer, &fakeGenerator{failAll: true}, &fakeObjectStore{}, t.TempDir(), arbor.NewLogger())

	err := svc.Generate(context.Background(), testPayload())
	require.NoError(t, err)

	// The one surviving image is placed; the manuscript still completes
	require.Len(t, manuscripts.images, 1)
	assert.Equal(t, uint64(2), manuscripts.images[0].OriginalSourceImageID)
	assert.Equal(t, models.ManuscriptStatusGenerated, manuscripts.status[42])
}

func TestGenerateFailsOnEmptySource(t *testing.T) {
	svc := NewService(newFakeManuscripts(), &fakeSources{}, &fakeText{response: "x"}, &fakeTransformer{}, &fakeGenerator{}, &fakeObjectStore{}, t.TempDir(), arbor.NewLogger())

	err := svc.Generate(context.Background(), testPayload())
	assert.Error(t, err)
}

func TestGenerateReleasesWorkerOnLLMFailure(t *testing.T) {
	sources := testFixtures(t, 0)
	text := &fakeText{err: fmt.Errorf("provider down")}

	svc := NewService(newFakeManuscripts(), sources, text, &fakeTransformer{}, &fakeGenerator{}, &fakeObjectStore{}, t.TempDir(), arbor.NewLogger())

	err := svc.Generate(context.Background(), testPayload())
	require.Error(t, err)
	assert.True(t, sources.workerRemoved, "worker claim must be released on failure")
}
