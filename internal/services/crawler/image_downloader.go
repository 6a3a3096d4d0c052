package crawler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
)

// maxImageSize caps a single downloaded image at 20MB
const maxImageSize = 20 << 20

// ImageDownloader saves article images to the local sources directory
type ImageDownloader struct {
	client    *http.Client
	baseDir   string
	userAgent string
	logger    arbor.ILogger
}

// NewImageDownloader creates a downloader rooted at baseDir
func NewImageDownloader(client *http.Client, baseDir, userAgent string, logger arbor.ILogger) *ImageDownloader {
	return &ImageDownloader{
		client:    client,
		baseDir:   baseDir,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Download fetches an image URL and writes it under sourceID's directory.
// Returns the local path. Referer is set to the article URL since many news
// CDNs reject bare requests.
func (d *ImageDownloader) Download(imageURL, referer string, sourceID uint64, filename string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type: %s", contentType)
	}

	dir := filepath.Join(d.baseDir, fmt.Sprintf("%d", sourceID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	if filepath.Ext(filename) == "" {
		filename += extForContentType(contentType)
	}
	localPath := filepath.Join(dir, filename)

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxImageSize)); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	d.logger.Debug().
		Str("url", imageURL).
		Str("path", localPath).
		Msg("Image downloaded")
	return localPath, nil
}

func extForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
