package imagestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestFilesystemStoreUploadAndDelete(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFilesystemStore(baseDir, "/uploads/manuscripts", arbor.NewLogger())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "img.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg-bytes"), 0644))

	ctx := context.Background()
	obj, err := store.Upload(ctx, src, "manuscripts/42/img_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/manuscripts/manuscripts/42/img_1.jpg", obj.URL)

	stored, err := os.ReadFile(filepath.Join(baseDir, "manuscripts", "42", "img_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), stored)

	require.NoError(t, store.Delete(ctx, "manuscripts/42/img_1.jpg"))
	// Deleting an absent key is a no-op
	require.NoError(t, store.Delete(ctx, "manuscripts/42/img_1.jpg"))
}
