package imagestore

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/common"
	"github.com/wongohq/wongo/internal/interfaces"
)

// ManuscriptImageURLPrefix is the public path the filesystem store serves
// manuscript images under
const ManuscriptImageURLPrefix = "/uploads/manuscripts"

// NewObjectStore picks the store implementation from config: S3 when a
// bucket is configured, the local filesystem otherwise
func NewObjectStore(ctx context.Context, storage *common.StorageConfig, logger arbor.ILogger) (interfaces.ObjectStore, error) {
	if storage.S3.Bucket != "" {
		logger.Info().
			Str("bucket", storage.S3.Bucket).
			Str("region", storage.S3.Region).
			Msg("Using S3 image store")
		return NewS3Store(ctx, &storage.S3, logger)
	}

	logger.Info().
		Str("dir", storage.Filesystem.ManuscriptsDir).
		Msg("Using filesystem image store")
	return NewFilesystemStore(storage.Filesystem.ManuscriptsDir, ManuscriptImageURLPrefix, logger)
}
