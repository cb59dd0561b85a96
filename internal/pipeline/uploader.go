package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"pixiv_mirror/internal/domain"
)

// UploadCoordinator pushes a thumbnail to the blob store and the owning
// post's metadata to the content index, composing the public thumbnail URL
// in between.
type UploadCoordinator struct {
	blobs  BlobStore
	index  IndexService
	logger *slog.Logger
}

func NewUploadCoordinator(blobs BlobStore, index IndexService, logger *slog.Logger) *UploadCoordinator {
	return &UploadCoordinator{
		blobs:  blobs,
		index:  index,
		logger: logger.With("component", "uploader"),
	}
}

// Upload publishes thumbnailPath and submits the post record referencing
// both originalURL and the published thumbnail. The thumbnail file itself is
// cleaned up by the caller, not here.
func (u *UploadCoordinator) Upload(ctx context.Context, thumbnailPath, originalURL string, post domain.Post) (int64, error) {
	code, err := u.blobs.Upload(ctx, thumbnailPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrUploadFailure, thumbnailPath, err)
	}

	thumbnailURL := u.blobs.PublicURL(code)

	resultID, err := u.index.AddPost(ctx, originalURL, thumbnailURL, post.UploadTags(), post.Title, post.Caption)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrPostProcessing, originalURL, err)
	}

	u.logger.Debug("published asset",
		"post_id", post.ID,
		"original_url", originalURL,
		"thumbnail_url", thumbnailURL,
		"result_id", resultID,
	)

	return resultID, nil
}
