package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"pixiv_mirror/internal/domain"
)

// Fetcher downloads one remote asset to local staging storage.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Thumbnailer validates a staged image and produces a size-bounded
// derivative, or passes the original path through.
type Thumbnailer interface {
	Create(path string) (string, error)
}

// BlobStore publishes a local file and exposes its stable public reference.
type BlobStore interface {
	Upload(ctx context.Context, path string) (string, error)
	PublicURL(code string) string
}

// IndexService submits one asset's post record to the content index.
type IndexService interface {
	AddPost(ctx context.Context, originalURL, thumbnailURL string, tags []string, title, description string) (int64, error)
}

// Uploader publishes a thumbnail plus post metadata downstream and returns
// the index's result identifier.
type Uploader interface {
	Upload(ctx context.Context, thumbnailPath, originalURL string, post domain.Post) (int64, error)
}

// AssetProcessor runs the full per-asset pipeline. A nil identifier with a
// nil error means the asset failed recoverably and was logged.
type AssetProcessor interface {
	Process(ctx context.Context, post domain.Post, assetURL string) (*int64, error)
}

// ManifestStore durably records a post's partial result list.
type ManifestStore interface {
	Write(postID int64, results []domain.UploadResult) error
}
