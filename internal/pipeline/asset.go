package pipeline

import (
	"context"
	"log/slog"
	"os"

	"pixiv_mirror/internal/domain"
)

// AssetPipeline runs one asset sequentially through fetch, transcode and
// upload. Staging files never outlive a Process call: the original staged
// file is removed as soon as a distinct derivative exists, and the uploaded
// file is removed after the upload attempt whatever its outcome.
type AssetPipeline struct {
	fetcher  Fetcher
	thumbs   Thumbnailer
	uploader Uploader
	logger   *slog.Logger
}

func NewAssetPipeline(fetcher Fetcher, thumbs Thumbnailer, uploader Uploader, logger *slog.Logger) *AssetPipeline {
	return &AssetPipeline{
		fetcher:  fetcher,
		thumbs:   thumbs,
		uploader: uploader,
		logger:   logger.With("component", "asset_pipeline"),
	}
}

// Process returns the index's result identifier for the asset, or nil when
// the asset failed recoverably. Recoverable failures are logged and consumed
// here; only errors outside the taxonomy propagate.
func (p *AssetPipeline) Process(ctx context.Context, post domain.Post, assetURL string) (*int64, error) {
	stagedPath, err := p.fetcher.Fetch(ctx, assetURL)
	if err != nil {
		return p.recover(post, assetURL, "download", err)
	}

	thumbPath, err := p.thumbs.Create(stagedPath)
	if err != nil {
		_ = os.Remove(stagedPath)
		return p.recover(post, assetURL, "transcode", err)
	}

	if thumbPath != stagedPath {
		_ = os.Remove(stagedPath)
	}

	resultID, err := p.uploader.Upload(ctx, thumbPath, assetURL, post)
	_ = os.Remove(thumbPath)
	if err != nil {
		return p.recover(post, assetURL, "upload", err)
	}

	return &resultID, nil
}

// recover converts a taxonomy error into an absent result; anything else is
// unexpected and propagates to terminate the run.
func (p *AssetPipeline) recover(post domain.Post, assetURL, stage string, err error) (*int64, error) {
	if !domain.IsAssetFailure(err) {
		return nil, err
	}

	p.logger.Error("asset failed",
		"post_id", post.ID,
		"asset_url", assetURL,
		"stage", stage,
		"error", err,
	)
	return nil, nil
}
