package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pixiv_mirror/internal/domain"
)

// FanOut expands one post into its ordered assets, runs the asset pipeline
// concurrently over all of them, and records a failure manifest when any
// asset resolved without a result. Every asset is always attempted; there is
// no early abort on the first failure.
type FanOut struct {
	assets    AssetProcessor
	manifests ManifestStore
	logger    *slog.Logger
}

func NewFanOut(assets AssetProcessor, manifests ManifestStore, logger *slog.Logger) *FanOut {
	return &FanOut{
		assets:    assets,
		manifests: manifests,
		logger:    logger.With("component", "fanout"),
	}
}

// Process resolves all of post's assets and reports the aggregated outcome.
// The result list keeps the post's original asset order regardless of
// completion order.
func (f *FanOut) Process(ctx context.Context, post domain.Post) (domain.PostOutcome, error) {
	f.logger.Info("processing post", "post_id", post.ID, "assets", len(post.AssetURLs))

	results := make([]domain.UploadResult, len(post.AssetURLs))

	g := new(errgroup.Group)
	for i, assetURL := range post.AssetURLs {
		i, assetURL := i, assetURL
		g.Go(func() error {
			id, err := f.assets.Process(ctx, post, assetURL)
			if err != nil {
				return err
			}
			results[i] = domain.UploadResult{ResultID: id}
			return nil
		})
	}
	runErr := g.Wait()

	var outcome domain.PostOutcome
	for _, r := range results {
		if r.ResultID == nil {
			outcome.Failed++
		} else {
			outcome.Uploaded++
		}
	}

	if outcome.Failed > 0 {
		if err := f.manifests.Write(post.ID, results); err != nil {
			return outcome, fmt.Errorf("record manifest for post %d: %w", post.ID, err)
		}
		outcome.ManifestWritten = true
	}

	if runErr != nil {
		return outcome, runErr
	}

	f.logger.Info("processed post",
		"post_id", post.ID,
		"uploaded", outcome.Uploaded,
		"failed", outcome.Failed,
	)
	return outcome, nil
}
