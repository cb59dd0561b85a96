package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"pixiv_mirror/internal/domain"
)

// PostSource is a lazy page-at-a-time traversal of one author's listing.
// Next returns nil once the listing is exhausted.
type PostSource interface {
	Next(ctx context.Context) ([]domain.Post, error)
}

// PostProcessor resolves one post's full fan-out.
type PostProcessor interface {
	Process(ctx context.Context, post domain.Post) (domain.PostOutcome, error)
}

// OpenSource starts a traversal for one author id.
type OpenSource func(authorID int64) PostSource

// Scheduler walks a list of authors in fixed-size batches. Authors within a
// batch run concurrently; the next batch starts only after every traversal
// and fan-out of the previous batch has resolved. The shared transport's
// connection cap is the only finer-grained throttle.
type Scheduler struct {
	open      OpenSource
	posts     PostProcessor
	batchSize int
	logger    *slog.Logger

	mu    sync.Mutex
	stats domain.RunStats
}

func New(open OpenSource, posts PostProcessor, batchSize int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		open:      open,
		posts:     posts,
		batchSize: batchSize,
		logger:    logger.With("component", "scheduler"),
	}
}

// Run processes every author id and returns aggregate counters. It stops
// early only on an unexpected error or context cancellation; per-asset
// failures are already absorbed downstream.
func (s *Scheduler) Run(ctx context.Context, authorIDs []int64) (*domain.RunStats, error) {
	s.mu.Lock()
	s.stats = domain.RunStats{Authors: len(authorIDs)}
	s.mu.Unlock()

	for start := 0; start < len(authorIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(authorIDs) {
			end = len(authorIDs)
		}
		batch := authorIDs[start:end]

		s.logger.Info("starting batch", "authors", batch)

		g := new(errgroup.Group)
		for _, authorID := range batch {
			authorID := authorID
			g.Go(func() error {
				return s.processAuthor(ctx, authorID)
			})
		}
		if err := g.Wait(); err != nil {
			return s.snapshot(), err
		}
	}

	return s.snapshot(), nil
}

func (s *Scheduler) processAuthor(ctx context.Context, authorID int64) error {
	s.logger.Info("traversing author", "author_id", authorID)

	source := s.open(authorID)

	g := new(errgroup.Group)
	for {
		posts, err := source.Next(ctx)
		if err != nil {
			// Posts already in flight still run to completion.
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		if posts == nil {
			break
		}

		for _, post := range posts {
			post := post
			g.Go(func() error {
				outcome, err := s.posts.Process(ctx, post)
				s.record(outcome)
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("finished author", "author_id", authorID)
	return nil
}

func (s *Scheduler) record(outcome domain.PostOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Posts++
	s.stats.AssetsUploaded += outcome.Uploaded
	s.stats.AssetsFailed += outcome.Failed
	if outcome.ManifestWritten {
		s.stats.ManifestsWritten++
	}
}

func (s *Scheduler) snapshot() *domain.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	return &stats
}
