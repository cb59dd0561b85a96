package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"pixiv_mirror/internal/domain"
)

// Doer executes a single HTTP request. Satisfied by *transport.LimitedClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds fetcher configuration.
type Config struct {
	StagingDir  string
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Referer     string
}

// Fetcher downloads a single remote asset to the staging directory with
// bounded retry and jittered backoff. A failed attempt never leaves a partial
// file behind; the staging file exists only after the final successful
// attempt.
type Fetcher struct {
	client      Doer
	stagingDir  string
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	referer     string
	sleep       func(ctx context.Context, d time.Duration)
	jitter      func(min, max time.Duration) time.Duration
	logger      *slog.Logger
}

// New creates a fetcher backed by client.
func New(client Doer, cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:      client,
		stagingDir:  cfg.StagingDir,
		maxAttempts: cfg.MaxAttempts,
		backoffMin:  cfg.BackoffMin,
		backoffMax:  cfg.BackoffMax,
		referer:     cfg.Referer,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
		jitter: func(min, max time.Duration) time.Duration {
			return min + time.Duration(rand.Int63n(int64(max-min)))
		},
		logger: logger.With("component", "fetcher"),
	}
}

// Fetch downloads rawURL to a staging file named after the URL's last path
// segment and returns the local path. It retries on transport errors and on
// files that do not decode as images, sleeping a uniformly random duration
// between attempts. When the attempt budget is spent it returns
// domain.ErrDownloadExhausted; an attempt budget of zero fails immediately
// with no request issued.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	localPath, err := f.stagingPath(rawURL)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		// Drop any stale file from a previous attempt before writing.
		_ = os.Remove(localPath)

		err := f.downloadOnce(ctx, rawURL, localPath)
		if err == nil {
			return localPath, nil
		}

		_ = os.Remove(localPath)

		if attempt == f.maxAttempts {
			break
		}

		wait := f.jitter(f.backoffMin, f.backoffMax)
		f.logger.Warn("download failed, retrying",
			"url", rawURL,
			"attempt", attempt,
			"remaining", f.maxAttempts-attempt,
			"backoff", wait,
			"error", err,
		)
		f.sleep(ctx, wait)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
	}

	return "", fmt.Errorf("fetch %s after %d attempts: %w", rawURL, f.maxAttempts, domain.ErrDownloadExhausted)
}

func (f *Fetcher) downloadOnce(ctx context.Context, rawURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Referer", f.referer)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}

	_, err = io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write staging file: %w", err)
	}

	if _, err := imaging.Open(localPath); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAsset, localPath)
	}

	return nil
}

func (f *Fetcher) stagingPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse asset url: %w", err)
	}
	return filepath.Join(f.stagingDir, path.Base(u.Path)), nil
}
