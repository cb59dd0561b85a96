package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"pixiv_mirror/internal/domain"
)

// Store persists per-post failure manifests as JSON files in the run's
// staging directory, one file per post id, holding the full ordered result
// list with null entries where an asset failed.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger.With("component", "manifest")}
}

// Write records the partial result list for postID.
func (s *Store) Write(postID int64, results []domain.UploadResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal manifest for post %d: %w", postID, err)
	}

	path := filepath.Join(s.dir, strconv.FormatInt(postID, 10))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest for post %d: %w", postID, err)
	}

	s.logger.Warn("recorded failure manifest", "post_id", postID, "path", path)
	return nil
}
