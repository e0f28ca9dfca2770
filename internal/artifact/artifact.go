// Package artifact reads and writes the JSON snapshots each pipeline stage
// hands to the next. Every snapshot is a complete-replace document, not an
// append log, so rewriting the same content is a no-op beyond the write.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/models"
)

// ErrMissing reports an absent input artifact: a terminal condition for the
// stage that needed it, not a crash.
type ErrMissing struct {
	Path string
}

func (e *ErrMissing) Error() string {
	return fmt.Sprintf("input artifact %s does not exist; run the preceding stage first", e.Path)
}

// Load reads an article snapshot.
func Load(path string) ([]models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrMissing{Path: path}
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return articles, nil
}

// Save writes an article snapshot, replacing any previous content. The write
// goes through a temp file and rename so a failure cannot leave a truncated
// artifact behind.
func Save(path string, articles []models.Article) error {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("articles", len(articles)).
		Msg("Artifact written")
	return nil
}
