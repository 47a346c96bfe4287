// Package prompts loads the LLM prompt texts used for extraction and
// translation. Prompts live in plain files so they can be tuned without
// a rebuild; loaded contents are cached for the life of the process.
package prompts

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/logger"
)

// Store resolves prompt texts per source, falling back to the default
// extraction prompt when a source has no override of its own.
type Store struct {
	cfg *config.Config

	mu    sync.Mutex
	cache map[string]string
}

// NewStore builds a prompt store over the configured prompt paths.
func NewStore(cfg *config.Config) *Store {
	return &Store{cfg: cfg, cache: map[string]string{}}
}

// Extraction returns the extraction prompt for a source. A per-source
// prompt path wins when configured and readable; otherwise the default
// extraction prompt is used.
func (s *Store) Extraction(source string) (string, error) {
	if path := s.sourcePath(source); path != "" {
		text, err := s.load(path)
		if err == nil {
			return text, nil
		}
		logger.Get().Warn().
			Err(err).
			Str("source", source).
			Str("path", path).
			Msg("Per-source prompt unreadable, falling back to default")
	}
	return s.load(s.cfg.PromptExtractDefault)
}

// Translation returns the translation prompt.
func (s *Store) Translation() (string, error) {
	return s.load(s.cfg.PromptTranslate)
}

func (s *Store) sourcePath(source string) string {
	source = strings.TrimSpace(source)
	for name, path := range s.cfg.PromptExtractBySrc {
		if strings.EqualFold(name, source) {
			return path
		}
	}
	return ""
}

func (s *Store) load(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("prompt path is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if text, ok := s.cache[path]; ok {
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt %s is empty", path)
	}

	s.cache[path] = text
	return text, nil
}
