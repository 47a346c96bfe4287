package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regscope/regscope/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractionPerSourceOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		PromptExtractDefault: writeFile(t, dir, "default.md", "default prompt"),
		PromptExtractBySrc: map[string]string{
			"FCC": writeFile(t, dir, "fcc.md", "fcc prompt"),
		},
		PromptTranslate: writeFile(t, dir, "translate.md", "translate prompt"),
	}
	s := NewStore(cfg)

	text, err := s.Extraction("fcc")
	require.NoError(t, err)
	assert.Equal(t, "fcc prompt", text)

	// Source lookup is case-insensitive.
	text, err = s.Extraction("FCC")
	require.NoError(t, err)
	assert.Equal(t, "fcc prompt", text)

	// Unconfigured sources get the default.
	text, err = s.Extraction("ofcom")
	require.NoError(t, err)
	assert.Equal(t, "default prompt", text)
}

func TestExtractionFallbackOnUnreadableOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		PromptExtractDefault: writeFile(t, dir, "default.md", "default prompt"),
		PromptExtractBySrc: map[string]string{
			"FCC": filepath.Join(dir, "missing.md"),
		},
	}
	s := NewStore(cfg)

	text, err := s.Extraction("fcc")
	require.NoError(t, err)
	assert.Equal(t, "default prompt", text)
}

func TestTranslation(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		PromptTranslate: writeFile(t, dir, "translate.md", "translate prompt\n"),
	}
	s := NewStore(cfg)

	text, err := s.Translation()
	require.NoError(t, err)
	assert.Equal(t, "translate prompt", text)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(&config.Config{
		PromptExtractDefault: writeFile(t, dir, "empty.md", "   \n"),
		PromptTranslate:      "",
	})

	_, err := s.Extraction("fcc")
	assert.Error(t, err)

	_, err = s.Translation()
	assert.Error(t, err)
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.md", "first")
	s := NewStore(&config.Config{PromptExtractDefault: path})

	text, err := s.Extraction("any")
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	// Changing the file does not affect the cached copy.
	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))
	text, err = s.Extraction("any")
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}
