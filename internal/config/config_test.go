package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 180*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 25, cfg.MaxArticlesPerSite)
	assert.Equal(t, "this-week", cfg.DefaultDateRange)
	require.Len(t, cfg.Sources, 3)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("SCRAPE_TIMEOUT", "90s")
	t.Setenv("MAX_ARTICLES_PER_SITE", "10")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 10, cfg.MaxArticlesPerSite)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SCRAPE_TIMEOUT", "not-a-duration")
	t.Setenv("MAX_ARTICLES_PER_SITE", "not-a-number")

	cfg := Load()

	assert.Equal(t, 60*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 25, cfg.MaxArticlesPerSite)
}

func TestSourceLookup(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg := Load()

	src, ok := cfg.Source("SOUMU")
	require.True(t, ok)
	assert.Equal(t, "soumu", src.Name)
	assert.True(t, src.Headless)
	assert.Equal(t, SoumuDefaultKeywords, src.Keywords)

	src, ok = cfg.Source("fcc")
	require.True(t, ok)
	assert.False(t, src.Headless)

	_, ok = cfg.Source("nope")
	assert.False(t, ok)
}

func TestSourcesFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: fcc
    listingUrl: https://example.com/custom-listing
  - name: custom
    listingUrl: https://example.com/other
    headless: true
    keywords: [spectrum, licence]
`), 0o644))

	t.Setenv("APP_ENV", "test")
	t.Setenv(sourcesFileEnv, path)

	cfg := Load()

	require.Len(t, cfg.Sources, 2)
	src, ok := cfg.Source("custom")
	require.True(t, ok)
	assert.True(t, src.Headless)
	assert.Equal(t, []string{"spectrum", "licence"}, src.Keywords)
	src, _ = cfg.Source("fcc")
	assert.Equal(t, "https://example.com/custom-listing", src.ListingURL)
}

func TestValidateRequiresKeysOutsideTests(t *testing.T) {
	cfg := &Config{Env: "production"}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Env: "test"}
	assert.NoError(t, cfg.Validate())

	cfg = &Config{
		Env:             "production",
		FirecrawlAPIKey: "fc-key",
		OpenAIAPIKey:    "oa-key",
	}
	assert.NoError(t, cfg.Validate())
}
