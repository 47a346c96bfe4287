package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes one regulator site the auto-collectors know about.
type SourceConfig struct {
	Name       string   `yaml:"name"`
	ListingURL string   `yaml:"listingUrl"`
	Keywords   []string `yaml:"keywords"`
	// Headless routes the listing fetch through the scraping backend for
	// sites that require JavaScript rendering or a bot-challenge bypass.
	Headless bool `yaml:"headless"`
}

// Config holds all configuration for the application.
type Config struct {
	// Server
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Scraping backend (Firecrawl-compatible)
	FirecrawlAPIKey  string        `json:"-" validate:"required"`
	FirecrawlBaseURL string        `json:"firecrawl_base_url"`
	ScrapeTimeout    time.Duration `json:"scrape_timeout"`
	RenderTimeout    time.Duration `json:"render_timeout"`

	// Text-generation backend (OpenAI-compatible)
	OpenAIAPIKey  string        `json:"-" validate:"required"`
	OpenAIBaseURL string        `json:"openai_base_url"`
	OpenAIModel   string        `json:"openai_model"`
	OpenAITimeout time.Duration `json:"openai_timeout"`

	// Prompts
	PromptExtractDefault string            `json:"prompt_extract_default"`
	PromptExtractBySrc   map[string]string `json:"prompt_extract_by_source"`
	PromptTranslate      string            `json:"prompt_translate"`

	// Storage
	DatabasePath  string `json:"database_path"`
	AttachmentDir string `json:"attachment_dir"`

	// Redis (optional; in-memory fallback when empty)
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// Object storage mirror (optional, Cloudflare R2 / S3 compatible)
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`

	// Auto-collect
	Sources            []SourceConfig `json:"sources"`
	MaxArticlesPerSite int            `json:"max_articles_per_site"`
	DefaultDateRange   string         `json:"default_date_range"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"-"`
}

// SoumuDefaultKeywords is the keyword allow-list applied to the Soumu
// listing when the sources file does not override it. The ministry page
// mixes every policy area; only spectrum/wireless items are of interest.
var SoumuDefaultKeywords = []string{
	"周波数", "電波", "無線", "移動通信", "5G", "6G", "ミリ波",
	"基地局", "衛星", "Beyond 5G", "ローカル5G", "割当て", "割り当て",
}

const sourcesFileEnv = "REGSCOPE_SOURCES"

// Load reads configuration from environment variables (with .env support)
// and merges the optional YAML sources file, then validates the result.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		FirecrawlAPIKey:  getEnv("FIRECRAWL_API_KEY", ""),
		FirecrawlBaseURL: getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev/v1"),
		ScrapeTimeout:    getEnvAsDuration("SCRAPE_TIMEOUT", 60*time.Second),
		RenderTimeout:    getEnvAsDuration("RENDER_TIMEOUT", 180*time.Second),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAITimeout: getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),

		PromptExtractDefault: getEnv("PROMPT_EXTRACT_DEFAULT", "./prompts/extract_default.md"),
		PromptExtractBySrc: map[string]string{
			"FCC":   getEnv("PROMPT_EXTRACT_FCC", "./prompts/extract_fcc.md"),
			"Soumu": getEnv("PROMPT_EXTRACT_SOUMU", "./prompts/extract_soumu.md"),
			"Ofcom": getEnv("PROMPT_EXTRACT_OFCOM", "./prompts/extract_ofcom.md"),
		},
		PromptTranslate: getEnv("PROMPT_TRANSLATE", "./prompts/translate_ko.md"),

		DatabasePath:  getEnv("DATABASE_PATH", "./data/regscope.db"),
		AttachmentDir: getEnv("ATTACHMENT_DIR", "./storage/attachments"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "regscope:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 720*time.Hour),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "regscope-attachments"),

		MaxArticlesPerSite: getEnvAsInt("MAX_ARTICLES_PER_SITE", 25),
		DefaultDateRange:   getEnv("DEFAULT_DATE_RANGE", "this-week"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	cfg.Sources = defaultSources()
	if path := os.Getenv(sourcesFileEnv); path != "" {
		if err := cfg.loadSourcesFile(path); err != nil {
			log.Printf("config: cannot load sources file %s: %v (using defaults)", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate checks required settings. API keys are required outside tests
// because every pipeline stage depends on the two remote backends.
func (c *Config) Validate() error {
	if c.Env == "test" {
		return nil
	}
	return validator.New().Struct(c)
}

// Source looks up a configured source by name, case-insensitively.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

func (c *Config) loadSourcesFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file struct {
		Sources []SourceConfig `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}
	if len(file.Sources) > 0 {
		c.Sources = file.Sources
	}
	return nil
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:       "fcc",
			ListingURL: "https://www.fcc.gov/news-events/headlines?year_released=all&tid%5B541%5D=541&items_per_page=25",
		},
		{
			Name:       "ofcom",
			ListingURL: "https://www.ofcom.org.uk/consultations-and-statements",
			Headless:   true,
		},
		{
			Name:       "soumu",
			ListingURL: "https://www.soumu.go.jp/menu_news/s-news",
			Keywords:   SoumuDefaultKeywords,
			Headless:   true,
		},
	}
}

// Helper functions for environment variable handling.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
