package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	LLM         LLMConfig       `toml:"llm"`
	ImageAI     ImageAIConfig   `toml:"imageai"`
	Search      SearchConfig    `toml:"search"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	S3         S3Config         `toml:"s3"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	SourcesDir     string `toml:"sources_dir"`     // Downloaded article images (uploads/sources)
	ManuscriptsDir string `toml:"manuscripts_dir"` // Scratch space for AI image output (uploads/manuscripts)
}

// S3Config configures durable object storage for manuscript images.
// When Bucket is empty the filesystem store is used instead.
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PublicBaseURL   string `toml:"public_base_url"` // CDN/base URL; defaults to the bucket endpoint
}

type QueueConfig struct {
	PollInterval string `toml:"poll_interval"` // e.g. "3s" - manuscript worker poll cadence
	MaxAttempts  int    `toml:"max_attempts" validate:"gte=1"`
}

// CrawlerConfig contains crawl pipeline configuration including target sites
type CrawlerConfig struct {
	UserAgent      string            `toml:"user_agent"`
	RequestTimeout string            `toml:"request_timeout"` // e.g. "15s"
	ArticleDelay   string            `toml:"article_delay"`   // delay between article fetches, e.g. "1500ms"
	RetentionDays  int               `toml:"retention_days" validate:"gte=1"`
	Sites          []CrawlSiteConfig `toml:"sites"`
}

// CrawlSiteConfig describes one news site: its list pages and article selectors
type CrawlSiteConfig struct {
	ID        string           `toml:"id" validate:"required"`
	Name      string           `toml:"name" validate:"required"`
	BaseURL   string           `toml:"base_url"`
	UserAgent string           `toml:"user_agent"` // overrides the crawler default
	ListPages []ListPageConfig `toml:"list_pages" validate:"min=1,dive"`
	Article   ArticleSelectors `toml:"article"`
}

// ListPageConfig describes one list/ranking page to harvest article URLs from
type ListPageConfig struct {
	URL          string `toml:"url" validate:"required,url"`
	Category     string `toml:"category"`      // list-level category; empty = extract from article page
	LinkSelector string `toml:"link_selector"` // CSS selector for article links (ignored when rss=true)
	RSS          bool   `toml:"rss"`
	URLPattern   string `toml:"url_pattern"` // regexp keeping only article URLs
	MaxArticles  int    `toml:"max_articles"`
}

// ArticleSelectors configures article page extraction with fallback chains
type ArticleSelectors struct {
	TitleSelector      string `toml:"title_selector"`
	ContentSelector    string `toml:"content_selector" validate:"required"`
	ThumbnailSelector  string `toml:"thumbnail_selector"`
	CategorySelector   string `toml:"category_selector"`
	SourceSiteSelector string `toml:"source_site_selector"`
}

// LLMProvider identifies a text-generation backend
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

type LLMConfig struct {
	DefaultProvider LLMProvider  `toml:"default_provider"`
	OpenAI          OpenAIConfig `toml:"openai"`
	Claude          ClaudeConfig `toml:"claude"`
	Gemini          GeminiConfig `toml:"gemini"`
}

type OpenAIConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// ImageAIConfig configures the Gemini image transform/generation service
type ImageAIConfig struct {
	Model   string `toml:"model"` // image-capable Gemini model
	Timeout string `toml:"timeout"`
}

// NaverCredential is one Naver Open API client id/secret pair.
// Multiple credentials are rotated across requests to stretch quota.
type NaverCredential struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

type SearchConfig struct {
	Credentials    []NaverCredential `toml:"credentials"`
	RequestTimeout string            `toml:"request_timeout"`
	Display        int               `toml:"display"` // results per rank search page
	MaxRank        int               `toml:"max_rank"`
}

type SchedulerConfig struct {
	CrawlSchedule        string `toml:"crawl_schedule"`       // cron, default hourly
	PerformanceSchedule  string `toml:"performance_schedule"` // cron, default hourly
	CrawlStartupDelay    string `toml:"crawl_startup_delay"`
	PerfStartupDelay     string `toml:"performance_startup_delay"`
	TrackingWindowDays   int    `toml:"tracking_window_days" validate:"gte=1"`
	WorkerEnabled        bool   `toml:"worker_enabled"`
	CrawlEnabled         bool   `toml:"crawl_enabled"`
	PerformanceEnabled   bool   `toml:"performance_enabled"`
	RunStartupCollection bool   `toml:"run_startup_collection"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`
}

// NewDefaultConfig returns the baseline configuration before file/env overrides
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/wongo",
				ResetOnStartup: false,
			},
			Filesystem: FilesystemConfig{
				SourcesDir:     "uploads/sources",
				ManuscriptsDir: "uploads/manuscripts",
			},
		},
		Queue: QueueConfig{
			PollInterval: "3s",
			MaxAttempts:  3,
		},
		Crawler: CrawlerConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			RequestTimeout: "15s",
			ArticleDelay:   "1500ms",
			RetentionDays:  7,
			Sites:          []CrawlSiteConfig{naverRankingSite()},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOpenAI,
			OpenAI: OpenAIConfig{
				Model:     "gpt-4o-mini",
				MaxTokens: 1200,
				Timeout:   "60s",
			},
			Claude: ClaudeConfig{
				Model:     "claude-3-5-sonnet-20241022",
				MaxTokens: 1200,
				Timeout:   "60s",
			},
			Gemini: GeminiConfig{
				Model:       "gemini-1.5-flash",
				Temperature: 0.7,
				Timeout:     "60s",
			},
		},
		ImageAI: ImageAIConfig{
			Model:   "gemini-2.5-flash-image",
			Timeout: "90s",
		},
		Search: SearchConfig{
			RequestTimeout: "15s",
			Display:        30,
			MaxRank:        50,
		},
		Scheduler: SchedulerConfig{
			CrawlSchedule:       "0 * * * *",
			PerformanceSchedule: "0 * * * *",
			CrawlStartupDelay:   "10s",
			PerfStartupDelay:    "15s",
			TrackingWindowDays:  7,
			WorkerEnabled:       true,
			CrawlEnabled:        true,
			PerformanceEnabled:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
			Dir:    "logs",
		},
	}
}

// naverRankingSite is the default crawl target: the Naver news daily ranking page
func naverRankingSite() CrawlSiteConfig {
	return CrawlSiteConfig{
		ID:      "naver-ranking",
		Name:    "네이버 뉴스",
		BaseURL: "https://news.naver.com",
		ListPages: []ListPageConfig{
			{
				URL:          "https://news.naver.com/main/ranking/popularDay.naver",
				LinkSelector: `a[href*="/article/"]`,
				URLPattern:   `n\.news\.naver\.com/article/\d+/\d+`,
				MaxArticles:  60,
			},
		},
		Article: ArticleSelectors{
			TitleSelector:      "h2#title_area, h2.media_end_head_headline",
			ContentSelector:    "article#dic_area, #newsct_article",
			ThumbnailSelector:  `meta[property="og:image"]`,
			CategorySelector:   ".media_end_categorize_item",
			SourceSiteSelector: ".media_end_head_top_logo img",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural validity plus the cron expressions
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"crawl_schedule":       c.Scheduler.CrawlSchedule,
		"performance_schedule": c.Scheduler.PerformanceSchedule,
	} {
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, expr, err)
		}
	}
	for name, d := range map[string]string{
		"queue.poll_interval":     c.Queue.PollInterval,
		"crawler.request_timeout": c.Crawler.RequestTimeout,
		"crawler.article_delay":   c.Crawler.ArticleDelay,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration for %s %q: %w", name, d, err)
		}
	}
	return nil
}

// Duration parses a duration string with a fallback for empty/invalid values
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WONGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("WONGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("WONGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("WONGO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if pollInterval := os.Getenv("WONGO_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		if _, err := time.ParseDuration(pollInterval); err == nil {
			config.Queue.PollInterval = pollInterval
		}
	}
	if maxAttempts := os.Getenv("WONGO_QUEUE_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil && ma > 0 {
			config.Queue.MaxAttempts = ma
		}
	}

	// LLM credentials: the vendor-standard variables plus WONGO_-prefixed overrides
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("WONGO_OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.LLM.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("WONGO_CLAUDE_API_KEY"); apiKey != "" {
		config.LLM.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.LLM.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("WONGO_GEMINI_API_KEY"); apiKey != "" {
		config.LLM.Gemini.APIKey = apiKey
	}
	if provider := os.Getenv("WONGO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if model := os.Getenv("WONGO_IMAGEAI_MODEL"); model != "" {
		config.ImageAI.Model = model
	}

	// Naver search credentials: NAVER_CLIENT_ID/NAVER_CLIENT_SECRET hold
	// comma-separated lists; pairs are matched by position.
	if ids := os.Getenv("NAVER_CLIENT_ID"); ids != "" {
		secrets := os.Getenv("NAVER_CLIENT_SECRET")
		idList := splitTrimmed(ids)
		secretList := splitTrimmed(secrets)
		creds := make([]NaverCredential, 0, len(idList))
		for i, id := range idList {
			if i < len(secretList) {
				creds = append(creds, NaverCredential{ClientID: id, ClientSecret: secretList[i]})
			}
		}
		if len(creds) > 0 {
			config.Search.Credentials = creds
		}
	}

	// S3 object storage
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.S3.Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		config.Storage.S3.Region = region
	}
	if key := os.Getenv("S3_ACCESS_KEY_ID"); key != "" {
		config.Storage.S3.AccessKeyID = key
	}
	if secret := os.Getenv("S3_SECRET_ACCESS_KEY"); secret != "" {
		config.Storage.S3.SecretAccessKey = secret
	}
	if base := os.Getenv("S3_PUBLIC_BASE_URL"); base != "" {
		config.Storage.S3.PublicBaseURL = base
	}

	if level := os.Getenv("WONGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies CLI flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
