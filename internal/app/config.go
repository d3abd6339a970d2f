package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/stupside/showcrawl/internal/crawler"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `koanf:"browser" validate:"required"`
	Site    SiteConfig    `koanf:"site" validate:"required"`
	Crawl   CrawlConfig   `koanf:"crawl" validate:"required"`
	Store   StoreConfig   `koanf:"store" validate:"required"`
}

// BrowserConfig holds settings for the headless browser sessions.
type BrowserConfig struct {
	Timeout     time.Duration   `koanf:"timeout" validate:"required"`
	Headless    bool            `koanf:"headless"`
	NoSandbox   bool            `koanf:"no_sandbox"`
	ChromePath  string          `koanf:"chrome_path"`
	SnapshotDir string          `koanf:"snapshot_dir"`
	Turnstile   TurnstileConfig `koanf:"turnstile"`
}

// TurnstileConfig bounds the Cloudflare Turnstile bypass run after each
// navigation. A zero Solve disables it.
type TurnstileConfig struct {
	Solve  time.Duration `koanf:"solve"`
	Reload time.Duration `koanf:"reload"`
}

// SiteConfig describes the crawled website.
type SiteConfig struct {
	BaseURL    string            `koanf:"base_url" validate:"required,url"`
	CatalogURL string            `koanf:"catalog_url" validate:"required,url"`
	Selectors  crawler.Selectors `koanf:"selectors" validate:"required"`
}

// CrawlConfig tunes a crawl run.
type CrawlConfig struct {
	BatchLimit      int            `koanf:"batch_limit" validate:"min=0"`
	Workers         int            `koanf:"workers" validate:"required,min=1,max=16"`
	Timing          crawler.Timing `koanf:"timing" validate:"required"`
	VariantKeywords []string       `koanf:"variant_keywords" validate:"required,min=1,dive,required"`
	AdPatterns      []string       `koanf:"ad_patterns" validate:"dive,required"`
	PlayingMarker   string         `koanf:"playing_marker"`
}

// StoreConfig locates the persisted catalog. A .yaml or .yml extension
// selects YAML, anything else JSON.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// Default returns the configuration for the kickass-anime layout.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Timeout:     90 * time.Second,
			Headless:    true,
			SnapshotDir: ".debug",
			Turnstile: TurnstileConfig{
				Solve:  20 * time.Second,
				Reload: 30 * time.Second,
			},
		},
		Site: SiteConfig{
			BaseURL:    "https://kickass-anime.ru",
			CatalogURL: "https://kickass-anime.ru/",
			Selectors:  crawler.DefaultSelectors(),
		},
		Crawl: CrawlConfig{
			BatchLimit:      10,
			Workers:         1,
			Timing:          crawler.DefaultTiming(),
			VariantKeywords: slices.Clone(crawler.DefaultVariantKeywords),
			AdPatterns:      slices.Clone(crawler.DefaultAdPatterns),
			PlayingMarker:   "Playing",
		},
		Store: StoreConfig{
			Path: "anime_database.json",
		},
	}
}

// Load reads configuration from a YAML file over the defaults and validates
// the result. An empty path validates the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
		// Decoding into a populated slice only overwrites by index.
		for key, dst := range map[string]*[]string{
			"crawl.variant_keywords": &cfg.Crawl.VariantKeywords,
			"crawl.ad_patterns":      &cfg.Crawl.AdPatterns,
		} {
			if k.Exists(key) {
				*dst = k.Strings(key)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tag constraints. Callers that change a loaded
// Config, such as CLI flag overrides, validate it again.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// CrawlerOptions maps the configuration onto crawler options.
func (c *Config) CrawlerOptions() crawler.Options {
	return crawler.Options{
		BaseURL:         c.Site.BaseURL,
		CatalogURL:      c.Site.CatalogURL,
		BatchLimit:      c.Crawl.BatchLimit,
		Selectors:       c.Site.Selectors,
		Timing:          c.Crawl.Timing,
		VariantKeywords: c.Crawl.VariantKeywords,
		AdPatterns:      c.Crawl.AdPatterns,
		PlayingMarker:   c.Crawl.PlayingMarker,
	}
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
