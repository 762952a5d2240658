// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Serper     SerperConfig     `yaml:"serper" mapstructure:"serper"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Proxycurl  ProxycurlConfig  `yaml:"proxycurl" mapstructure:"proxycurl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SerperConfig holds the web-search API settings.
type SerperConfig struct {
	Key      string  `yaml:"key" mapstructure:"key"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize int     `yaml:"page_size" mapstructure:"page_size"`
	QPS      float64 `yaml:"qps" mapstructure:"qps"`
}

// FirecrawlConfig holds the scrape API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ProxycurlConfig holds the profile-enrichment API settings.
type ProxycurlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EnrichmentConfig configures the best-effort profile enrichment phase.
type EnrichmentConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	MaxCalls int  `yaml:"max_calls" mapstructure:"max_calls"`
}

// PipelineConfig bounds every phase of a run. All budgets, caps and
// thresholds live here so tests can drive the pipeline with tiny budgets.
type PipelineConfig struct {
	MaxQueries                 int     `yaml:"max_queries" mapstructure:"max_queries"`
	SearchConcurrency          int     `yaml:"search_concurrency" mapstructure:"search_concurrency"`
	SearchBudgetFraction       float64 `yaml:"search_budget_fraction" mapstructure:"search_budget_fraction"`
	HostRequeryCap             int     `yaml:"host_requery_cap" mapstructure:"host_requery_cap"`
	SnippetSimilarityThreshold float64 `yaml:"snippet_similarity_threshold" mapstructure:"snippet_similarity_threshold"`
	MaxScrapeTargets           int     `yaml:"max_scrape_targets" mapstructure:"max_scrape_targets"`
	ScrapeConcurrency          int     `yaml:"scrape_concurrency" mapstructure:"scrape_concurrency"`
	RunBudgetSecs              int     `yaml:"run_budget_secs" mapstructure:"run_budget_secs"`
	ScrapeBudgetSecs           int     `yaml:"scrape_budget_secs" mapstructure:"scrape_budget_secs"`
	ScrapeTimeoutSecs          int     `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
	ScrapeRetryTimeoutSecs     int     `yaml:"scrape_retry_timeout_secs" mapstructure:"scrape_retry_timeout_secs"`
	MaxFindingsPerPage         int     `yaml:"max_findings_per_page" mapstructure:"max_findings_per_page"`
	MinPageText                int     `yaml:"min_page_text" mapstructure:"min_page_text"`
	MinSnippetLen              int     `yaml:"min_snippet_len" mapstructure:"min_snippet_len"`
	BulletCap                  int     `yaml:"bullet_cap" mapstructure:"bullet_cap"`
	HostCap                    int     `yaml:"host_cap" mapstructure:"host_cap"`
	SimilarityThreshold        float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	SectionSummaryMaxTokens    int     `yaml:"section_summary_max_tokens" mapstructure:"section_summary_max_tokens"`
	ExecSummaryMaxTokens       int     `yaml:"exec_summary_max_tokens" mapstructure:"exec_summary_max_tokens"`
}

// CacheConfig configures the optional sqlite scrape cache. An empty path
// disables caching.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// PricingConfig holds per-provider cost rates.
type PricingConfig struct {
	SearchPerQuery float64                 `yaml:"search_per_query" mapstructure:"search_per_query"`
	ScrapePerPage  float64                 `yaml:"scrape_per_page" mapstructure:"scrape_per_page"`
	EnrichPerCall  float64                 `yaml:"enrich_per_call" mapstructure:"enrich_per_call"`
	Anthropic      map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DILIGENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SetDefaults registers the default value for every knob.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.page_size", 10)
	v.SetDefault("serper.qps", 5.0)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("proxycurl.base_url", "https://nubela.co/proxycurl")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.max_calls", 3)

	v.SetDefault("pipeline.max_queries", 24)
	v.SetDefault("pipeline.search_concurrency", 4)
	v.SetDefault("pipeline.search_budget_fraction", 0.35)
	v.SetDefault("pipeline.host_requery_cap", 2)
	v.SetDefault("pipeline.snippet_similarity_threshold", 0.8)
	v.SetDefault("pipeline.max_scrape_targets", 12)
	v.SetDefault("pipeline.scrape_concurrency", 4)
	v.SetDefault("pipeline.run_budget_secs", 240)
	v.SetDefault("pipeline.scrape_budget_secs", 120)
	v.SetDefault("pipeline.scrape_timeout_secs", 20)
	v.SetDefault("pipeline.scrape_retry_timeout_secs", 45)
	v.SetDefault("pipeline.max_findings_per_page", 6)
	v.SetDefault("pipeline.min_page_text", 400)
	v.SetDefault("pipeline.min_snippet_len", 80)
	v.SetDefault("pipeline.bullet_cap", 8)
	v.SetDefault("pipeline.host_cap", 3)
	v.SetDefault("pipeline.similarity_threshold", 0.6)
	v.SetDefault("pipeline.section_summary_max_tokens", 300)
	v.SetDefault("pipeline.exec_summary_max_tokens", 500)

	v.SetDefault("cache.ttl_hours", 24)

	v.SetDefault("pricing.search_per_query", 0.001)
	v.SetDefault("pricing.scrape_per_page", 0.0063)
	v.SetDefault("pricing.enrich_per_call", 0.01)
	v.SetDefault("pricing.anthropic", map[string]ModelPricing{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	})
}

// Validate fails fast on missing credentials. A missing key aborts at
// process start; it is never silently degraded at run time.
func (c *Config) Validate() error {
	if c.Serper.Key == "" {
		return eris.New("config: serper.key is required")
	}
	if c.Firecrawl.Key == "" {
		return eris.New("config: firecrawl.key is required")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required")
	}
	if c.Enrichment.Enabled && c.Proxycurl.Key == "" {
		return eris.New("config: proxycurl.key is required while enrichment.enabled is true")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
