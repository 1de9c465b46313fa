package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CrawlConfig configures the email discovery crawl.
type CrawlConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContactPages int    `yaml:"max_contact_pages" mapstructure:"max_contact_pages"`
	PageGapMillis   int    `yaml:"page_gap_millis" mapstructure:"page_gap_millis"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-fetch timeout as a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PageGap returns the pause between fetches within one site crawl.
func (c CrawlConfig) PageGap() time.Duration {
	return time.Duration(c.PageGapMillis) * time.Millisecond
}

// GeocodeConfig configures city coordinate resolution.
type GeocodeConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	QueryGapMillis int    `yaml:"query_gap_millis" mapstructure:"query_gap_millis"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCode    string `yaml:"country_code" mapstructure:"country_code"`
	Country        string `yaml:"country" mapstructure:"country"`
}

// Timeout returns the per-query timeout as a duration.
func (c GeocodeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// QueryGap returns the pause between remote geocoding queries.
func (c GeocodeConfig) QueryGap() time.Duration {
	return time.Duration(c.QueryGapMillis) * time.Millisecond
}

// PipelineConfig configures batch orchestration.
type PipelineConfig struct {
	TargetState        string `yaml:"target_state" mapstructure:"target_state"`
	RecordGapMillis    int    `yaml:"record_gap_millis" mapstructure:"record_gap_millis"`
	CheckpointInterval int    `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
}

// RecordGap returns the pause between institutions in the batch loop.
func (c PipelineConfig) RecordGap() time.Duration {
	return time.Duration(c.RecordGapMillis) * time.Millisecond
}

// OutputConfig configures JSON snapshot export.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.max_contact_pages", 3)
	v.SetDefault("crawl.page_gap_millis", 1000)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.query_gap_millis", 1000)
	v.SetDefault("geocode.user_agent", "Painel-Instituicoes-RS/1.0")
	v.SetDefault("geocode.country_code", "br")
	v.SetDefault("geocode.country", "Brasil")
	v.SetDefault("pipeline.target_state", "RS")
	v.SetDefault("pipeline.record_gap_millis", 2000)
	v.SetDefault("pipeline.checkpoint_interval", 10)
	v.SetDefault("output.dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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
