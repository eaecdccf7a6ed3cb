package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/derivscope/derivscope/internal/domain"
)

// Config is the app-level configuration: where the indicator documents live,
// where history and the dedup map are persisted, and which sinks are armed.
// Analyzer parameters live in their own JSON file (see AnalyzerConfig) so
// sweeps can swap them independently.
type Config struct {
	Assets  []string `yaml:"assets" validate:"omitempty,dive,required"`
	DataDir string   `yaml:"data_dir" default:"./data" validate:"required"`

	Integrator struct {
		LookupTimeoutSeconds int `yaml:"lookup_timeout_seconds" default:"10" validate:"gt=0"`
	} `yaml:"integrator"`

	Dedup struct {
		Path               string `yaml:"path" default:"./sent_signals_history.json" validate:"required"`
		WindowSeconds      int    `yaml:"window_seconds" default:"14400" validate:"gt=0"`
		SinkTimeoutSeconds int    `yaml:"sink_timeout_seconds" default:"20" validate:"gt=0"`
	} `yaml:"dedup"`

	History struct {
		DSN                 string `yaml:"dsn"`
		JSONDir             string `yaml:"json_dir" default:"./signal_history_json"`
		QueryTimeoutSeconds int    `yaml:"query_timeout_seconds" default:"15" validate:"gt=0"`
	} `yaml:"history"`

	Cache struct {
		Enabled    bool   `yaml:"enabled"`
		Addr       string `yaml:"addr" default:"localhost:6379"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds" default:"60" validate:"gt=0"`
	} `yaml:"cache"`

	Sinks struct {
		Telegram struct {
			Enabled  bool              `yaml:"enabled"`
			BotToken string            `yaml:"bot_token"`
			ChatIDs  map[string]string `yaml:"chat_ids"`
		} `yaml:"telegram"`
		Discord struct {
			Enabled  bool              `yaml:"enabled"`
			Webhooks map[string]string `yaml:"webhooks"`
		} `yaml:"discord"`
	} `yaml:"sinks"`

	Serve struct {
		Addr string `yaml:"addr" default:":8086"`
	} `yaml:"serve"`
}

// LookupTimeout is the per-source integrator timeout.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Integrator.LookupTimeoutSeconds) * time.Second
}

// DedupWindow is the per-(asset,direction) cooldown.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Dedup.WindowSeconds) * time.Second
}

// SinkTimeout time-boxes each sink dispatch.
func (c *Config) SinkTimeout() time.Duration {
	return time.Duration(c.Dedup.SinkTimeoutSeconds) * time.Second
}

// QueryTimeout bounds history store queries.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.History.QueryTimeoutSeconds) * time.Second
}

// CacheTTL is the redis hot-cache document lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Load reads the YAML app config, fills defaults, resolves env secrets, and
// validates. An empty path yields the defaults with the full asset universe.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("%w: applying defaults: %v", ErrInvalidConfig, err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if len(cfg.Assets) == 0 {
		for _, a := range domain.AllAssets() {
			cfg.Assets = append(cfg.Assets, string(a))
		}
	}
	if cfg.Sinks.Telegram.BotToken == "" {
		cfg.Sinks.Telegram.BotToken = os.Getenv("DERIVSCOPE_TELEGRAM_TOKEN")
	}
	if cfg.History.DSN == "" {
		cfg.History.DSN = os.Getenv("DERIVSCOPE_HISTORY_DSN")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := cfg.AssetUniverse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AssetUniverse parses the configured symbols against the closed enum.
func (c *Config) AssetUniverse() ([]domain.Asset, error) {
	assets := make([]domain.Asset, 0, len(c.Assets))
	for _, s := range c.Assets {
		a, err := domain.ParseAsset(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}
