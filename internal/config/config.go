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
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Privacy   PrivacyConfig   `yaml:"privacy" mapstructure:"privacy"`
	Forecast  ForecastConfig  `yaml:"forecast" mapstructure:"forecast"`
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`
	Build     BuildConfig     `yaml:"build" mapstructure:"build"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec, 0 disables
	RateBurst    int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// SourceConfig selects and configures the aggregate backend.
type SourceConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GridConfig configures the hexagonal grid.
type GridConfig struct {
	Resolutions       []int `yaml:"resolutions" mapstructure:"resolutions"`
	DefaultResolution int   `yaml:"default_resolution" mapstructure:"default_resolution"`
}

// PrivacyConfig configures k-anonymity suppression.
type PrivacyConfig struct {
	K int `yaml:"k" mapstructure:"k"`
}

// TierValues holds one value per density tier.
type TierValues struct {
	Low    float64 `yaml:"low" mapstructure:"low"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	High   float64 `yaml:"high" mapstructure:"high"`
}

// ForecastConfig holds the heuristic engine tuning parameters. Every
// knob here may be overridden by a YAML tuning profile (TuningFile).
type ForecastConfig struct {
	DecayBase         float64    `yaml:"decay_base" mapstructure:"decay_base"` // lambda_0, per hour
	AlphaSmoothing    float64    `yaml:"alpha_smoothing" mapstructure:"alpha_smoothing"`
	CorridorBoost     float64    `yaml:"corridor_boost" mapstructure:"corridor_boost"`
	CorridorTauHours  float64    `yaml:"corridor_tau_hours" mapstructure:"corridor_tau_hours"`
	TierMultipliers   TierValues `yaml:"tier_multipliers" mapstructure:"tier_multipliers"`
	HubFloorFraction  float64    `yaml:"hub_floor_fraction" mapstructure:"hub_floor_fraction"`
	IntervalWidths    TierValues `yaml:"interval_widths" mapstructure:"interval_widths"` // relative CI half-width per tier
	MaxHorizonMinutes int        `yaml:"max_horizon_minutes" mapstructure:"max_horizon_minutes"`
	TuningFile        string     `yaml:"tuning_file" mapstructure:"tuning_file"`
}

// ArtifactsConfig configures the optional OD/cluster artifact source.
type ArtifactsConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	AutoBuild bool   `yaml:"auto_build" mapstructure:"auto_build"`
	HubTopN   int    `yaml:"hub_top_n" mapstructure:"hub_top_n"`
	ODTopN    int    `yaml:"od_top_n" mapstructure:"od_top_n"`
}

// BuildConfig configures the raw trace aggregation command.
type BuildConfig struct {
	TracesCSV         string `yaml:"traces_csv" mapstructure:"traces_csv"`
	BoundaryShapefile string `yaml:"boundary_shapefile" mapstructure:"boundary_shapefile"`
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
	v.SetEnvPrefix("GRIDCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("source.driver", "sqlite")
	v.SetDefault("source.path", "./data/aggregates.db")
	v.SetDefault("grid.resolutions", []int{7, 8, 9})
	v.SetDefault("grid.default_resolution", 8)
	v.SetDefault("privacy.k", 20)
	v.SetDefault("forecast.decay_base", 0.15)
	v.SetDefault("forecast.alpha_smoothing", 0.7)
	v.SetDefault("forecast.corridor_boost", 0.10)
	v.SetDefault("forecast.corridor_tau_hours", 0.5)
	v.SetDefault("forecast.tier_multipliers.low", 1.3)
	v.SetDefault("forecast.tier_multipliers.medium", 1.0)
	v.SetDefault("forecast.tier_multipliers.high", 0.55)
	v.SetDefault("forecast.hub_floor_fraction", 0.5)
	v.SetDefault("forecast.interval_widths.low", 0.35)
	v.SetDefault("forecast.interval_widths.medium", 0.20)
	v.SetDefault("forecast.interval_widths.high", 0.12)
	v.SetDefault("forecast.max_horizon_minutes", 120)
	v.SetDefault("artifacts.dir", "./artifacts")
	v.SetDefault("artifacts.auto_build", false)
	v.SetDefault("artifacts.hub_top_n", 50)
	v.SetDefault("artifacts.od_top_n", 100)
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

	if cfg.Forecast.TuningFile != "" {
		if err := ApplyTuning(&cfg.Forecast, cfg.Forecast.TuningFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engines cannot run with.
func (c *Config) Validate() error {
	if len(c.Grid.Resolutions) == 0 {
		return eris.New("config: grid.resolutions must not be empty")
	}
	if !c.SupportedResolution(c.Grid.DefaultResolution) {
		return eris.Errorf("config: grid.default_resolution %d not in grid.resolutions", c.Grid.DefaultResolution)
	}
	if c.Privacy.K < 1 {
		return eris.New("config: privacy.k must be >= 1")
	}
	if c.Forecast.DecayBase <= 0 {
		return eris.New("config: forecast.decay_base must be > 0")
	}
	if c.Forecast.AlphaSmoothing < 0 || c.Forecast.AlphaSmoothing > 1 {
		return eris.New("config: forecast.alpha_smoothing must be in [0,1]")
	}
	if c.Forecast.MaxHorizonMinutes < 1 {
		return eris.New("config: forecast.max_horizon_minutes must be >= 1")
	}
	switch c.Source.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown source.driver %q", c.Source.Driver)
	}
	return nil
}

// SupportedResolution reports whether res is one of the configured grid
// resolutions.
func (c *Config) SupportedResolution(res int) bool {
	for _, r := range c.Grid.Resolutions {
		if r == res {
			return true
		}
	}
	return false
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
