package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all analog configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Controls ControlsConfig `mapstructure:"controls"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Bind           string        `mapstructure:"bind"`
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AgentToken     string        `mapstructure:"agent_token"` // empty leaves agent routes open
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ControlsConfig carries the tunables of the control surface. None of
// them are exposed over HTTP.
type ControlsConfig struct {
	DefaultTemperature float64       `mapstructure:"default_temperature"`
	DecayHalfLife      time.Duration `mapstructure:"decay_half_life"`
	DefaultVoteLabels  []string      `mapstructure:"default_vote_labels"`
	MinTemperature     float64       `mapstructure:"min_temperature"`
	MaxTemperature     float64       `mapstructure:"max_temperature"`
	TemperatureNudge   float64       `mapstructure:"temperature_nudge"`
	VoteQuota          int           `mapstructure:"vote_quota"`
	TemperatureQuota   int           `mapstructure:"temperature_quota"`
	SeedCapacity       int           `mapstructure:"seed_capacity"`
	SeedsReturned      int           `mapstructure:"seeds_returned"`
	MaxSeedLength      int           `mapstructure:"max_seed_length"`
	MaxLabelLength     int           `mapstructure:"max_label_length"`
	MaxReasonLength    int           `mapstructure:"max_reason_length"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:           "127.0.0.1",
			Port:           8000,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Controls: ControlsConfig{
			DefaultTemperature: 0.7,
			DecayHalfLife:      3 * time.Hour,
			DefaultVoteLabels:  []string{"emergence", "entropy", "self"},
			MinTemperature:     0.0,
			MaxTemperature:     2.0,
			TemperatureNudge:   0.5,
			VoteQuota:          5,
			TemperatureQuota:   1,
			SeedCapacity:       10,
			SeedsReturned:      10,
			MaxSeedLength:      200,
			MaxLabelLength:     40,
			MaxReasonLength:    500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Load reads configuration from an optional YAML file and from ANALOG_*
// environment variables layered over Default(). An empty path searches
// the working directory for analog.yaml; a missing file is not an error.
// DATABASE_URL, when set, wins over database.path.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix("ANALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("analog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if url := v.GetString("database_url"); url != "" {
		cfg.Database.Path = url
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can
// resolve env overrides during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.bind", cfg.Server.Bind)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("server.agent_token", cfg.Server.AgentToken)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.SetDefault("database.path", cfg.Database.Path)
	_ = v.BindEnv("database_url", "DATABASE_URL")

	c := cfg.Controls
	v.SetDefault("controls.default_temperature", c.DefaultTemperature)
	v.SetDefault("controls.decay_half_life", c.DecayHalfLife)
	v.SetDefault("controls.default_vote_labels", c.DefaultVoteLabels)
	v.SetDefault("controls.min_temperature", c.MinTemperature)
	v.SetDefault("controls.max_temperature", c.MaxTemperature)
	v.SetDefault("controls.temperature_nudge", c.TemperatureNudge)
	v.SetDefault("controls.vote_quota", c.VoteQuota)
	v.SetDefault("controls.temperature_quota", c.TemperatureQuota)
	v.SetDefault("controls.seed_capacity", c.SeedCapacity)
	v.SetDefault("controls.seeds_returned", c.SeedsReturned)
	v.SetDefault("controls.max_seed_length", c.MaxSeedLength)
	v.SetDefault("controls.max_label_length", c.MaxLabelLength)
	v.SetDefault("controls.max_reason_length", c.MaxReasonLength)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// Validate rejects tunables the control surface cannot operate with.
func (c *Config) Validate() error {
	ctl := c.Controls
	switch {
	case ctl.DecayHalfLife <= 0:
		return fmt.Errorf("controls.decay_half_life must be positive, got %s", ctl.DecayHalfLife)
	case ctl.MinTemperature > ctl.MaxTemperature:
		return fmt.Errorf("controls.min_temperature %.2f exceeds max_temperature %.2f", ctl.MinTemperature, ctl.MaxTemperature)
	case ctl.DefaultTemperature < ctl.MinTemperature || ctl.DefaultTemperature > ctl.MaxTemperature:
		return fmt.Errorf("controls.default_temperature %.2f outside [%.2f, %.2f]", ctl.DefaultTemperature, ctl.MinTemperature, ctl.MaxTemperature)
	case ctl.TemperatureNudge < 0:
		return fmt.Errorf("controls.temperature_nudge must not be negative")
	case len(ctl.DefaultVoteLabels) != 3:
		return fmt.Errorf("controls.default_vote_labels needs exactly 3 labels, got %d", len(ctl.DefaultVoteLabels))
	case ctl.VoteQuota < 1 || ctl.TemperatureQuota < 1:
		return fmt.Errorf("controls quotas must be at least 1")
	case ctl.SeedCapacity < 1 || ctl.SeedsReturned < 1:
		return fmt.Errorf("controls.seed_capacity and seeds_returned must be at least 1")
	case ctl.MaxSeedLength < 1 || ctl.MaxLabelLength < 1 || ctl.MaxReasonLength < 1:
		return fmt.Errorf("controls length limits must be at least 1")
	case c.Server.RequestTimeout <= 0:
		return fmt.Errorf("server.request_timeout must be positive")
	}
	return nil
}
