// Package config loads settings for the command-line tools from defaults,
// an optional config file, CHESSGRAPH_* environment variables and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/freeeve/chessgraph/trainer/internal/game"
	"github.com/freeeve/chessgraph/trainer/internal/logx"
)

const envPrefix = "CHESSGRAPH"

// Config holds every setting the tools read. Flag names are the keys with
// dashes instead of underscores.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MinElo     int32 `mapstructure:"min_elo"`
	MaxEloDiff int32 `mapstructure:"max_elo_diff"`

	Threads       int `mapstructure:"threads"`
	Features      int `mapstructure:"features"`
	GamesPerShard int `mapstructure:"games_per_shard"`
	Prefetch      int `mapstructure:"prefetch"`

	WatchDir      string        `mapstructure:"watch_dir"`
	OutDir        string        `mapstructure:"out_dir"`
	ProcessedDir  string        `mapstructure:"processed_dir"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	IngestWorkers int           `mapstructure:"ingest_workers"`
}

func setDefaults(v *viper.Viper) {
	filter := game.DefaultFilter()
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("min_elo", filter.MinElo)
	v.SetDefault("max_elo_diff", filter.MaxEloDiff)
	v.SetDefault("threads", 0)
	v.SetDefault("features", 37)
	v.SetDefault("games_per_shard", 100_000)
	v.SetDefault("prefetch", 2)
	v.SetDefault("watch_dir", "")
	v.SetDefault("out_dir", "./data")
	v.SetDefault("processed_dir", "")
	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("ingest_workers", 0)
}

// NewFlagSet returns a flag set carrying the flags every tool shares.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Config file (yaml, json or toml)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "console", "Log format (console or json)")
	return fs
}

// Load builds the configuration. path may be empty. Only flags the user set
// override the file and environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The ingest tool historically read CHESSGRAPH_RATING_MIN.
	if err := v.BindEnv("min_elo", envPrefix+"_MIN_ELO", envPrefix+"_RATING_MIN"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Filter returns the rating filter.
func (c *Config) Filter() game.Filter {
	return game.Filter{MinElo: c.MinElo, MaxEloDiff: c.MaxEloDiff}
}

// LogOptions returns the logger settings.
func (c *Config) LogOptions() logx.Options {
	return logx.Options{Level: c.LogLevel, Format: c.LogFormat}
}

// Parse parses args into fs and loads the configuration named by --config.
func Parse(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	path, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	return Load(path, fs)
}
