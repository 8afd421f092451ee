package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment variables read by ApplyEnv.
const EnvPrefix = "LEADLAG"

// flagBindings maps viper keys (LEADLAG_<KEY> in the environment) to pflag names.
var flagBindings = map[string]string{
	"addr":            "addr",
	"request_timeout": "request-timeout",
	"log_level":       "log-level",
	"log_development": "log-dev",
	"data_dir":        "data",
	"strategy":        "strategy",
	"workers":         "workers",
	"seed":            "seed",
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables and explicitly set flags onto cfg.
// Precedence: flags > env > cfg. flagSet may be nil.
func ApplyEnv(cfg *Config, flagSet *flag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("addr", cfg.Server.Addr)
	v.SetDefault("request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("log_level", cfg.Log.Level)
	v.SetDefault("log_development", cfg.Log.Development)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("strategy", cfg.Optimizer.Strategy)
	v.SetDefault("workers", cfg.Optimizer.DE.Workers)
	v.SetDefault("seed", cfg.Optimizer.DE.Seed)

	if flagSet != nil {
		for key, name := range flagBindings {
			if f := flagSet.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg.Server.Addr = v.GetString("addr")
	cfg.Server.RequestTimeout = v.GetDuration("request_timeout")
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Development = v.GetBool("log_development")
	cfg.DataDir = v.GetString("data_dir")
	cfg.Optimizer.Strategy = v.GetString("strategy")
	cfg.Optimizer.DE.Workers = v.GetInt("workers")
	cfg.Optimizer.DE.Seed = v.GetInt64("seed")
	return cfg.Validate()
}
