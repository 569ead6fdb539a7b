// Package config loads CLI settings from a file, the environment and
// defaults, in that order of precedence (highest first: environment).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"lesiw.io/snooze"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Selector SelectorConfig `mapstructure:"selector"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ScheduleConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type SelectorConfig struct {
	Operator         string `mapstructure:"operator"`
	MaxPatternLength int    `mapstructure:"max_pattern_length"`
}

// New returns a viper instance with defaults and environment binding.
// Environment variables use the SNOOZE_ prefix, e.g. SNOOZE_DATABASE_URL.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("selector.operator", "and")
	v.SetDefault("selector.max_pattern_length", 256)

	v.SetEnvPrefix("snooze")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and decodes the result.
// An empty path searches for snooze.yaml in the working directory and
// in /etc/snooze; a missing file is not an error in that case.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("snooze")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/snooze")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	if _, err := snooze.ParseOperator(c.Selector.Operator); err != nil {
		errs = append(errs, fmt.Errorf("selector.operator: %w", err))
	}
	if c.Selector.MaxPatternLength <= 0 {
		errs = append(errs, errors.New(
			"selector.max_pattern_length must be positive"))
	}
	return errors.Join(errs...)
}

// Operator returns the configured default selector operator.
func (c *Config) Operator() snooze.Operator {
	op, _ := snooze.ParseOperator(c.Selector.Operator)
	return op
}

// CheckPatterns enforces the pattern length cap on every matcher.
func (c *Config) CheckPatterns(selectors []snooze.Selector) error {
	for i, sel := range selectors {
		ms := []*snooze.Matcher{sel.Name, sel.Region, sel.Engine}
		for _, m := range sel.Tags {
			ms = append(ms, m)
		}
		for _, m := range ms {
			if m != nil && len(m.Pattern) > c.Selector.MaxPatternLength {
				return fmt.Errorf(
					"selector %d: pattern longer than %d bytes",
					i+1, c.Selector.MaxPatternLength)
			}
		}
	}
	return nil
}
