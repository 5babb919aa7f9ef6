package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CapacityPolicy decides what the shell does when a background job cannot
// be tracked because the job table is full.
type CapacityPolicy string

const (
	// CapacityReject refuses to start the new background job.
	CapacityReject CapacityPolicy = "reject"

	// CapacityFatal terminates the shell after cleaning up background jobs.
	CapacityFatal CapacityPolicy = "fatal"
)

const (
	defaultHistorySize  = 1000
	defaultPrompt       = "> "
	defaultPollInterval = 100 * time.Millisecond
)

type Config struct {
	HistoryFile    string         `yaml:"history_file"`
	HomeDir        string         `yaml:"home_dir"`
	HistorySize    int            `yaml:"history_size"`
	Prompt         string         `yaml:"prompt"`
	PollInterval   time.Duration  `yaml:"poll_interval"`
	CapacityPolicy CapacityPolicy `yaml:"capacity_policy"`
	LogLevel       string         `yaml:"log_level"`
}

// Load reads the YAML config at file. A missing file is not an error: the
// defaults are used instead.
func Load(file string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", file, err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) setDefaults() error {
	var err error

	if c.HomeDir == "" {
		c.HomeDir, err = os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home directory: %w", err)
		}
	}

	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.HomeDir, ".myshell_history")
	}

	if c.HistorySize == 0 {
		c.HistorySize = defaultHistorySize
	}

	if c.Prompt == "" {
		c.Prompt = defaultPrompt
	}

	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}

	if c.CapacityPolicy == "" {
		c.CapacityPolicy = CapacityReject
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}

	return nil
}

func (c *Config) validate() error {
	if c.HistorySize < 0 {
		return errors.New("history_size cannot be negative")
	}

	if c.PollInterval < 0 {
		return errors.New("poll_interval cannot be negative")
	}

	switch c.CapacityPolicy {
	case CapacityReject, CapacityFatal:
	default:
		return fmt.Errorf("unknown capacity_policy %q", c.CapacityPolicy)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}

	return level, nil
}
