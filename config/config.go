package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"imagededup/imageprocessor"
	"imagededup/utils"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDestination      = "similar_images"
	DefaultDedupThreshold   = 0.08
	DefaultSimilarThreshold = 0.05
	DefaultRunsLimit        = 10
)

// Config holds the settings of every command. Values set on the command
// line take precedence over the file.
type Config struct {
	Database string `yaml:"database"`
	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`
	Progress bool   `yaml:"progress"`

	Dedup   DedupConfig   `yaml:"dedup"`
	Similar SimilarConfig `yaml:"similar"`
	Sort    SortConfig    `yaml:"sort"`
	CSV     CSVConfig     `yaml:"csv"`
}

// DedupConfig configures the content-hash duplicate scan
type DedupConfig struct {
	Folder      string  `yaml:"folder"`
	Destination string  `yaml:"destination"`
	Threshold   float64 `yaml:"threshold"`
	DryRun      bool    `yaml:"dry_run"`
}

// SimilarConfig configures the reference-image scan
type SimilarConfig struct {
	Folder      string  `yaml:"folder"`
	Destination string  `yaml:"destination"`
	Reference   string  `yaml:"reference"`
	Threshold   float64 `yaml:"threshold"`
	HashSize    int     `yaml:"hash_size"`
	DryRun      bool    `yaml:"dry_run"`
}

// SortConfig configures the date sort
type SortConfig struct {
	Folder      string `yaml:"folder"`
	Destination string `yaml:"destination"`
	After       string `yaml:"after"`
}

// CSVConfig configures the CSV time filter
type CSVConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	After  string `yaml:"after"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Dedup: DedupConfig{
			Destination: DefaultDestination,
			Threshold:   DefaultDedupThreshold,
		},
		Similar: SimilarConfig{
			Destination: DefaultDestination,
			Threshold:   DefaultSimilarThreshold,
			HashSize:    imageprocessor.DefaultAverageHashSize,
		},
	}
}

// Load reads a YAML configuration file on top of the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandEnvVars() {
	c.Database = os.ExpandEnv(c.Database)
	c.LogFile = os.ExpandEnv(c.LogFile)
	c.Dedup.Folder = os.ExpandEnv(c.Dedup.Folder)
	c.Dedup.Destination = os.ExpandEnv(c.Dedup.Destination)
	c.Similar.Folder = os.ExpandEnv(c.Similar.Folder)
	c.Similar.Destination = os.ExpandEnv(c.Similar.Destination)
	c.Similar.Reference = os.ExpandEnv(c.Similar.Reference)
	c.Sort.Folder = os.ExpandEnv(c.Sort.Folder)
	c.Sort.Destination = os.ExpandEnv(c.Sort.Destination)
	c.CSV.Input = os.ExpandEnv(c.CSV.Input)
	c.CSV.Output = os.ExpandEnv(c.CSV.Output)
}

// Validate checks value ranges. Required paths are checked by each command
// since a file may configure only some of them.
func (c *Config) Validate() error {
	if err := utils.ValidateThreshold(c.Dedup.Threshold); err != nil {
		return fmt.Errorf("invalid dedup threshold: %w", err)
	}
	if err := utils.ValidateThreshold(c.Similar.Threshold); err != nil {
		return fmt.Errorf("invalid similar threshold: %w", err)
	}
	if err := imageprocessor.ValidateHashSize(c.Similar.HashSize); err != nil {
		return fmt.Errorf("invalid similar hash size: %w", err)
	}
	return nil
}
