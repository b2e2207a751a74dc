// Package config loads the YAML configuration for a downstream program
// built on top of the segmentation engine (e.g. cmd/elevetrain). It is
// ambient plumbing, not part of the core library: Trie, Storage and
// Segmenter are configured through their constructor arguments and
// functional options.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

// EngineConfig is the top-level configuration for a training/segmenting
// program: where to read training sentences from, how wide to build the
// n-gram window, and how to log.
type EngineConfig struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
	Model    ModelConfig    `yaml:"model"`
}

// CorpusConfig describes where training sentences come from.
type CorpusConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
}

// TrainingConfig controls Storage construction and ingestion.
type TrainingConfig struct {
	DefaultNgramLength int  `yaml:"default_ngram_length"`
	UseBloomFilter     bool `yaml:"use_bloom_filter"`
	BloomExpectedItems uint `yaml:"bloom_expected_items"`
}

// ModelConfig controls Segmenter construction.
type ModelConfig struct {
	MaxNgramLength int `yaml:"max_ngram_length"`
	NBest          int `yaml:"n_best"`
}

// LoggingConfig controls the zap logger used across the engine.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and parses an EngineConfig from path, expanding ${VAR},
// ${VAR:-default} and $VAR references against the process environment
// before handing the result to the YAML decoder.
func Load(path string) (*EngineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var cfg EngineConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Training.DefaultNgramLength <= 0 {
		cfg.Training.DefaultNgramLength = 5
	}
	if cfg.Model.MaxNgramLength <= 0 {
		cfg.Model.MaxNgramLength = cfg.Training.DefaultNgramLength - 1
	}
	if cfg.Model.NBest <= 0 {
		cfg.Model.NBest = 1
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars substitutes ${VAR}, ${VAR:-default} and $VAR references
// with values from the process environment. ${VAR} with no default and
// an unset variable expands to the empty string; bare $VAR left
// unexpanded when unset (matching the reference shell-like behavior).
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if groups[1] != "" {
			name := groups[1]
			if val, ok := os.LookupEnv(name); ok {
				return val
			}
			if groups[2] != "" {
				return groups[3]
			}
			return ""
		}
		name := groups[4]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return "$" + name
	})
}
