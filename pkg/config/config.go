package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for the analysis engine.
type Config struct {
	// Thresholds for the individual analyzers
	Thresholds ThresholdConfig `koanf:"thresholds"`

	// File inclusion/exclusion rules
	Exclude ExcludeConfig `koanf:"exclude"`
}

// ThresholdConfig defines metric thresholds.
type ThresholdConfig struct {
	DuplicateMinLines    int     `koanf:"duplicate_min_lines"`
	DuplicateSimilarity  float64 `koanf:"duplicate_similarity"`
	CyclomaticComplexity int     `koanf:"cyclomatic_complexity"`
	CognitiveComplexity  int     `koanf:"cognitive_complexity"`
	MaxNesting           int     `koanf:"max_nesting"`
	MaxFunctionLines     int     `koanf:"max_function_lines"`
	MaxClassLines        int     `koanf:"max_class_lines"`
	MaintainabilityFloor float64 `koanf:"maintainability_floor"`
}

// ExcludeConfig defines file inclusion and exclusion rules.
type ExcludeConfig struct {
	// Extensions to include; anything else is skipped.
	Extensions []string `koanf:"extensions"`
	// Glob patterns (doublestar syntax) matched against root-relative paths.
	Patterns []string `koanf:"patterns"`
	// Directory names skipped anywhere in the tree.
	Dirs []string `koanf:"dirs"`
	// Honor .gitignore files found under the repository root.
	Gitignore bool `koanf:"gitignore"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			DuplicateMinLines:    5,
			DuplicateSimilarity:  0.8,
			CyclomaticComplexity: 10,
			CognitiveComplexity:  15,
			MaxNesting:           4,
			MaxFunctionLines:     50,
			MaxClassLines:        200,
			MaintainabilityFloor: 20,
		},
		Exclude: ExcludeConfig{
			Extensions: []string{".py"},
			Patterns: []string{
				"**/*.min.py",
			},
			Dirs: []string{
				".git",
				"__pycache__",
				".venv",
				"venv",
				"node_modules",
				".tox",
				".mypy_cache",
				"build",
				"dist",
			},
			Gitignore: true,
		},
	}
}

// Validate checks threshold domains.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.DuplicateMinLines < 1 {
		return fmt.Errorf("duplicate_min_lines must be >= 1, got %d", t.DuplicateMinLines)
	}
	if t.DuplicateSimilarity < 0 || t.DuplicateSimilarity > 1 {
		return fmt.Errorf("duplicate_similarity must be in [0,1], got %v", t.DuplicateSimilarity)
	}
	if t.CyclomaticComplexity < 1 {
		return fmt.Errorf("cyclomatic_complexity must be >= 1, got %d", t.CyclomaticComplexity)
	}
	return nil
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"pythia.toml",
		"pythia.yaml",
		"pythia.yml",
		"pythia.json",
		".pythia.toml",
		".pythia.yaml",
		".pythia.yml",
		".pythia.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}
