// Package config loads optional project configuration for jsonshape from a
// .jsonshape.yml file, giving repeated CLI invocations a shared set of
// inference defaults and annotations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config represents the complete configuration for jsonshape
type Config struct {
	// AdditionalProperties sets the default for inferred object fragments.
	AdditionalProperties bool `yaml:"additional_properties"`

	// Field-name scoped constraint inference.
	InferBounds    []string `yaml:"infer_bounds"`
	InferEnum      []string `yaml:"infer_enum"`
	InferAllBounds bool     `yaml:"infer_all_bounds"`
	InferAllEnum   bool     `yaml:"infer_all_enum"`

	// AutoTitles derives a title for every property from its key.
	AutoTitles bool `yaml:"auto_titles"`

	Meta        MetaConfig   `yaml:"meta"`
	Annotations []Annotation `yaml:"annotations"`
}

// MetaConfig carries root-level document metadata.
type MetaConfig struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Annotation decorates the fragment at a dot-path.
type Annotation struct {
	Path        string `yaml:"path"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Bounds      bool   `yaml:"bounds"`
	Enum        bool   `yaml:"enum"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		AdditionalProperties: false,
		AutoTitles:           false,
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i, annotation := range cfg.Annotations {
		if annotation.Path == "" {
			return nil, fmt.Errorf("annotations[%d]: path is required", i)
		}
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonshape.yml", ".jsonshape.yaml", "jsonshape.yml", "jsonshape.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}
