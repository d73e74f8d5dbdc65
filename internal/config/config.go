// Package config loads optional loxvm settings from loxvm.toml or loxvm.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Names are the default config files, in lookup order
var Names = []string{"loxvm.toml", "loxvm.yaml", "loxvm.yml"}

type Config struct {
	GC  GCConfig  `toml:"gc" yaml:"gc"`
	VM  VMConfig  `toml:"vm" yaml:"vm"`
	Log LogConfig `toml:"log" yaml:"log"`
}

type GCConfig struct {
	Stress     bool `toml:"stress" yaml:"stress"`
	GrowFactor int  `toml:"grow_factor" yaml:"grow_factor"`
	// InitialThreshold is a byte size such as "1MiB" or "512 kB"
	InitialThreshold string `toml:"initial_threshold" yaml:"initial_threshold"`
}

type VMConfig struct {
	MaxSteps int `toml:"max_steps" yaml:"max_steps"`
}

type LogConfig struct {
	Verbose bool `toml:"verbose" yaml:"verbose"`
	NoColor bool `toml:"no_color" yaml:"no_color"`
}

// Load reads a config file, choosing the format by its extension
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes config content. The path selects the format and is used in
// error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}

	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find returns the first default config file in dir, or "" if there is none
func Find(dir string) (string, error) {
	for _, name := range Names {
		candidate := filepath.Join(dir, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
	}
	return "", nil
}

// LoadDefault loads the default config file from dir. A missing file yields
// an empty config.
func LoadDefault(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return &Config{}, nil
	}
	return Load(path)
}

// InitialThresholdBytes returns the parsed gc.initial_threshold, 0 when unset
func (c *Config) InitialThresholdBytes() int {
	if c.GC.InitialThreshold == "" {
		return 0
	}
	// validated in Parse
	n, _ := humanize.ParseBytes(c.GC.InitialThreshold)
	return int(n)
}

func (c *Config) validate(path string) error {
	if c.GC.GrowFactor < 0 {
		return fmt.Errorf("%s: gc.grow_factor must not be negative", path)
	}
	if c.GC.GrowFactor == 1 {
		return fmt.Errorf("%s: gc.grow_factor must be at least 2", path)
	}
	if c.VM.MaxSteps < 0 {
		return fmt.Errorf("%s: vm.max_steps must not be negative", path)
	}
	if c.GC.InitialThreshold != "" {
		n, err := humanize.ParseBytes(c.GC.InitialThreshold)
		if err != nil {
			return fmt.Errorf("%s: gc.initial_threshold: %w", path, err)
		}
		if n > math.MaxInt {
			return fmt.Errorf("%s: gc.initial_threshold %s is too large", path, c.GC.InitialThreshold)
		}
	}
	return nil
}
