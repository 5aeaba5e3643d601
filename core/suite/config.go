// Package suite models the static suite configuration consumed by the
// runner. Suites are heterogeneous: each one is an external command in its
// own language and framework, and Kind names the output dialect used to
// extract counts from its console output.
package suite

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "regressor.yaml"
	DefaultOutDir     = "regressor-out"
	DefaultLookBack   = 6
)

// Spec describes one configured suite. Order of specs in the configuration
// file is the canonical suite order for every downstream artifact.
type Spec struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	TimeoutMs int64    `yaml:"timeout_ms"`
}

// ThresholdOverride tunes one metric's regression/improvement cutoffs, in
// percent. Nil fields keep the built-in defaults; an explicit 0 is a valid
// zero-tolerance cutoff.
type ThresholdOverride struct {
	Regression  *float64 `yaml:"regression"`
	Improvement *float64 `yaml:"improvement"`
}

// Config is the full engine configuration.
type Config struct {
	OutDir      string                       `yaml:"out_dir"`
	MetricsPath string                       `yaml:"metrics_path"`
	Parallel    int                          `yaml:"parallel"`
	LookBack    int                          `yaml:"look_back"`
	Suites      []Spec                       `yaml:"suites"`
	Thresholds  map[string]ThresholdOverride `yaml:"thresholds"`
}

// Load reads and validates the configuration file. knownKinds is the set of
// registered dialect kinds; an unknown kind is rejected here rather than
// surfacing later as a silent all-zero parse.
func Load(path string, knownKinds func(string) bool) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	// #nosec G304 -- config path is provided by the caller.
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(knownKinds); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.OutDir) == "" {
		c.OutDir = DefaultOutDir
	}
	if c.LookBack <= 0 {
		c.LookBack = DefaultLookBack
	}
	if c.Parallel <= 0 {
		c.Parallel = 1
	}
}

func (c *Config) validate(knownKinds func(string) bool) error {
	if len(c.Suites) == 0 {
		return fmt.Errorf("no suites configured")
	}
	seen := make(map[string]struct{}, len(c.Suites))
	for index, spec := range c.Suites {
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("suite %d: name is required", index)
		}
		if _, exists := seen[spec.Name]; exists {
			return fmt.Errorf("duplicate suite name: %s", spec.Name)
		}
		seen[spec.Name] = struct{}{}
		if strings.TrimSpace(spec.Command) == "" {
			return fmt.Errorf("suite %s: command is required", spec.Name)
		}
		if knownKinds != nil && !knownKinds(spec.Kind) {
			return fmt.Errorf("suite %s: unknown output dialect kind: %q", spec.Name, spec.Kind)
		}
		if spec.TimeoutMs < 0 {
			return fmt.Errorf("suite %s: timeout_ms must be >= 0", spec.Name)
		}
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must be >= 0")
	}
	if c.LookBack < 0 {
		return fmt.Errorf("look_back must be >= 0")
	}
	return nil
}
