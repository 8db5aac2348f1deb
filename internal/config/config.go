// Package config handles configuration loading for covannot.
// Settings are layered: built-in defaults, then the project file
// (.covannot.yaml), then COVANNOT_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"covannot/internal/annotation"
	"covannot/internal/workspace"
)

// FileName is the project configuration file looked up in the project directory.
const FileName = ".covannot.yaml"

// EnvPrefix prefixes environment overrides, e.g. COVANNOT_FLAKY_POLICY.
const EnvPrefix = "COVANNOT"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all covannot configuration.
type Config struct {
	// FlakyPolicy decides how FLAKY TESTED lines are checked:
	// maybe-tested, not-tested or tested.
	FlakyPolicy string `mapstructure:"flaky_policy" yaml:"flaky_policy"`
	// TrackedRoots are project-relative directories whose files are checked.
	TrackedRoots []string `mapstructure:"tracked_roots" yaml:"tracked_roots"`
	// Extensions select the annotated source files.
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	// ReportNames are the base names of Cobertura reports.
	ReportNames []string `mapstructure:"report_names" yaml:"report_names"`
	// Ignore skips matching paths or directories (relative to the project).
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
	// UnreachableMarkers are substrings that make an unmarked line NOT TESTED.
	UnreachableMarkers []string `mapstructure:"unreachable_markers" yaml:"unreachable_markers"`
	// Color enables colored diagnostics.
	Color bool `mapstructure:"color" yaml:"color"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	scan := workspace.DefaultScannerConfig()
	return &Config{
		FlakyPolicy:        annotation.PolicyMaybeTested.String(),
		TrackedRoots:       []string{"src", "tests"},
		Extensions:         scan.Extensions,
		ReportNames:        scan.ReportNames,
		Ignore:             scan.IgnorePatterns,
		UnreachableMarkers: append([]string(nil), annotation.DefaultUnreachableMarkers...),
		Color:              true,
		Logging:            DefaultLoggingConfig(),
	}
}

// setDefaults mirrors DefaultConfig into v so that every key is known to
// viper's environment lookup.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("flaky_policy", d.FlakyPolicy)
	v.SetDefault("tracked_roots", d.TrackedRoots)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("report_names", d.ReportNames)
	v.SetDefault("ignore", d.Ignore)
	v.SetDefault("unreachable_markers", d.UnreachableMarkers)
	v.SetDefault("color", d.Color)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Loader resolves the layered configuration of one invocation.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader holding the defaults and environment layer.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes an explicitly set command-line flag override key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("binding %s: flag not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the project configuration. When path is empty the loader looks
// for FileName in dir and carries on with defaults if it is absent; an
// explicit path must exist.
func (l *Loader) Load(dir, path string) (*Config, error) {
	if path == "" {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed returns the file read by Load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load is a convenience wrapper for a loader without flag bindings.
func Load(dir, path string) (*Config, error) {
	return NewLoader().Load(dir, path)
}

// Validate checks the configuration for values the check cannot run with.
func (c *Config) Validate() error {
	if _, err := annotation.ParseFlakyPolicy(c.FlakyPolicy); err != nil {
		return fmt.Errorf("%w: %v (valid: %s)", ErrInvalid, err,
			strings.Join(annotation.FlakyPolicyNames, ", "))
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: no source extensions configured", ErrInvalid)
	}
	if len(c.ReportNames) == 0 {
		return fmt.Errorf("%w: no coverage report names configured", ErrInvalid)
	}
	for _, name := range c.ReportNames {
		if strings.TrimSpace(name) == "" || strings.ContainsRune(name, '/') {
			return fmt.Errorf("%w: report name %q must be a base name", ErrInvalid, name)
		}
	}
	return c.Logging.Validate()
}

// Policy returns the parsed flaky policy. Call after Validate.
func (c *Config) Policy() annotation.FlakyPolicy {
	p, _ := annotation.ParseFlakyPolicy(c.FlakyPolicy)
	return p
}

// ScannerConfig returns the discovery settings for the workspace scanner.
func (c *Config) ScannerConfig() workspace.ScannerConfig {
	return workspace.ScannerConfig{
		IgnorePatterns: c.Ignore,
		Extensions:     c.Extensions,
		ReportNames:    c.ReportNames,
	}
}

// AbsTrackedRoots resolves the tracked roots against the project directory.
func (c *Config) AbsTrackedRoots(projectDir string) []string {
	roots := make([]string, 0, len(c.TrackedRoots))
	for _, r := range c.TrackedRoots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(projectDir, filepath.FromSlash(r))
		}
		if canonical, err := workspace.Canonicalize(r); err == nil {
			r = canonical
		}
		roots = append(roots, filepath.Clean(r))
	}
	return roots
}

// Marshal renders the configuration as yaml.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
