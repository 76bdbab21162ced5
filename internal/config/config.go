// Package config loads scanlens configuration with layered precedence:
// built-in defaults, then scanlens.yaml, then SCANLENS_* environment
// variables, then CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "scanlens.yaml"

// ConfigFileNameAlt is the alternate config file name.
const ConfigFileNameAlt = "scanlens.yml"

// envPrefix is the prefix for environment variable overrides, e.g.
// SCANLENS_OUTPUT or SCANLENS_LAYOUT_NODE_WIDTH.
const envPrefix = "SCANLENS_"

// LayoutConfig tunes the diagram layout pipeline.
type LayoutConfig struct {
	NodeWidth        float64 `koanf:"node_width"`
	NodeHeight       float64 `koanf:"node_height"`
	HSpacing         float64 `koanf:"h_spacing"`
	VSpacing         float64 `koanf:"v_spacing"`
	Padding          float64 `koanf:"padding"`
	ClusterThreshold int     `koanf:"cluster_threshold"`
	BalanceThreshold int     `koanf:"balance_threshold"`
}

// Config is the resolved scanlens configuration.
type Config struct {
	// Output is the default rendering mode: text or json.
	Output string `koanf:"output"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// StatePath is the SQLite file holding cached diagram
	// arrangements and session history.
	StatePath string `koanf:"state_path"`

	// HeatMetric selects the counter heat levels normalize over:
	// hits or cpu.
	HeatMetric string `koanf:"heat_metric"`

	Layout LayoutConfig `koanf:"layout"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"output":                   "text",
		"verbose":                  false,
		"state_path":               ".scanlens/state.db",
		"heat_metric":              "hits",
		"layout.node_width":        160.0,
		"layout.node_height":       72.0,
		"layout.h_spacing":         40.0,
		"layout.v_spacing":         60.0,
		"layout.padding":           24.0,
		"layout.cluster_threshold": 50,
		"layout.balance_threshold": 20,
	}
}

// Load resolves the configuration. An explicit path must exist; with
// no explicit path, scanlens.yaml/.yml in the working directory is
// used when present. flags may be nil.
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := findConfigFile(explicitPath)
	if explicitPath != "" && path == "" {
		return nil, fmt.Errorf("config file %q not found", explicitPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyMapper maps SCANLENS_LAYOUT_NODE_WIDTH to layout.node_width.
// Only the first underscore after a known section becomes a dot; the
// rest stay underscores to match the koanf field names.
func envKeyMapper(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if rest, ok := strings.CutPrefix(key, "layout_"); ok {
		return "layout." + rest
	}
	return key
}

// Validate checks cross-field constraints the providers cannot.
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format %q (want text or json)", c.Output)
	}
	switch c.HeatMetric {
	case "hits", "cpu":
	default:
		return fmt.Errorf("invalid heat metric %q (want hits or cpu)", c.HeatMetric)
	}
	if c.Layout.ClusterThreshold < 1 {
		return fmt.Errorf("layout.cluster_threshold must be at least 1")
	}
	if c.Layout.NodeWidth <= 0 || c.Layout.NodeHeight <= 0 {
		return fmt.Errorf("layout node dimensions must be positive")
	}
	return nil
}

// findConfigFile finds the config file to use. Priority: explicit
// path > scanlens.yaml > scanlens.yml. Empty means none.
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}
