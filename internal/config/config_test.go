package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, 50, cfg.Layout.ClusterThreshold)
	assert.Equal(t, 160.0, cfg.Layout.NodeWidth)

	p := cfg.LayoutParams()
	assert.Equal(t, 50, p.ClusterThreshold)
	assert.Equal(t, 24.0, p.Padding)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: json
layout:
  cluster_threshold: 75
  node_width: 200
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 75, cfg.Layout.ClusterThreshold)
	assert.Equal(t, 200.0, cfg.Layout.NodeWidth)
	// Unset keys keep defaults.
	assert.Equal(t, 72.0, cfg.Layout.NodeHeight)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCANLENS_OUTPUT", "json")
	t.Setenv("SCANLENS_LAYOUT_CLUSTER_THRESHOLD", "99")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 99, cfg.Layout.ClusterThreshold)
}

func TestLoadFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "text", "")
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad output", func(c *Config) { c.Output = "xml" }},
		{"bad heat metric", func(c *Config) { c.HeatMetric = "rows" }},
		{"zero threshold", func(c *Config) { c.Layout.ClusterThreshold = 0 }},
		{"zero width", func(c *Config) { c.Layout.NodeWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
