package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/scanlens/internal/config"
	"github.com/leapstack-labs/scanlens/internal/layout"
)

// starterConfig mirrors the configuration file shape for the generated
// scanlens.yaml.
type starterConfig struct {
	Output     string        `yaml:"output"`
	StatePath  string        `yaml:"state_path"`
	HeatMetric string        `yaml:"heat_metric"`
	Layout     starterLayout `yaml:"layout"`
}

type starterLayout struct {
	NodeWidth        float64 `yaml:"node_width"`
	NodeHeight       float64 `yaml:"node_height"`
	HSpacing         float64 `yaml:"h_spacing"`
	VSpacing         float64 `yaml:"v_spacing"`
	Padding          float64 `yaml:"padding"`
	ClusterThreshold int     `yaml:"cluster_threshold"`
	BalanceThreshold int     `yaml:"balance_threshold"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter scanlens.yaml",
		Long: `Write a scanlens.yaml with the built-in defaults so they can be
edited in place. Settings may also be overridden per invocation with
SCANLENS_* environment variables or flags.`,
		Example: `  # Initialize in the current directory
  scanlens init

  # Initialize a project directory
  scanlens init traces/

  # Overwrite an existing config
  scanlens init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			rt := runtimeFrom(cmd)
			return runInit(rt, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(rt *Runtime, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", config.ConfigFileName)
	}

	p := layout.DefaultParams()
	starter := starterConfig{
		Output:     "text",
		StatePath:  ".scanlens/state.db",
		HeatMetric: "hits",
		Layout: starterLayout{
			NodeWidth:        p.NodeWidth,
			NodeHeight:       p.NodeHeight,
			HSpacing:         p.HSpacing,
			VSpacing:         p.VSpacing,
			Padding:          p.Padding,
			ClusterThreshold: p.ClusterThreshold,
			BalanceThreshold: p.BalanceThreshold,
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	header := []byte("# scanlens configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	rt.Renderer.Printf("Wrote %s\n", path)
	return nil
}
