package config

import (
	"github.com/leapstack-labs/scanlens/internal/layout"
	"github.com/leapstack-labs/scanlens/internal/lineage"
)

// LayoutParams converts the layout section to engine parameters.
func (c *Config) LayoutParams() layout.Params {
	return layout.Params{
		NodeWidth:        c.Layout.NodeWidth,
		NodeHeight:       c.Layout.NodeHeight,
		HSpacing:         c.Layout.HSpacing,
		VSpacing:         c.Layout.VSpacing,
		Padding:          c.Layout.Padding,
		ClusterThreshold: c.Layout.ClusterThreshold,
		BalanceThreshold: c.Layout.BalanceThreshold,
	}
}

// HeatBy returns the configured heat metric.
func (c *Config) HeatBy() lineage.HeatMetric {
	if c.HeatMetric == "cpu" {
		return lineage.HeatByCPUTime
	}
	return lineage.HeatByHitCount
}
