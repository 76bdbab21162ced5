package lineage

import (
	"math"
	"sort"
)

// HeatMetric selects which counter heat levels are normalized over.
type HeatMetric string

const (
	HeatByHitCount HeatMetric = "hits"
	HeatByCPUTime  HeatMetric = "cpu"
)

func (m HeatMetric) value(t *Table) float64 {
	if m == HeatByCPUTime {
		return t.CPUTimeMS
	}
	return float64(t.HitCount)
}

// HeatLevels linearly normalizes the chosen metric to [0,1] across all
// tables in the graph, keyed by table name. When every table carries
// the same value all levels are 0.5.
func HeatLevels(g *Graph, metric HeatMetric) map[string]float64 {
	tables := g.Tables()
	out := make(map[string]float64, len(tables))
	if len(tables) == 0 {
		return out
	}

	min, max := metric.value(tables[0]), metric.value(tables[0])
	for _, t := range tables[1:] {
		v := metric.value(t)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	for _, t := range tables {
		if max == min {
			out[t.Name] = 0.5
			continue
		}
		out[t.Name] = (metric.value(t) - min) / (max - min)
	}
	return out
}

// Bottleneck flags one of the most expensive tables in the graph.
// Rank 1 is the largest accumulated duration.
type Bottleneck struct {
	Table *Table
	Rank  int
}

// Bottlenecks returns the tables with nonzero accumulated duration,
// ranked by descending duration, truncated to min(3, ceil(0.2*n))
// entries where n is the table count of the graph.
func Bottlenecks(g *Graph) []Bottleneck {
	var candidates []*Table
	for _, t := range g.Tables() {
		if t.DurationMS > 0 {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DurationMS != candidates[j].DurationMS {
			return candidates[i].DurationMS > candidates[j].DurationMS
		}
		return candidates[i].Name < candidates[j].Name
	})

	limit := int(math.Ceil(0.2 * float64(g.TableCount())))
	if limit > 3 {
		limit = 3
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}

	out := make([]Bottleneck, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, Bottleneck{Table: candidates[i], Rank: i + 1})
	}
	return out
}
