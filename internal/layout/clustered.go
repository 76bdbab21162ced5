package layout

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/scanlens/internal/dag"
)

// maxGridCols caps the width of one component's sub-grid so very large
// components stay tall rather than stretching the whole canvas.
const maxGridCols = 8

// computeClustered lays out a large graph by connected component:
// components are discovered over the undirected neighbor relation,
// sorted by descending size, shaped into near-square sub-grids and
// packed left to right into rows bounded by a column budget derived
// from the total node count.
func computeClustered(in Input, p Params) *Result {
	g := dag.NewGraph()
	for _, n := range in.Nodes {
		g.AddNode(n.ID)
	}
	for _, e := range in.Edges {
		g.AddEdge(e.From, e.To)
	}

	components := g.ConnectedComponents()
	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})

	imp := make(map[string]float64, len(in.Nodes))
	for _, n := range in.Nodes {
		imp[n.ID] = n.Importance
	}

	// Shape every component's sub-grid concurrently; results land in a
	// slice indexed by component so the packing order below stays
	// deterministic.
	grids := make([]componentGrid, len(components))
	var eg errgroup.Group
	for i, members := range components {
		eg.Go(func() error {
			grids[i] = shapeComponent(members, g, imp)
			return nil
		})
	}
	// Workers never return errors; the group is only a join point.
	_ = eg.Wait()

	targetCols := packingColumns(len(in.Nodes))
	boxes := make(map[string]Box, len(in.Nodes))
	cellW := p.NodeWidth + p.HSpacing
	cellH := p.NodeHeight + p.VSpacing

	cursor, rowBase, rowHeight := 0, 0, 0
	for _, grid := range grids {
		if cursor > 0 && cursor+grid.cols > targetCols {
			rowBase += rowHeight
			cursor, rowHeight = 0, 0
		}
		for i, id := range grid.members {
			col := cursor + i%grid.cols
			row := rowBase + i/grid.cols
			boxes[id] = Box{
				X:      float64(col) * cellW,
				Y:      float64(row) * cellH,
				Width:  p.NodeWidth,
				Height: p.NodeHeight,
			}
		}
		cursor += grid.cols
		if grid.rows > rowHeight {
			rowHeight = grid.rows
		}
	}

	return finalize(boxes, p, AlgorithmClustered)
}

type componentGrid struct {
	members []string
	cols    int
	rows    int
}

// shapeComponent orders a component's members by descending neighbor
// count then name and picks a near-square sub-grid: single row up to
// three nodes, square-ish up to twelve, capped width above that.
func shapeComponent(members []string, g *dag.Graph, imp map[string]float64) componentGrid {
	ordered := make([]string, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		ni, nj := g.NeighborCount(ordered[i]), g.NeighborCount(ordered[j])
		if ni != nj {
			return ni > nj
		}
		if imp[ordered[i]] != imp[ordered[j]] {
			return imp[ordered[i]] > imp[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	n := len(ordered)
	var cols int
	switch {
	case n <= 3:
		cols = n
	case n <= 12:
		cols = int(math.Ceil(math.Sqrt(float64(n))))
	default:
		cols = int(math.Ceil(math.Sqrt(float64(n))))
		if cols > maxGridCols {
			cols = maxGridCols
		}
	}

	return componentGrid{
		members: ordered,
		cols:    cols,
		rows:    (n + cols - 1) / cols,
	}
}

// packingColumns derives the row budget for component packing from the
// total node count, clamped to [8, 20].
func packingColumns(total int) int {
	cols := int(math.Ceil(math.Sqrt(float64(total) * 1.5)))
	if cols < 8 {
		cols = 8
	}
	if cols > 20 {
		cols = 20
	}
	return cols
}
