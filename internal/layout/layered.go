package layout

import (
	"math"
	"sort"

	"github.com/leapstack-labs/scanlens/internal/dag"
)

const (
	crossingSweeps  = 4
	swapPasses      = 3
	refinementPumps = 3
)

// computeLayered runs the Sugiyama-style pipeline: layer assignment,
// crossing minimization, coordinate assignment, centering, canvas
// sizing. Trivially small graphs use hand-tuned fixed arrangements
// because the general algorithm degenerates on them.
func computeLayered(in Input, p Params) *Result {
	if len(in.Nodes) == 0 {
		return finalize(map[string]Box{}, p, AlgorithmLayered)
	}
	if len(in.Nodes) <= 4 && len(in.Edges) <= 3 {
		return fixedArrangement(in, p)
	}

	l := newLayeredState(in, p)
	l.assignLayers()
	l.minimizeCrossings()
	l.assignCoordinates()
	l.centerLayers()
	return finalize(l.boxes(), p, AlgorithmLayered)
}

type layeredState struct {
	in       Input
	p        Params
	g        *dag.Graph // cardinality-oriented directed graph
	layers   [][]string // layer index -> ordered node IDs
	xs       map[string]float64
	imp      map[string]float64
	adj      map[string]map[string]bool // undirected adjacency
	hasEdges bool
}

func newLayeredState(in Input, p Params) *layeredState {
	l := &layeredState{
		in:  in,
		p:   p,
		g:   dag.NewGraph(),
		xs:  make(map[string]float64),
		imp: make(map[string]float64),
		adj: make(map[string]map[string]bool),
	}
	for _, n := range in.Nodes {
		l.g.AddNode(n.ID)
		l.imp[n.ID] = n.Importance
		if l.adj[n.ID] == nil {
			l.adj[n.ID] = make(map[string]bool)
		}
	}
	for _, e := range in.Edges {
		if l.adj[e.From] == nil || l.adj[e.To] == nil {
			continue
		}
		from, to := orientEdge(e)
		l.g.AddEdge(from, to)
		l.adj[e.From][e.To] = true
		l.adj[e.To][e.From] = true
		l.hasEdges = true
	}
	return l
}

// orientEdge points an edge from the "one" side to the "many" side so
// dimension tables sink toward roots. Same or unknown cardinality is
// oriented by name ordering for determinism.
func orientEdge(e Edge) (from, to string) {
	switch {
	case e.FromCard == CardinalityOne && e.ToCard == CardinalityMany:
		return e.From, e.To
	case e.FromCard == CardinalityMany && e.ToCard == CardinalityOne:
		return e.To, e.From
	default:
		if e.From <= e.To {
			return e.From, e.To
		}
		return e.To, e.From
	}
}

// assignLayers places each node at its BFS depth from a root. A cyclic
// graph has no natural roots, so the top third of edge-bearing nodes by
// out-degree stand in as synthetic roots, which guarantees termination
// for any finite graph. Isolated nodes are never roots; together with
// anything else the BFS missed they either get a trailing layer of
// their own or, above the balance threshold, are spread round-robin
// into the thinnest layers.
func (l *layeredState) assignLayers() {
	roots := l.g.Roots()
	if len(roots) == 0 && l.hasEdges {
		roots = l.syntheticRoots()
	}

	depths := l.g.BFSDepths(roots)
	if len(depths) > 0 {
		maxDepth := 0
		for _, d := range depths {
			if d > maxDepth {
				maxDepth = d
			}
		}
		l.layers = make([][]string, maxDepth+1)
		for _, id := range l.g.Nodes() {
			if d, ok := depths[id]; ok {
				l.layers[d] = append(l.layers[d], id)
			}
		}
	}

	var unreached []string
	for _, id := range l.g.Nodes() {
		if _, ok := depths[id]; !ok {
			unreached = append(unreached, id)
		}
	}
	if len(unreached) == 0 {
		return
	}

	if len(l.layers) == 0 || len(l.in.Nodes) <= l.p.BalanceThreshold {
		l.layers = append(l.layers, unreached)
		return
	}
	for _, id := range unreached {
		smallest := 0
		for i := 1; i < len(l.layers); i++ {
			if len(l.layers[i]) < len(l.layers[smallest]) {
				smallest = i
			}
		}
		l.layers[smallest] = append(l.layers[smallest], id)
	}
}

// syntheticRoots picks the top third of edge-bearing nodes by
// descending out-degree, breaking ties by name. Only called when the
// graph has at least one edge.
func (l *layeredState) syntheticRoots() []string {
	var nodes []string
	for _, id := range l.g.Nodes() {
		if l.g.OutDegree(id) > 0 {
			nodes = append(nodes, id)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		di, dj := l.g.OutDegree(nodes[i]), l.g.OutDegree(nodes[j])
		if di != dj {
			return di > dj
		}
		return nodes[i] < nodes[j]
	})
	count := len(nodes) / 3
	if count < 1 {
		count = 1
	}
	return nodes[:count]
}

// minimizeCrossings reorders each layer by the median index of its
// neighbors in the layer just processed, alternating sweep direction,
// then runs a bounded local-swap cleanup that keeps only swaps which
// strictly reduce crossings.
func (l *layeredState) minimizeCrossings() {
	for sweep := 0; sweep < crossingSweeps; sweep++ {
		if sweep%2 == 0 {
			for i := 1; i < len(l.layers); i++ {
				l.orderByMedian(i, i-1)
			}
		} else {
			for i := len(l.layers) - 2; i >= 0; i-- {
				l.orderByMedian(i, i+1)
			}
		}
	}
	l.localSwapPass()
}

// orderByMedian reorders layer i by the median position of each
// node's neighbors in the reference layer. Nodes with no neighbors
// there sort to the center rather than an extreme; ties break on
// descending importance then name so runs are reproducible.
func (l *layeredState) orderByMedian(i, ref int) {
	refPos := make(map[string]int, len(l.layers[ref]))
	for pos, id := range l.layers[ref] {
		refPos[id] = pos
	}
	center := float64(len(l.layers[ref])-1) / 2

	medians := make(map[string]float64, len(l.layers[i]))
	for _, id := range l.layers[i] {
		medians[id] = l.neighborMedian(id, refPos, center)
	}

	layer := l.layers[i]
	sort.SliceStable(layer, func(a, b int) bool {
		ma, mb := medians[layer[a]], medians[layer[b]]
		if ma != mb {
			return ma < mb
		}
		ia, ib := l.imp[layer[a]], l.imp[layer[b]]
		if ia != ib {
			return ia > ib
		}
		return layer[a] < layer[b]
	})
}

func (l *layeredState) neighborMedian(id string, refPos map[string]int, center float64) float64 {
	var positions []int
	for n := range l.adj[id] {
		if pos, ok := refPos[n]; ok {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return center
	}
	sort.Ints(positions)
	mid := len(positions) / 2
	if len(positions)%2 == 1 {
		return float64(positions[mid])
	}
	return float64(positions[mid-1]+positions[mid]) / 2
}

// localSwapPass tries swapping each adjacent pair within each layer,
// keeping the swap only when it strictly reduces the crossings counted
// against both adjacent layers. At most swapPasses full passes; stops
// early once a pass makes no swap.
func (l *layeredState) localSwapPass() {
	for pass := 0; pass < swapPasses; pass++ {
		swapped := false
		for i := range l.layers {
			layer := l.layers[i]
			for k := 0; k+1 < len(layer); k++ {
				before := l.layerCrossings(i)
				layer[k], layer[k+1] = layer[k+1], layer[k]
				after := l.layerCrossings(i)
				if after >= before {
					layer[k], layer[k+1] = layer[k+1], layer[k]
				} else {
					swapped = true
				}
			}
		}
		if !swapped {
			return
		}
	}
}

// layerCrossings counts edge crossings between layer i and both its
// adjacent layers.
func (l *layeredState) layerCrossings(i int) int {
	total := 0
	if i > 0 {
		total += l.crossingsBetween(i-1, i)
	}
	if i+1 < len(l.layers) {
		total += l.crossingsBetween(i, i+1)
	}
	return total
}

// crossingsBetween counts intersecting edge pairs between two adjacent
// layers under their current orders.
func (l *layeredState) crossingsBetween(upper, lower int) int {
	lowerPos := make(map[string]int, len(l.layers[lower]))
	for pos, id := range l.layers[lower] {
		lowerPos[id] = pos
	}

	type seg struct{ u, v int }
	var segs []seg
	for upos, id := range l.layers[upper] {
		for n := range l.adj[id] {
			if lpos, ok := lowerPos[n]; ok {
				segs = append(segs, seg{upos, lpos})
			}
		}
	}

	count := 0
	for a := 0; a < len(segs); a++ {
		for b := a + 1; b < len(segs); b++ {
			if (segs[a].u-segs[b].u)*(segs[a].v-segs[b].v) < 0 {
				count++
			}
		}
	}
	return count
}

// assignCoordinates places nodes left to right at fixed spacing, then
// nudges each node toward the average X of its neighbors in the
// adjacent layer over three damped passes. Moves are capped at half a
// spacing unit per pass and clamped against the left neighbor so
// in-layer order and minimum spacing survive every pass.
func (l *layeredState) assignCoordinates() {
	unit := l.p.NodeWidth + l.p.HSpacing
	for _, layer := range l.layers {
		for i, id := range layer {
			l.xs[id] = float64(i) * unit
		}
	}

	for pass := 0; pass < refinementPumps; pass++ {
		if pass%2 == 0 {
			for i := 1; i < len(l.layers); i++ {
				l.refineLayer(i, i-1, unit)
			}
		} else {
			for i := len(l.layers) - 2; i >= 0; i-- {
				l.refineLayer(i, i+1, unit)
			}
		}
	}
}

func (l *layeredState) refineLayer(i, ref int, unit float64) {
	layer := l.layers[i]
	for pos, id := range layer {
		// Walk the reference layer in order so the float accumulation
		// is reproducible across runs.
		sum, count := 0.0, 0
		for _, n := range l.layers[ref] {
			if l.adj[id][n] {
				sum += l.xs[n]
				count++
			}
		}
		if count == 0 {
			continue
		}
		dx := sum/float64(count) - l.xs[id]
		dx = math.Max(-unit/2, math.Min(unit/2, dx))
		newX := l.xs[id] + dx
		if pos > 0 {
			if minX := l.xs[layer[pos-1]] + unit; newX < minX {
				newX = minX
			}
		}
		l.xs[id] = newX
	}
}

// centerLayers re-centers every layer horizontally against the widest
// one.
func (l *layeredState) centerLayers() {
	widestCenter, widestSpan := 0.0, -1.0
	type extent struct{ lo, hi float64 }
	extents := make([]extent, len(l.layers))

	for i, layer := range l.layers {
		if len(layer) == 0 {
			continue
		}
		lo := l.xs[layer[0]]
		hi := l.xs[layer[len(layer)-1]] + l.p.NodeWidth
		extents[i] = extent{lo, hi}
		if span := hi - lo; span > widestSpan {
			widestSpan = span
			widestCenter = (lo + hi) / 2
		}
	}

	for i, layer := range l.layers {
		if len(layer) == 0 {
			continue
		}
		shift := widestCenter - (extents[i].lo+extents[i].hi)/2
		for _, id := range layer {
			l.xs[id] += shift
		}
	}
}

func (l *layeredState) boxes() map[string]Box {
	out := make(map[string]Box, len(l.xs))
	for i, layer := range l.layers {
		y := float64(i) * (l.p.NodeHeight + l.p.VSpacing)
		for _, id := range layer {
			out[id] = Box{X: l.xs[id], Y: y, Width: l.p.NodeWidth, Height: l.p.NodeHeight}
		}
	}
	return out
}

// fixedArrangement lays out graphs of up to four nodes and three edges
// with hand-tuned shapes: a single centered node, two nodes stacked
// when connected and side by side when not, three nodes as an inverted
// triangle with the most-connected node centered below, and four nodes
// in a 2x2 grid.
func fixedArrangement(in Input, p Params) *Result {
	nodes := make([]Node, len(in.Nodes))
	copy(nodes, in.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Importance != nodes[j].Importance {
			return nodes[i].Importance > nodes[j].Importance
		}
		return nodes[i].ID < nodes[j].ID
	})

	boxes := make(map[string]Box, len(nodes))
	place := func(id string, col, row float64) {
		boxes[id] = Box{
			X:      col * (p.NodeWidth + p.HSpacing),
			Y:      row * (p.NodeHeight + p.VSpacing),
			Width:  p.NodeWidth,
			Height: p.NodeHeight,
		}
	}

	switch len(nodes) {
	case 1:
		place(nodes[0].ID, 0, 0)

	case 2:
		if len(in.Edges) > 0 {
			place(nodes[0].ID, 0, 0)
			place(nodes[1].ID, 0, 1)
		} else {
			place(nodes[0].ID, 0, 0)
			place(nodes[1].ID, 1, 0)
		}

	case 3:
		anchor := mostConnected(nodes, in.Edges)
		var top []string
		for _, n := range nodes {
			if n.ID != anchor {
				top = append(top, n.ID)
			}
		}
		sort.Strings(top)
		place(top[0], 0, 0)
		place(top[1], 1, 0)
		place(anchor, 0.5, 1)

	case 4:
		place(nodes[0].ID, 0, 0)
		place(nodes[1].ID, 1, 0)
		place(nodes[2].ID, 0, 1)
		place(nodes[3].ID, 1, 1)
	}

	return finalize(boxes, p, AlgorithmLayered)
}

// mostConnected returns the node with the highest undirected degree,
// breaking ties by descending importance then name.
func mostConnected(nodes []Node, edges []Edge) string {
	degree := make(map[string]int)
	for _, e := range edges {
		degree[e.From]++
		degree[e.To]++
	}

	best := nodes[0].ID
	bestDeg := degree[best]
	bestImp := nodes[0].Importance
	for _, n := range nodes[1:] {
		d := degree[n.ID]
		switch {
		case d > bestDeg,
			d == bestDeg && n.Importance > bestImp,
			d == bestDeg && n.Importance == bestImp && n.ID < best:
			best, bestDeg, bestImp = n.ID, d, n.Importance
		}
	}
	return best
}
