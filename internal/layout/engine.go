// Package layout computes non-overlapping 2-D diagram positions for a
// node/edge graph without manual arrangement. Small and medium graphs
// go through a layered (Sugiyama-style) pipeline; large graphs are
// packed by connected component into a grid. Both engines are pure
// functions of a graph snapshot plus parameters: given identical input
// they produce identical output, and they never mutate the graph they
// read.
package layout

import "math"

// Cardinality describes one side of an edge. Empty means unknown.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Node is one box to place. Importance breaks ordering ties (higher
// first); callers typically pass a hit count.
type Node struct {
	ID         string
	Importance float64
}

// Edge connects two nodes, optionally annotated with per-side
// cardinality used to orient layer assignment.
type Edge struct {
	From     string
	To       string
	FromCard Cardinality
	ToCard   Cardinality
}

// Input is the read-only graph view both engines consume. Nodes and
// Edges must be in a deterministic order; the engines preserve that
// determinism through every stage.
type Input struct {
	Nodes []Node
	Edges []Edge
}

// Params tunes the layout pipeline. Zero value is not usable; start
// from DefaultParams.
type Params struct {
	// NodeWidth and NodeHeight give every box the same size.
	NodeWidth  float64
	NodeHeight float64

	// HSpacing and VSpacing are the minimum gaps between boxes.
	HSpacing float64
	VSpacing float64

	// Padding is the margin added around the final bounding box.
	Padding float64

	// ClusterThreshold is the node count above which the clustered
	// engine replaces the layered one.
	ClusterThreshold int

	// BalanceThreshold is the node count above which disconnected
	// nodes are spread round-robin into the thinnest layers instead of
	// being given a trailing layer of their own.
	BalanceThreshold int
}

// DefaultParams returns the standard layout parameters.
func DefaultParams() Params {
	return Params{
		NodeWidth:        160,
		NodeHeight:       72,
		HSpacing:         40,
		VSpacing:         60,
		Padding:          24,
		ClusterThreshold: 50,
		BalanceThreshold: 20,
	}
}

// Box is the placed rectangle of one node.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 { return b.X + b.Width/2 }

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return b.Y + b.Height/2 }

// EdgeLine is the rendered segment of one edge, derived from its
// endpoint boxes.
type EdgeLine struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

// Algorithm names the engine that produced a result.
type Algorithm string

const (
	AlgorithmLayered   Algorithm = "layered"
	AlgorithmClustered Algorithm = "clustered"
)

// Result is a computed position map. It is a derived, disposable
// projection of the graph: it can always be recomputed from the graph
// plus parameters and is never authoritative state.
type Result struct {
	Boxes     map[string]Box `json:"boxes"`
	Edges     []EdgeLine     `json:"edges"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Algorithm Algorithm      `json:"algorithm"`
}

// Compute lays out the input graph, routing by node count: graphs with
// at most Params.ClusterThreshold nodes use the layered engine, larger
// graphs the clustered engine.
func Compute(in Input, p Params) *Result {
	var res *Result
	if len(in.Nodes) > p.ClusterThreshold {
		res = computeClustered(in, p)
	} else {
		res = computeLayered(in, p)
	}
	res.Edges = EdgeLines(in.Edges, res.Boxes)
	return res
}

// EdgeLines derives the endpoint segment of every edge from the
// current boxes, center to center. Call again whenever a box moves.
func EdgeLines(edges []Edge, boxes map[string]Box) []EdgeLine {
	out := make([]EdgeLine, 0, len(edges))
	for _, e := range edges {
		from, okFrom := boxes[e.From]
		to, okTo := boxes[e.To]
		if !okFrom || !okTo {
			continue
		}
		out = append(out, EdgeLine{
			From:   e.From,
			To:     e.To,
			StartX: from.CenterX(),
			StartY: from.CenterY(),
			EndX:   to.CenterX(),
			EndY:   to.CenterY(),
		})
	}
	return out
}

// finalize shifts all boxes so the bounding box starts at the padding
// margin and records the padded canvas size.
func finalize(boxes map[string]Box, p Params, algo Algorithm) *Result {
	res := &Result{Boxes: boxes, Algorithm: algo}
	if len(boxes) == 0 {
		res.Width = 2 * p.Padding
		res.Height = 2 * p.Padding
		return res
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range boxes {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.Width)
		maxY = math.Max(maxY, b.Y+b.Height)
	}

	for id, b := range boxes {
		b.X += p.Padding - minX
		b.Y += p.Padding - minY
		boxes[id] = b
	}
	res.Width = maxX - minX + 2*p.Padding
	res.Height = maxY - minY + 2*p.Padding
	return res
}
