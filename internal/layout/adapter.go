package layout

import "github.com/leapstack-labs/scanlens/internal/lineage"

// FromLineage projects a lineage graph into the read-only view the
// layout engines consume. Tables become nodes keyed by display name
// with hit count as importance; relationships become edges carrying
// their cardinality annotations. The lineage graph is never mutated.
func FromLineage(g *lineage.Graph) Input {
	tables := g.Tables()
	in := Input{Nodes: make([]Node, 0, len(tables))}
	for _, t := range tables {
		in.Nodes = append(in.Nodes, Node{ID: t.Name, Importance: float64(t.HitCount)})
	}
	for _, r := range g.Relationships() {
		in.Edges = append(in.Edges, Edge{
			From:     r.FromTable,
			To:       r.ToTable,
			FromCard: Cardinality(r.FromCardinality),
			ToCard:   Cardinality(r.ToCardinality),
		})
	}
	return in
}
