package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scanlens/internal/lineage"
)

func TestEdgeLinesFollowBoxCenters(t *testing.T) {
	boxes := map[string]Box{
		"a": {X: 0, Y: 0, Width: 100, Height: 50},
		"b": {X: 200, Y: 300, Width: 100, Height: 50},
	}
	lines := EdgeLines([]Edge{{From: "a", To: "b"}}, boxes)

	require.Len(t, lines, 1)
	assert.Equal(t, 50.0, lines[0].StartX)
	assert.Equal(t, 25.0, lines[0].StartY)
	assert.Equal(t, 250.0, lines[0].EndX)
	assert.Equal(t, 325.0, lines[0].EndY)
}

func TestEdgeLinesSkipMissingEndpoints(t *testing.T) {
	boxes := map[string]Box{"a": {Width: 10, Height: 10}}
	lines := EdgeLines([]Edge{{From: "a", To: "gone"}}, boxes)
	assert.Empty(t, lines)
}

func TestComputeRecomputesEdgesWithBoxes(t *testing.T) {
	in := chainInput(6)
	res := Compute(in, DefaultParams())

	require.Len(t, res.Edges, len(in.Edges))
	for _, line := range res.Edges {
		from := res.Boxes[line.From]
		assert.Equal(t, from.CenterX(), line.StartX)
		assert.Equal(t, from.CenterY(), line.StartY)
	}
}

func TestComputeEmptyGraph(t *testing.T) {
	p := DefaultParams()
	res := Compute(Input{}, p)

	assert.Empty(t, res.Boxes)
	assert.Empty(t, res.Edges)
	assert.Equal(t, 2*p.Padding, res.Width)
	assert.Equal(t, 2*p.Padding, res.Height)
}

func TestFromLineage(t *testing.T) {
	g := lineage.NewGraph()
	ex := lineage.NewExtractor(nil)
	require.True(t, ex.Parse("SELECT 'T1'[A] FROM 'T1' LEFT OUTER JOIN 'T2' ON 'T1'[A] = 'T2'[B]", g))

	in := FromLineage(g)
	require.Len(t, in.Nodes, 2)
	assert.Equal(t, "T1", in.Nodes[0].ID)
	assert.Equal(t, 1.0, in.Nodes[0].Importance, "hit count becomes importance")
	require.Len(t, in.Edges, 1)
	assert.Equal(t, "T1", in.Edges[0].From)
	assert.Equal(t, "T2", in.Edges[0].To)
}

func TestFromLineageDoesNotMutateGraph(t *testing.T) {
	g := lineage.NewGraph()
	ex := lineage.NewExtractor(nil)
	require.True(t, ex.Parse("FROM 'A' INNER JOIN 'B' ON 'A'[x] = 'B'[y]", g))

	before := g.TableCount()
	_ = Compute(FromLineage(g), DefaultParams())
	assert.Equal(t, before, g.TableCount())
	assert.Equal(t, 1, g.RelationshipCount())
}
