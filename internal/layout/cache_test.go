package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelKeyStable(t *testing.T) {
	a := ModelKey([]string{"Sales", "Date", "Product"})
	b := ModelKey([]string{"product", "sales", "date"})
	assert.Equal(t, a, b, "key is order- and case-insensitive")
	assert.Len(t, a, 64)

	c := ModelKey([]string{"Sales", "Date"})
	assert.NotEqual(t, a, c)
}

func TestCacheRecordApply(t *testing.T) {
	p := DefaultParams()
	in := Input{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{From: "a", To: "b"}},
	}
	res := Compute(in, p)

	rec := &CacheRecord{
		TablePositions: map[string]CachedPosition{
			"a": {X: 500, Y: 700, Width: 120, Height: 64},
		},
	}
	rec.Apply(res, in.Edges, p)

	moved := res.Boxes["a"]
	assert.Equal(t, 500.0, moved.X)
	assert.Equal(t, 700.0, moved.Y)
	assert.Equal(t, 120.0, moved.Width)

	// Edge endpoints follow the moved box.
	require.Len(t, res.Edges, 1)
	assert.Equal(t, moved.CenterX(), res.Edges[0].StartX)
	assert.Equal(t, moved.CenterY(), res.Edges[0].StartY)

	// Canvas grows to cover the cached placement.
	assert.GreaterOrEqual(t, res.Width, 500.0+120+p.Padding)
	assert.GreaterOrEqual(t, res.Height, 700.0+64+p.Padding)

	// Uncached boxes keep their computed position.
	assert.NotEqual(t, 0.0, res.Boxes["b"].Width)
}

func TestCacheRecordApplyNilSafe(t *testing.T) {
	p := DefaultParams()
	res := Compute(Input{Nodes: []Node{{ID: "a"}}}, p)
	w := res.Width

	var rec *CacheRecord
	rec.Apply(res, nil, p)
	assert.Equal(t, w, res.Width)
}
