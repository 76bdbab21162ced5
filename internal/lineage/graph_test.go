package lineage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrAddTableIdempotence(t *testing.T) {
	g := NewGraph()

	a := g.GetOrAddTable("Sales")
	b := g.GetOrAddTable("Sales")
	require.NotNil(t, a)
	assert.Same(t, a, b, "re-adding an existing name must return the same instance")
	assert.Equal(t, 1, g.TableCount())
}

func TestGetOrAddTableNormalization(t *testing.T) {
	g := NewGraph()

	a := g.GetOrAddTable(" 'Sales' ")
	b := g.GetOrAddTable("Sales")
	c := g.GetOrAddTable("SALES")
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Same(t, a, c, "table identity is case-insensitive")
	assert.Equal(t, "Sales", a.Name)
}

func TestGetOrAddTableBlank(t *testing.T) {
	g := NewGraph()

	assert.Nil(t, g.GetOrAddTable(""))
	assert.Nil(t, g.GetOrAddTable("   "))
	assert.Nil(t, g.GetOrAddTable("''"))
	assert.Equal(t, 0, g.TableCount(), "blank input must not create an entry")
}

func TestGetOrAddColumnNormalization(t *testing.T) {
	g := NewGraph()
	tbl := g.GetOrAddTable("Sales")

	a := g.GetOrAddColumn(tbl, "[Amount]")
	b := g.GetOrAddColumn(tbl, "amount")
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, "Amount", a.Name)

	assert.Nil(t, g.GetOrAddColumn(tbl, ""))
	assert.Nil(t, g.GetOrAddColumn(nil, "Amount"))
	assert.Equal(t, 1, tbl.ColumnCount())
}

func TestAddRelationshipDedupSymmetry(t *testing.T) {
	g := NewGraph()
	a := g.GetOrAddTable("A")
	b := g.GetOrAddTable("B")
	g.GetOrAddColumn(a, "x")
	g.GetOrAddColumn(b, "y")

	r1 := g.AddRelationship("A", "x", "B", "y", JoinInner)
	r2 := g.AddRelationship("B", "y", "A", "x", JoinInner)

	require.NotNil(t, r1)
	assert.Same(t, r1, r2, "reversed endpoints are the same relationship")
	assert.Equal(t, 1, g.RelationshipCount())
	assert.Equal(t, 2, r1.HitCount)
}

func TestAddRelationshipDanglingEndpoints(t *testing.T) {
	g := NewGraph()
	a := g.GetOrAddTable("A")
	g.GetOrAddColumn(a, "x")

	assert.Nil(t, g.AddRelationship("A", "x", "Missing", "y", JoinInner))
	assert.Nil(t, g.AddRelationship("A", "missingcol", "A", "x", JoinInner))
	assert.Equal(t, 0, g.RelationshipCount())
}

func TestColumnUsageUnion(t *testing.T) {
	g := NewGraph()
	tbl := g.GetOrAddTable("T")
	col := g.GetOrAddColumn(tbl, "C")

	col.AddUsage(UsageSelect)
	col.AddUsage(UsageFilter)
	col.AddUsage(UsageSelect)

	assert.True(t, col.Usage.Has(UsageSelect))
	assert.True(t, col.Usage.Has(UsageFilter))
	assert.False(t, col.Usage.Has(UsageJoin))
	assert.Equal(t, 3, col.HitCount)
	assert.Equal(t, "select,filter", col.Usage.String())
}

func TestFilterSampleCap(t *testing.T) {
	g := NewGraph()
	tbl := g.GetOrAddTable("T")
	col := g.GetOrAddColumn(tbl, "C")

	for i := 0; i < maxFilterSamples+10; i++ {
		col.AddFilterSample("=", fmt.Sprintf("%d", i))
	}
	assert.Len(t, col.FilterSamples(), maxFilterSamples)
}

func TestCacheHitRate(t *testing.T) {
	tbl := &Table{}

	_, ok := tbl.CacheHitRate()
	assert.False(t, ok, "no cache data yet")

	tbl.CacheHits = 3
	tbl.CacheMisses = 1
	rate, ok := tbl.CacheHitRate()
	require.True(t, ok)
	assert.InDelta(t, 75.0, rate, 1e-9)
}

func TestClear(t *testing.T) {
	g := NewGraph()
	a := g.GetOrAddTable("A")
	b := g.GetOrAddTable("B")
	g.GetOrAddColumn(a, "x")
	g.GetOrAddColumn(b, "y")
	g.AddRelationship("A", "x", "B", "y", JoinInner)
	g.ParseFailures = 2

	g.Clear()

	assert.Equal(t, 0, g.TableCount())
	assert.Equal(t, 0, g.RelationshipCount())
	assert.Equal(t, 0, g.ParseFailures)

	// Graph is reusable after Clear.
	assert.NotNil(t, g.GetOrAddTable("A"))
}
