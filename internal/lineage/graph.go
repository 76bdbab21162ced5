package lineage

import (
	"sort"
	"strings"
)

// ColumnUsage is a bitset describing how a column has been used across
// all fragments parsed so far. Usages accumulate and are never reset
// except by Graph.Clear.
type ColumnUsage uint16

const (
	UsageSelect ColumnUsage = 1 << iota
	UsageFilter
	UsageJoin
	UsageGroupBy
	UsageAggregate
	UsageOrderBy
)

// Has reports whether u includes all bits of flag.
func (u ColumnUsage) Has(flag ColumnUsage) bool {
	return u&flag == flag
}

// String returns a stable, comma-separated rendering of the set bits.
func (u ColumnUsage) String() string {
	names := []struct {
		flag ColumnUsage
		name string
	}{
		{UsageSelect, "select"},
		{UsageFilter, "filter"},
		{UsageJoin, "join"},
		{UsageGroupBy, "groupby"},
		{UsageAggregate, "aggregate"},
		{UsageOrderBy, "orderby"},
	}
	var parts []string
	for _, n := range names {
		if u.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// JoinKind classifies the join a relationship was extracted from.
type JoinKind string

const (
	JoinInner      JoinKind = "inner"
	JoinLeftOuter  JoinKind = "left_outer"
	JoinRightOuter JoinKind = "right_outer"
	JoinFullOuter  JoinKind = "full_outer"
	JoinUnknown    JoinKind = "unknown"
)

// Cardinality describes one side of a relationship ("one" or "many").
// Empty means unknown.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// CrossFilterDirection describes the filter propagation direction of a
// relationship. Empty means unknown.
type CrossFilterDirection string

const (
	CrossFilterSingle CrossFilterDirection = "single"
	CrossFilterBoth   CrossFilterDirection = "both"
)

// maxFilterSamples caps the number of filter value/operator samples
// retained per column so unbounded traces cannot grow memory.
const maxFilterSamples = 50

// FilterSample records one observed filter predicate against a column.
type FilterSample struct {
	Operator string
	Value    string
}

// Column is one column of a Table, identified case-insensitively by
// name with bracket quoting stripped.
type Column struct {
	Name     string
	Usage    ColumnUsage
	HitCount int

	// IsCallback marks a column whose value required per-row fallback
	// evaluation rather than native bulk evaluation.
	IsCallback bool

	aggregations  map[string]struct{}
	filterSamples []FilterSample
}

// AddUsage records a usage kind and bumps the hit count.
func (c *Column) AddUsage(flag ColumnUsage) {
	c.Usage |= flag
	c.HitCount++
}

// AddAggregation records an aggregation function name applied to the
// column (e.g. "SUM").
func (c *Column) AddAggregation(fn string) {
	fn = strings.ToUpper(strings.TrimSpace(fn))
	if fn == "" {
		return
	}
	if c.aggregations == nil {
		c.aggregations = make(map[string]struct{})
	}
	c.aggregations[fn] = struct{}{}
}

// Aggregations returns the recorded aggregation function names, sorted.
func (c *Column) Aggregations() []string {
	if len(c.aggregations) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.aggregations))
	for fn := range c.aggregations {
		out = append(out, fn)
	}
	sort.Strings(out)
	return out
}

// HasAggregation reports whether fn has been recorded on the column.
func (c *Column) HasAggregation(fn string) bool {
	_, ok := c.aggregations[strings.ToUpper(strings.TrimSpace(fn))]
	return ok
}

// AddFilterSample retains a filter predicate sample, dropping samples
// beyond the retention cap.
func (c *Column) AddFilterSample(operator, value string) {
	if len(c.filterSamples) >= maxFilterSamples {
		return
	}
	c.filterSamples = append(c.filterSamples, FilterSample{Operator: operator, Value: value})
}

// FilterSamples returns the retained filter samples in arrival order.
func (c *Column) FilterSamples() []FilterSample {
	return c.filterSamples
}

// Table is one table of the lineage graph, identified
// case-insensitively by name with quote characters stripped.
type Table struct {
	Name     string
	HitCount int

	// IsFromTable is set when the table appeared as a scan root
	// (FROM clause); IsJoinedTable when it appeared as a join target.
	// Both can be true.
	IsFromTable   bool
	IsJoinedTable bool

	// Running totals accumulated from per-fragment metrics.
	EstimatedRows         int64
	DurationMS            float64
	CPUTimeMS             float64
	NetParallelDurationMS float64

	CacheHits   int
	CacheMisses int

	queryIDs map[string]struct{}
	columns  map[string]*Column
}

// QueryIDs returns the identifiers of all queries that touched the
// table, sorted.
func (t *Table) QueryIDs() []string {
	if len(t.queryIDs) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.queryIDs))
	for id := range t.queryIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Column returns the named column if present.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[columnKey(name)]
	return c, ok
}

// Columns returns the table's columns sorted by name.
func (t *Table) Columns() []*Column {
	out := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ColumnCount returns the number of columns recorded on the table.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// CacheHitRate returns hits/(hits+misses) as a percentage. The second
// return is false when no cache data has been recorded.
func (t *Table) CacheHitRate() (float64, bool) {
	total := t.CacheHits + t.CacheMisses
	if total == 0 {
		return 0, false
	}
	return float64(t.CacheHits) / float64(total) * 100, true
}

// Relationship is an edge between two (table, column) pairs extracted
// from a join condition. Two edges are the same relationship if their
// endpoint tuples match in either direction.
type Relationship struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string

	JoinKind JoinKind
	HitCount int

	// Optional modeling metadata supplied by callers that know the
	// schema; the extractor itself never sets these.
	FromCardinality Cardinality
	ToCardinality   Cardinality
	CrossFilter     CrossFilterDirection
}

// matches reports whether the endpoint tuple equals (ft, fc, tt, tc)
// in either direction, comparing normalized identities.
func (r *Relationship) matches(ft, fc, tt, tc string) bool {
	forward := tableKey(r.FromTable) == tableKey(ft) &&
		columnKey(r.FromColumn) == columnKey(fc) &&
		tableKey(r.ToTable) == tableKey(tt) &&
		columnKey(r.ToColumn) == columnKey(tc)
	if forward {
		return true
	}
	return tableKey(r.FromTable) == tableKey(tt) &&
		columnKey(r.FromColumn) == columnKey(tc) &&
		tableKey(r.ToTable) == tableKey(ft) &&
		columnKey(r.ToColumn) == columnKey(fc)
}

// Graph is the mutable aggregate of everything extracted from a
// capture session: tables (which own their columns), relationships and
// counters. It performs no locking; callers serialize mutation.
type Graph struct {
	tables        map[string]*Table
	relationships []*Relationship

	// ParseFailures counts fragments the extractor could not process.
	ParseFailures int
}

// NewGraph creates an empty lineage graph.
func NewGraph() *Graph {
	return &Graph{tables: make(map[string]*Table)}
}

// Clear resets the graph to the empty state so it can be reused for a
// new capture session.
func (g *Graph) Clear() {
	g.tables = make(map[string]*Table)
	g.relationships = nil
	g.ParseFailures = 0
}

// tableKey normalizes a table name to its identity: quote characters
// stripped, surrounding whitespace trimmed, lowercased.
func tableKey(name string) string {
	return strings.ToLower(normalizeTableName(name))
}

// columnKey normalizes a column name to its identity: brackets
// stripped, surrounding whitespace trimmed, lowercased.
func columnKey(name string) string {
	return strings.ToLower(normalizeColumnName(name))
}

func normalizeTableName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "'\"`")
	return strings.TrimSpace(name)
}

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "[]")
	return strings.TrimSpace(name)
}

// GetOrAddTable returns the table with the given name, creating it if
// absent. Names are matched case-insensitively with quoting stripped.
// Blank input returns nil without creating an entry.
func (g *Graph) GetOrAddTable(name string) *Table {
	display := normalizeTableName(name)
	if display == "" {
		return nil
	}
	key := strings.ToLower(display)
	if t, ok := g.tables[key]; ok {
		return t
	}
	t := &Table{
		Name:     display,
		columns:  make(map[string]*Column),
		queryIDs: make(map[string]struct{}),
	}
	g.tables[key] = t
	return t
}

// GetOrAddColumn returns the named column of t, creating it if absent.
// Blank input or a nil table returns nil without creating an entry.
func (g *Graph) GetOrAddColumn(t *Table, name string) *Column {
	if t == nil {
		return nil
	}
	display := normalizeColumnName(name)
	if display == "" {
		return nil
	}
	key := strings.ToLower(display)
	if c, ok := t.columns[key]; ok {
		return c
	}
	c := &Column{Name: display}
	t.columns[key] = c
	return c
}

// Table returns the named table if present, without creating it.
func (g *Graph) Table(name string) (*Table, bool) {
	t, ok := g.tables[tableKey(name)]
	return t, ok
}

// Tables returns all tables sorted by name.
func (g *Graph) Tables() []*Table {
	out := make([]*Table, 0, len(g.tables))
	for _, t := range g.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TableCount returns the number of tables in the graph.
func (g *Graph) TableCount() int {
	return len(g.tables)
}

// Relationships returns all relationships in insertion order.
func (g *Graph) Relationships() []*Relationship {
	return g.relationships
}

// RelationshipCount returns the number of relationships in the graph.
func (g *Graph) RelationshipCount() int {
	return len(g.relationships)
}

// AddRelationship records an edge between (fromTable, fromColumn) and
// (toTable, toColumn). If an edge with the same endpoints already
// exists in either direction its hit count is incremented; otherwise a
// new edge with hit count 1 is appended. Both endpoints must already
// exist in the graph; a dangling endpoint returns nil.
func (g *Graph) AddRelationship(fromTable, fromColumn, toTable, toColumn string, kind JoinKind) *Relationship {
	ft, ok := g.Table(fromTable)
	if !ok {
		return nil
	}
	tt, ok := g.Table(toTable)
	if !ok {
		return nil
	}
	if _, ok := ft.Column(fromColumn); !ok {
		return nil
	}
	if _, ok := tt.Column(toColumn); !ok {
		return nil
	}

	for _, r := range g.relationships {
		if r.matches(fromTable, fromColumn, toTable, toColumn) {
			r.HitCount++
			return r
		}
	}

	r := &Relationship{
		FromTable:  ft.Name,
		FromColumn: normalizeColumnName(fromColumn),
		ToTable:    tt.Name,
		ToColumn:   normalizeColumnName(toColumn),
		JoinKind:   kind,
		HitCount:   1,
	}
	if r.JoinKind == "" {
		r.JoinKind = JoinUnknown
	}
	g.relationships = append(g.relationships, r)
	return r
}

// QueryMetrics is the optional per-fragment cost record attached to
// every table a fragment touches.
type QueryMetrics struct {
	QueryID               string  `json:"queryId"`
	EstimatedRows         int64   `json:"estimatedRows"`
	DurationMS            float64 `json:"durationMs"`
	IsCacheHit            bool    `json:"isCacheHit"`
	CPUTimeMS             float64 `json:"cpuTimeMs"`
	CPUFactor             float64 `json:"cpuFactor"`
	NetParallelDurationMS float64 `json:"netParallelDurationMs"`
}

// applyMetrics accumulates m into the table's running totals.
func (t *Table) applyMetrics(m *QueryMetrics) {
	if m == nil {
		return
	}
	t.EstimatedRows += m.EstimatedRows
	t.DurationMS += m.DurationMS
	t.CPUTimeMS += m.CPUTimeMS
	t.NetParallelDurationMS += m.NetParallelDurationMS
	if m.IsCacheHit {
		t.CacheHits++
	} else {
		t.CacheMisses++
	}
	if m.QueryID != "" {
		if t.queryIDs == nil {
			t.queryIDs = make(map[string]struct{})
		}
		t.queryIDs[m.QueryID] = struct{}{}
	}
}
