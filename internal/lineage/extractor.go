package lineage

import (
	"log/slog"
	"strings"
)

// Extractor parses scan-query text fragments into a Graph. It is
// stateless between calls; all accumulation happens on the graph.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger discards logs.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Parse extracts lineage from one fragment into g. It never panics
// past its boundary: any internal failure increments g.ParseFailures
// and returns false so a batch of calls can continue.
func (e *Extractor) Parse(text string, g *Graph) bool {
	return e.ParseWithMetrics(text, nil, g)
}

// ParseWithMetrics is Parse with an optional per-fragment cost record
// that gets attached to every table the fragment touches.
func (e *Extractor) ParseWithMetrics(text string, metrics *QueryMetrics, g *Graph) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("fragment extraction failed", "panic", r)
			g.ParseFailures++
			ok = false
		}
	}()

	if strings.TrimSpace(text) == "" {
		g.ParseFailures++
		return false
	}

	// Every sub-extraction runs unconditionally over the same text, so
	// a table can be both a scan root and a join target when it
	// appears in both clauses.
	touched := make(map[*Table]struct{})
	touch := func(t *Table) *Table {
		if t != nil {
			touched[t] = struct{}{}
		}
		return t
	}

	for _, name := range scanRootTables(text) {
		if t := touch(g.GetOrAddTable(name)); t != nil {
			t.IsFromTable = true
			t.HitCount++
		}
	}

	for _, ref := range scanSelectColumns(text) {
		t := touch(g.GetOrAddTable(ref.Table))
		if c := g.GetOrAddColumn(t, ref.Column); c != nil {
			c.AddUsage(UsageSelect)
		}
	}

	for _, join := range scanJoinTargets(text) {
		if t := touch(g.GetOrAddTable(join.Table)); t != nil {
			t.IsJoinedTable = true
			t.HitCount++
		}
	}

	for _, cond := range scanJoinConditions(text) {
		from := touch(g.GetOrAddTable(cond.From.Table))
		to := touch(g.GetOrAddTable(cond.To.Table))
		fc := g.GetOrAddColumn(from, cond.From.Column)
		tc := g.GetOrAddColumn(to, cond.To.Column)
		if fc != nil {
			fc.AddUsage(UsageJoin)
		}
		if tc != nil {
			tc.AddUsage(UsageJoin)
		}
		// Endpoints are created above before the edge is attached, so
		// a relationship can never reference an absent pair.
		if from != nil && to != nil && fc != nil && tc != nil {
			g.AddRelationship(cond.From.Table, cond.From.Column, cond.To.Table, cond.To.Column, cond.Kind)
		}
	}

	for _, ref := range scanWhereColumns(text) {
		t := touch(g.GetOrAddTable(ref.Table))
		if c := g.GetOrAddColumn(t, ref.Column); c != nil {
			c.AddUsage(UsageFilter)
		}
	}

	for _, pred := range scanFilterPredicates(text) {
		t := touch(g.GetOrAddTable(pred.Ref.Table))
		if c := g.GetOrAddColumn(t, pred.Ref.Column); c != nil {
			c.AddFilterSample(pred.Operator, pred.Value)
		}
	}

	for _, agg := range scanAggregations(text) {
		if agg.Table == "" {
			// Bare COUNT() attaches to no column.
			continue
		}
		t := touch(g.GetOrAddTable(agg.Table))
		if c := g.GetOrAddColumn(t, agg.Column); c != nil {
			c.AddUsage(UsageAggregate)
			c.AddAggregation(agg.Function)
		}
	}

	for _, ref := range scanCallbackColumns(text) {
		t := touch(g.GetOrAddTable(ref.Table))
		if c := g.GetOrAddColumn(t, ref.Column); c != nil {
			c.IsCallback = true
		}
	}

	if metrics != nil {
		for t := range touched {
			t.applyMetrics(metrics)
		}
	}

	return true
}
