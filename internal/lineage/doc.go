// Package lineage extracts a table/column lineage graph from
// storage-engine scan-query text fragments.
//
// A tracing subsystem emits short, SQL-like query strings per storage
// engine call. This package parses those strings into a cumulative
// Graph of tables, columns and join relationships, classifies how each
// column is used (selected, filtered, joined, aggregated, ...) and
// accumulates per-table cost metrics so slow queries can be inspected
// table by table.
//
// # Basic Usage
//
//	g := lineage.NewGraph()
//	ex := lineage.NewExtractor(nil)
//	for _, fragment := range fragments {
//	    ex.Parse(fragment, g)
//	}
//
//	for _, t := range g.Tables() {
//	    fmt.Printf("table %s scanned %d times\n", t.Name, t.HitCount)
//	}
//
// Graph mutation is not safe for concurrent use; callers batching
// Parse calls from multiple goroutines must serialize them.
package lineage
