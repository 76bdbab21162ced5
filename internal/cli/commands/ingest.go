package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/scanlens/internal/lineage"
	"github.com/leapstack-labs/scanlens/internal/loader"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var showColumns bool
	var session string

	cmd := &cobra.Command{
		Use:   "ingest <trace-file>...",
		Short: "Parse scan-query trace files into a lineage summary",
		Long: `Parse storage-engine scan-query traces and summarize the lineage
they describe: which tables and columns the queries touch, how tables
relate through joins, and where time is spent.

Plain-text files contribute one scan query per line; .jsonl/.ndjson
files carry per-query execution metrics alongside the query text.`,
		Example: `  # Summarize a capture
  scanlens ingest trace.txt

  # Merge several captures, with per-column detail
  scanlens ingest --columns morning.jsonl evening.jsonl

  # Record the capture as a named session in the state database
  scanlens ingest --session nightly trace.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd)

			g, fragments, err := loadGraph(rt.Logger, args)
			if err != nil {
				return err
			}

			if session != "" {
				if err := recordSession(rt, session, fragments, g.ParseFailures); err != nil {
					return err
				}
			}

			return renderSummary(rt, g, fragments, showColumns)
		},
	}

	cmd.Flags().BoolVar(&showColumns, "columns", false, "Include per-column usage detail")
	cmd.Flags().StringVar(&session, "session", "", "Record this capture as a named session")

	return cmd
}

// loadGraph reads every trace file concurrently, then feeds the
// fragments through the extractor in argument order so accumulated
// counters are deterministic.
func loadGraph(logger *slog.Logger, paths []string) (*lineage.Graph, int, error) {
	batches := make([][]loader.Fragment, len(paths))

	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			frags, err := loader.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			batches[i] = frags
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	g := lineage.NewGraph()
	ex := lineage.NewExtractor(logger)
	total := 0
	for _, batch := range batches {
		for _, frag := range batch {
			ex.ParseWithMetrics(frag.Text, frag.Metrics, g)
			total++
		}
	}
	return g, total, nil
}

// ingestSummary is the JSON shape of an ingest report.
type ingestSummary struct {
	Fragments     int                 `json:"fragments"`
	ParseFailures int                 `json:"parseFailures"`
	Tables        []tableSummary      `json:"tables"`
	Relationships []relSummary        `json:"relationships"`
	Bottlenecks   []bottleneckSummary `json:"bottlenecks,omitempty"`
}

type tableSummary struct {
	Name          string          `json:"name"`
	Hits          int             `json:"hits"`
	Role          string          `json:"role"`
	Columns       int             `json:"columns"`
	EstimatedRows int64           `json:"estimatedRows,omitempty"`
	DurationMS    float64         `json:"durationMs,omitempty"`
	CPUTimeMS     float64         `json:"cpuTimeMs,omitempty"`
	CacheHitRate  *float64        `json:"cacheHitRate,omitempty"`
	Heat          float64         `json:"heat"`
	ColumnDetail  []columnSummary `json:"columnDetail,omitempty"`
}

type columnSummary struct {
	Name         string   `json:"name"`
	Hits         int      `json:"hits"`
	Usage        string   `json:"usage"`
	Aggregations []string `json:"aggregations,omitempty"`
	IsCallback   bool     `json:"isCallback,omitempty"`
}

type relSummary struct {
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
	Kind       string `json:"kind"`
	Hits       int    `json:"hits"`
}

type bottleneckSummary struct {
	Table      string  `json:"table"`
	Rank       int     `json:"rank"`
	DurationMS float64 `json:"durationMs"`
}

func summarize(g *lineage.Graph, metric lineage.HeatMetric, fragments int, withColumns bool) ingestSummary {
	heat := lineage.HeatLevels(g, metric)

	sum := ingestSummary{
		Fragments:     fragments,
		ParseFailures: g.ParseFailures,
	}

	for _, t := range g.Tables() {
		ts := tableSummary{
			Name:          t.Name,
			Hits:          t.HitCount,
			Role:          tableRole(t),
			Columns:       t.ColumnCount(),
			EstimatedRows: t.EstimatedRows,
			DurationMS:    t.DurationMS,
			CPUTimeMS:     t.CPUTimeMS,
			Heat:          heat[t.Name],
		}
		if rate, ok := t.CacheHitRate(); ok {
			ts.CacheHitRate = &rate
		}
		if withColumns {
			for _, c := range t.Columns() {
				ts.ColumnDetail = append(ts.ColumnDetail, columnSummary{
					Name:         c.Name,
					Hits:         c.HitCount,
					Usage:        c.Usage.String(),
					Aggregations: c.Aggregations(),
					IsCallback:   c.IsCallback,
				})
			}
		}
		sum.Tables = append(sum.Tables, ts)
	}

	// Sort a copy; Relationships exposes the graph's insertion-ordered slice.
	rels := append([]*lineage.Relationship(nil), g.Relationships()...)
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].FromTable != rels[j].FromTable {
			return rels[i].FromTable < rels[j].FromTable
		}
		return rels[i].ToTable < rels[j].ToTable
	})
	for _, r := range rels {
		sum.Relationships = append(sum.Relationships, relSummary{
			FromTable:  r.FromTable,
			FromColumn: r.FromColumn,
			ToTable:    r.ToTable,
			ToColumn:   r.ToColumn,
			Kind:       string(r.JoinKind),
			Hits:       r.HitCount,
		})
	}

	for _, b := range lineage.Bottlenecks(g) {
		sum.Bottlenecks = append(sum.Bottlenecks, bottleneckSummary{
			Table:      b.Table.Name,
			Rank:       b.Rank,
			DurationMS: b.Table.DurationMS,
		})
	}

	return sum
}

func tableRole(t *lineage.Table) string {
	switch {
	case t.IsFromTable && t.IsJoinedTable:
		return "root+join"
	case t.IsFromTable:
		return "root"
	case t.IsJoinedTable:
		return "join"
	default:
		return "referenced"
	}
}

func renderSummary(rt *Runtime, g *lineage.Graph, fragments int, withColumns bool) error {
	sum := summarize(g, rt.Cfg.HeatBy(), fragments, withColumns)

	if rt.Renderer.IsJSON() {
		return rt.Renderer.JSON(sum)
	}

	r := rt.Renderer
	r.Printf("Parsed %d fragments (%d failures), %d tables, %d relationships\n\n",
		sum.Fragments, sum.ParseFailures, len(sum.Tables), len(sum.Relationships))

	rows := make([]table.Row, 0, len(sum.Tables))
	for _, t := range sum.Tables {
		cache := "-"
		if t.CacheHitRate != nil {
			cache = fmt.Sprintf("%.1f%%", *t.CacheHitRate)
		}
		rows = append(rows, table.Row{
			t.Name, t.Role, t.Hits, t.Columns,
			t.EstimatedRows, fmt.Sprintf("%.1f", t.DurationMS), cache,
			fmt.Sprintf("%.2f", t.Heat),
		})
	}
	r.Table("Tables", table.Row{"TABLE", "ROLE", "HITS", "COLS", "EST ROWS", "MS", "CACHE", "HEAT"}, rows)

	if withColumns {
		r.Println()
		var crows []table.Row
		for _, t := range sum.Tables {
			for _, c := range t.ColumnDetail {
				aggs := strings.Join(c.Aggregations, ",")
				crows = append(crows, table.Row{t.Name, c.Name, c.Hits, c.Usage, aggs})
			}
		}
		r.Table("Columns", table.Row{"TABLE", "COLUMN", "HITS", "USAGE", "AGGS"}, crows)
	}

	if len(sum.Relationships) > 0 {
		r.Println()
		var rrows []table.Row
		for _, rel := range sum.Relationships {
			rrows = append(rrows, table.Row{
				fmt.Sprintf("%s[%s]", rel.FromTable, rel.FromColumn),
				fmt.Sprintf("%s[%s]", rel.ToTable, rel.ToColumn),
				rel.Kind, rel.Hits,
			})
		}
		r.Table("Relationships", table.Row{"FROM", "TO", "KIND", "HITS"}, rrows)
	}

	if len(sum.Bottlenecks) > 0 {
		r.Println()
		var brows []table.Row
		for _, b := range sum.Bottlenecks {
			brows = append(brows, table.Row{b.Rank, b.Table, fmt.Sprintf("%.1f", b.DurationMS)})
		}
		r.Table("Bottlenecks", table.Row{"RANK", "TABLE", "MS"}, brows)
	}

	return nil
}
