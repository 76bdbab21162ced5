package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scanlens/internal/cli/output"
	"github.com/leapstack-labs/scanlens/internal/config"
	"github.com/leapstack-labs/scanlens/internal/lineage"
	"github.com/leapstack-labs/scanlens/internal/testutil"
)

func testRuntime(t *testing.T, buf *bytes.Buffer, mode output.Mode) *Runtime {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")
	return &Runtime{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRenderer(buf, buf, mode),
	}
}

func writeTrace(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadGraphTextAndJSONL(t *testing.T) {
	txt := writeTrace(t, "trace.txt",
		"FROM 'Sales' SELECT 'Sales'[Amount]\n"+
			"\n"+
			"FROM 'Sales' LEFT OUTER JOIN 'Customer' ON 'Sales'[CustomerKey] = 'Customer'[CustomerKey]\n")
	jsonl := writeTrace(t, "trace.jsonl",
		`{"text":"FROM 'Product' SELECT 'Product'[Name]","queryId":"q1","durationMs":12.5,"cpuTimeMs":3.0,"isCacheHit":true}`+"\n")

	logger := testutil.NewTestLogger(t)
	g, fragments, err := loadGraph(logger, []string{txt, jsonl})
	require.NoError(t, err)

	// The blank line in the text trace is skipped by the loader, not
	// counted as a fragment.
	assert.Equal(t, 3, fragments)
	assert.Equal(t, 0, g.ParseFailures)
	assert.Equal(t, 3, g.TableCount())

	sales, ok := g.Table("Sales")
	require.True(t, ok)
	assert.True(t, sales.IsFromTable)
	assert.Equal(t, 2, sales.HitCount)

	product, ok := g.Table("Product")
	require.True(t, ok)
	assert.Equal(t, 12.5, product.DurationMS)
	assert.Equal(t, 1, product.CacheHits)
}

func TestLoadGraphMissingFile(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	_, _, err := loadGraph(logger, []string{filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestIngestCommandJSON(t *testing.T) {
	trace := writeTrace(t, "trace.txt",
		"FROM 'Sales' SELECT 'Sales'[Amount] INNER JOIN 'Customer' ON 'Sales'[CustomerKey] = 'Customer'[CustomerKey]\n")

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeJSON)

	cmd := NewIngestCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(WithRuntime(context.Background(), rt))
	cmd.SetArgs([]string{trace})
	require.NoError(t, cmd.Execute())

	var sum ingestSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sum))
	assert.Equal(t, 1, sum.Fragments)
	assert.Equal(t, 0, sum.ParseFailures)
	require.Len(t, sum.Tables, 2)
	assert.Equal(t, "Customer", sum.Tables[0].Name)
	assert.Equal(t, "Sales", sum.Tables[1].Name)
	require.Len(t, sum.Relationships, 1)
	assert.Equal(t, "inner", sum.Relationships[0].Kind)
}

func TestIngestCommandTextWithColumns(t *testing.T) {
	trace := writeTrace(t, "trace.txt",
		"FROM 'Sales' SELECT SUM('Sales'[Amount])\n")

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeText)

	cmd := NewIngestCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(WithRuntime(context.Background(), rt))
	cmd.SetArgs([]string{trace, "--columns"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Parsed 1 fragments")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "Amount")
	assert.Contains(t, out, "SUM")
}

func TestIngestCommandRecordsSession(t *testing.T) {
	trace := writeTrace(t, "trace.txt", "FROM 'Sales'\nnot a scan query but still counted\n")

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeText)

	cmd := NewIngestCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(WithRuntime(context.Background(), rt))
	cmd.SetArgs([]string{trace, "--session", "nightly"})
	require.NoError(t, cmd.Execute())

	// The state database exists once a session has been recorded.
	_, err := os.Stat(rt.Cfg.StatePath)
	assert.NoError(t, err)
}

func TestSummarizeRolesAndBottlenecks(t *testing.T) {
	jsonl := writeTrace(t, "trace.jsonl",
		`{"text":"FROM 'Sales' INNER JOIN 'Customer' ON 'Sales'[CK] = 'Customer'[CK]","queryId":"q1","durationMs":50}`+"\n"+
			`{"text":"FROM 'Customer'","queryId":"q2","durationMs":10}`+"\n")

	logger := testutil.NewTestLogger(t)
	g, fragments, err := loadGraph(logger, []string{jsonl})
	require.NoError(t, err)

	sum := summarize(g, "hits", fragments, false)
	require.Len(t, sum.Tables, 2)
	assert.Equal(t, "root+join", sum.Tables[0].Role) // Customer
	assert.Equal(t, "root", sum.Tables[1].Role)      // Sales

	require.NotEmpty(t, sum.Bottlenecks)
	assert.Equal(t, "Customer", sum.Bottlenecks[0].Table)
	assert.Equal(t, 1, sum.Bottlenecks[0].Rank)
}

func TestSummarizePreservesGraphRelationshipOrder(t *testing.T) {
	g := lineage.NewGraph()
	for _, tbl := range []string{"Zeta", "Widget", "Alpha", "Beta"} {
		tc := g.GetOrAddTable(tbl)
		g.GetOrAddColumn(tc, "k")
	}
	g.AddRelationship("Zeta", "k", "Widget", "k", lineage.JoinInner)
	g.AddRelationship("Alpha", "k", "Beta", "k", lineage.JoinInner)

	sum := summarize(g, "hits", 0, false)

	// The summary sorts by table pair for stable output.
	require.Len(t, sum.Relationships, 2)
	assert.Equal(t, "Alpha", sum.Relationships[0].FromTable)
	assert.Equal(t, "Zeta", sum.Relationships[1].FromTable)

	// The graph's own insertion-ordered view must be untouched.
	rels := g.Relationships()
	require.Len(t, rels, 2)
	assert.Equal(t, "Zeta", rels[0].FromTable)
	assert.Equal(t, "Alpha", rels[1].FromTable)
}
