package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scanlens/internal/cli/output"
	"github.com/leapstack-labs/scanlens/internal/layout"
	"github.com/leapstack-labs/scanlens/internal/state"
)

const joinTrace = "FROM 'Sales' " +
	"LEFT OUTER JOIN 'Customer' ON 'Sales'[CustomerKey] = 'Customer'[CustomerKey] " +
	"LEFT OUTER JOIN 'Product' ON 'Sales'[ProductKey] = 'Product'[ProductKey]\n"

func TestLayoutCommandJSON(t *testing.T) {
	trace := writeTrace(t, "trace.txt", joinTrace)

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeJSON)

	cmd := NewLayoutCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(WithRuntime(context.Background(), rt))
	cmd.SetArgs([]string{trace})
	require.NoError(t, cmd.Execute())

	var report layoutReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, layout.AlgorithmLayered, report.Algorithm)
	assert.Len(t, report.Boxes, 3)
	assert.Len(t, report.Edges, 2)
	assert.NotEmpty(t, report.ModelKey)
	assert.Greater(t, report.Width, 0.0)
	assert.Greater(t, report.Height, 0.0)
}

func TestLayoutCommandNoTables(t *testing.T) {
	trace := writeTrace(t, "trace.txt", "nothing resembling a scan query\n")

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeText)

	cmd := NewLayoutCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(WithRuntime(context.Background(), rt))
	cmd.SetArgs([]string{trace})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables")
}

func TestLayoutCommandSaveAndReapply(t *testing.T) {
	trace := writeTrace(t, "trace.txt", joinTrace)

	var buf bytes.Buffer
	rt := testRuntime(t, &buf, output.ModeJSON)

	run := func(args ...string) layoutReport {
		buf.Reset()
		cmd := NewLayoutCommand()
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetContext(WithRuntime(context.Background(), rt))
		cmd.SetArgs(append([]string{trace}, args...))
		require.NoError(t, cmd.Execute())
		var report layoutReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		return report
	}

	first := run("--save")

	// Simulate a manual adjustment: move one table far away.
	store := state.NewStore()
	require.NoError(t, store.Open(rt.Cfg.StatePath))
	rec, err := store.GetLayout(first.ModelKey)
	require.NoError(t, err)
	pos := rec.TablePositions["Sales"]
	pos.X = 5000
	pos.Y = 5000
	rec.TablePositions["Sales"] = pos
	require.NoError(t, store.SaveLayout(rec))
	require.NoError(t, store.Close())

	second := run()
	moved := boxByID(t, second, "Sales")
	assert.Equal(t, 5000.0, moved.X)
	assert.Equal(t, 5000.0, moved.Y)
	// Canvas grows to hold the displaced box.
	assert.GreaterOrEqual(t, second.Width, 5000.0)

	// --no-cache ignores the stored arrangement.
	third := run("--no-cache")
	fresh := boxByID(t, third, "Sales")
	assert.NotEqual(t, 5000.0, fresh.X)
}

func boxByID(t *testing.T, report layoutReport, id string) placedBox {
	t.Helper()
	for _, b := range report.Boxes {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("box %q not in report", id)
	return placedBox{}
}

func TestModelKeyOfMatchesTableSet(t *testing.T) {
	trace := writeTrace(t, "trace.txt", joinTrace)

	g, _, err := loadGraph(nil, []string{trace})
	require.NoError(t, err)

	want := layout.ModelKey([]string{"Sales", "Customer", "Product"})
	assert.Equal(t, want, modelKeyOf(g))
}
