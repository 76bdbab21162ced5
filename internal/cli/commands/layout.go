package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scanlens/internal/layout"
	"github.com/leapstack-labs/scanlens/internal/lineage"
	"github.com/leapstack-labs/scanlens/internal/state"
)

// NewLayoutCommand creates the layout command.
func NewLayoutCommand() *cobra.Command {
	var save bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "layout <trace-file>...",
		Short: "Compute a diagram arrangement for the traced tables",
		Long: `Ingest scan-query traces and arrange the resulting tables on a
2-D canvas. Small graphs get a layered arrangement that follows join
direction; large graphs are packed component by component into grids.

Arrangements are keyed by the set of table names. A previously saved
arrangement for the same set of tables is applied on top of the
computed one, so manual adjustments survive recomputation.`,
		Example: `  # Arrange and print positions
  scanlens layout trace.jsonl

  # Arrange and remember the result
  scanlens layout --save trace.jsonl

  # Ignore any remembered arrangement
  scanlens layout --no-cache trace.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd)

			g, _, err := loadGraph(rt.Logger, args)
			if err != nil {
				return err
			}
			if g.TableCount() == 0 {
				return fmt.Errorf("no tables found in %d trace file(s)", len(args))
			}

			in := layout.FromLineage(g)
			params := rt.Cfg.LayoutParams()
			res := layout.Compute(in, params)

			key := modelKeyOf(g)
			if !noCache || save {
				if err := reconcileCache(rt, key, in, params, res, !noCache, save); err != nil {
					return err
				}
			}

			return renderLayout(rt, key, res)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Persist the arrangement in the state database")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip applying a previously saved arrangement")

	return cmd
}

func modelKeyOf(g *lineage.Graph) string {
	tables := g.Tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return layout.ModelKey(names)
}

// reconcileCache overlays a remembered arrangement onto res and, when
// requested, writes the final arrangement back under the same key.
func reconcileCache(rt *Runtime, key string, in layout.Input, params layout.Params, res *layout.Result, apply, save bool) error {
	if err := ensureStateDir(rt.Cfg.StatePath); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	store := state.NewStore()
	if err := store.Open(rt.Cfg.StatePath); err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer func() { _ = store.Close() }()

	rec, err := store.GetLayout(key)
	switch {
	case err == nil && apply:
		rec.Apply(res, in.Edges, params)
		rt.Logger.Debug("applied cached arrangement", "key", key, "tables", len(rec.TablePositions))
	case err == nil:
		// Remembered arrangement exists but --no-cache skips it.
	case errors.Is(err, state.ErrNotFound):
		rec = nil
	default:
		return err
	}

	if !save {
		return nil
	}

	out := &layout.CacheRecord{
		ModelKey:       key,
		TablePositions: make(map[string]layout.CachedPosition, len(res.Boxes)),
	}
	if rec != nil {
		out.Annotations = rec.Annotations
	}
	for id, box := range res.Boxes {
		out.TablePositions[id] = layout.CachedPosition{
			X: box.X, Y: box.Y, Width: box.Width, Height: box.Height,
		}
	}
	return store.SaveLayout(out)
}

// layoutReport is the JSON shape of a layout result.
type layoutReport struct {
	ModelKey  string            `json:"modelKey"`
	Algorithm layout.Algorithm  `json:"algorithm"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Boxes     []placedBox       `json:"boxes"`
	Edges     []layout.EdgeLine `json:"edges,omitempty"`
}

type placedBox struct {
	ID string `json:"id"`
	layout.Box
}

func renderLayout(rt *Runtime, key string, res *layout.Result) error {
	placed := make([]placedBox, 0, len(res.Boxes))
	for id, box := range res.Boxes {
		placed = append(placed, placedBox{ID: id, Box: box})
	}
	sortPlaced(placed)

	if rt.Renderer.IsJSON() {
		return rt.Renderer.JSON(layoutReport{
			ModelKey:  key,
			Algorithm: res.Algorithm,
			Width:     res.Width,
			Height:    res.Height,
			Boxes:     placed,
			Edges:     res.Edges,
		})
	}

	r := rt.Renderer
	r.Printf("Arrangement %s: %d tables on %.0fx%.0f canvas (key %s)\n\n",
		res.Algorithm, len(placed), res.Width, res.Height, key[:12])

	rows := make([]table.Row, 0, len(placed))
	for _, b := range placed {
		rows = append(rows, table.Row{
			b.ID,
			fmt.Sprintf("%.0f", b.X), fmt.Sprintf("%.0f", b.Y),
			fmt.Sprintf("%.0f", b.Width), fmt.Sprintf("%.0f", b.Height),
		})
	}
	r.Table("Positions", table.Row{"TABLE", "X", "Y", "W", "H"}, rows)
	return nil
}

// sortPlaced orders boxes top-to-bottom, then left-to-right, so the
// printed position map reads like the canvas.
func sortPlaced(placed []placedBox) {
	sort.Slice(placed, func(i, j int) bool {
		a, b := placed[i], placed[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.ID < b.ID
	})
}
