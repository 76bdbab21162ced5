package layout

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"
)

// CachedPosition is one table's remembered placement, including the
// collapse state the diagram surface tracks.
type CachedPosition struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	IsCollapsed    bool    `json:"isCollapsed"`
	ExpandedHeight float64 `json:"expandedHeight"`
}

// Annotation is a free-floating note pinned to the diagram.
type Annotation struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CacheRecord is a persisted diagram arrangement, keyed by a stable
// model key so the same set of tables recalls the same arrangement.
// The layout engines treat it as opaque position data to overlay onto
// freshly computed output; reading and writing it belongs to callers.
type CacheRecord struct {
	ModelKey       string                    `json:"modelKey"`
	LastModified   time.Time                 `json:"lastModified"`
	TablePositions map[string]CachedPosition `json:"tablePositions"`
	Annotations    []Annotation              `json:"annotations,omitempty"`
}

// ModelKey derives the stable cache key for a set of table names: the
// hex SHA-256 of the sorted, lowercased names joined by newlines.
func ModelKey(tableNames []string) string {
	names := make([]string, len(tableNames))
	for i, n := range tableNames {
		names[i] = strings.ToLower(n)
	}
	sort.Strings(names)
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:])
}

// Apply overlays the cached positions onto a computed result: boxes
// with a cached entry take the cached placement verbatim, edge lines
// are rederived from the moved boxes, and the canvas grows to cover
// them. Tables without a cached entry keep their computed position.
func (r *CacheRecord) Apply(res *Result, edges []Edge, p Params) {
	if r == nil || len(r.TablePositions) == 0 {
		return
	}

	for id, box := range res.Boxes {
		cached, ok := r.TablePositions[id]
		if !ok {
			continue
		}
		box.X = cached.X
		box.Y = cached.Y
		if cached.Width > 0 {
			box.Width = cached.Width
		}
		if cached.Height > 0 {
			box.Height = cached.Height
		}
		res.Boxes[id] = box
	}

	res.Edges = EdgeLines(edges, res.Boxes)

	for _, b := range res.Boxes {
		res.Width = math.Max(res.Width, b.X+b.Width+p.Padding)
		res.Height = math.Max(res.Height, b.Y+b.Height+p.Padding)
	}
}
