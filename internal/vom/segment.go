package vom

import (
	"strings"

	"github.com/termpilot/termpilot/internal/term"
)

// Cluster is a maximal horizontal run of cells sharing one style on one
// row. Clusters are transient: produced and consumed within a single VOM
// pass.
type Cluster struct {
	Bounds       Rect
	Text         string
	Style        term.Style
	IsWhitespace bool
}

// Segment splits a snapshot into style-homogeneous clusters, one per
// contiguous same-style run per row. Runs are further split on gaps of two
// or more spaces so that visually separate elements sharing a style (two
// buttons on one row) come out as distinct clusters; single interior
// spaces keep multi-word labels together. Whitespace-only runs are
// dropped. Segmentation is intentionally row-scoped: multi-line elements
// are the classifier's concern, not segmentation's.
func Segment(snap *term.Snapshot) []Cluster {
	var clusters []Cluster

	for r := 0; r < snap.Rows; r++ {
		row := snap.Cells[r]
		start := 0
		for c := 1; c <= snap.Cols; c++ {
			if c < snap.Cols && row[c].Style == row[start].Style {
				continue
			}
			clusters = appendRun(clusters, row[start:c], start, r)
			start = c
		}
	}

	return clusters
}

// appendRun splits one same-style run on 2+ space gaps and seals each
// group as a cluster with bounds trimmed to its glyph span.
func appendRun(clusters []Cluster, cells []term.Cell, x, y int) []Cluster {
	start, last := -1, -1
	spaces := 0

	flush := func() {
		if start >= 0 {
			if cl, ok := sealCluster(cells[start:last+1], x+start, y); ok {
				clusters = append(clusters, cl)
			}
			start = -1
		}
	}

	for i, cell := range cells {
		if cell.Rune == ' ' {
			spaces++
			if spaces >= 2 {
				flush()
			}
			continue
		}
		spaces = 0
		if start < 0 {
			start = i
		}
		last = i
	}
	flush()

	return clusters
}

// sealCluster builds a Cluster from a run of cells, reporting ok=false for
// whitespace-only runs.
func sealCluster(cells []term.Cell, x, y int) (Cluster, bool) {
	var sb strings.Builder
	for _, cell := range cells {
		if cell.Rune == 0 {
			continue // wide-rune trailing cell
		}
		sb.WriteRune(cell.Rune)
	}
	text := sb.String()

	if strings.TrimSpace(text) == "" {
		return Cluster{}, false
	}

	return Cluster{
		Bounds: Rect{X: x, Y: y, W: len(cells), H: 1},
		Text:   text,
		Style:  cells[0].Style,
	}, true
}
