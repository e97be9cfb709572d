package extract

import (
	"math"
	"sort"
	"strings"
)

// Row is one logical table row: token strings ordered left-to-right.
type Row []string

const (
	// rowTolerance is the vertical distance (in PDF coordinate units) within
	// which a fragment joins an existing row cluster.
	rowTolerance = 3.0

	// minRowTokens filters out header/footer noise; a data row always carries
	// at least procedure, date, patient id and role.
	minRowTokens = 4
)

type rowCluster struct {
	// y is the representative coordinate, fixed by the founding fragment.
	y         float64
	fragments []Fragment
}

// ClusterRows groups a page's fragments into logical table rows.
//
// Each fragment joins the first existing cluster whose representative y is
// within rowTolerance, else founds a new cluster keyed by its own y. The
// greedy first-match pass is order-dependent only in tie cases and is never
// re-sorted before clustering, so it is stable across runs for the same
// input order. Clusters are then ordered by descending y (PDF origin is
// bottom-left, so the first table row has the highest y) and fragments
// within a row by ascending x.
func ClusterRows(fragments []Fragment) []Row {
	var clusters []*rowCluster
	for _, f := range fragments {
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" {
			continue
		}
		placed := false
		for _, c := range clusters {
			if math.Abs(c.y-f.Y) <= rowTolerance {
				c.fragments = append(c.fragments, f)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &rowCluster{y: f.Y, fragments: []Fragment{f}})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].y > clusters[j].y
	})

	rows := make([]Row, 0, len(clusters))
	for _, c := range clusters {
		if len(c.fragments) < minRowTokens {
			continue
		}
		sort.SliceStable(c.fragments, func(i, j int) bool {
			return c.fragments[i].X < c.fragments[j].X
		})
		row := make(Row, len(c.fragments))
		for i, f := range c.fragments {
			row[i] = f.Text
		}
		rows = append(rows, row)
	}
	return rows
}
