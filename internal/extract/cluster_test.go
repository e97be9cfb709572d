package extract

import (
	"reflect"
	"testing"
)

func row(texts ...string) Row { return Row(texts) }

func TestClusterRowsGroupsByVerticalProximity(t *testing.T) {
	fragments := []Fragment{
		{Text: "Phaco", X: 10, Y: 700},
		{Text: "R", X: 120, Y: 701.5},
		{Text: "2023-05-14", X: 180, Y: 699},
		{Text: "123456", X: 260, Y: 700.8},
		{Text: "Trabeculectomy", X: 10, Y: 650},
		{Text: "L", X: 120, Y: 652},
		{Text: "2023-06-01", X: 180, Y: 649.2},
		{Text: "654321", X: 260, Y: 650},
	}

	rows := ClusterRows(fragments)
	want := []Row{
		row("Phaco", "R", "2023-05-14", "123456"),
		row("Trabeculectomy", "L", "2023-06-01", "654321"),
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("ClusterRows = %v, want %v", rows, want)
	}
}

func TestClusterRowsOrdersTopRowFirst(t *testing.T) {
	// Lower-y row appears first in the input; output must still lead with
	// the highest y, since the PDF origin is bottom-left.
	fragments := []Fragment{
		{Text: "a", X: 0, Y: 100},
		{Text: "b", X: 10, Y: 100},
		{Text: "c", X: 20, Y: 100},
		{Text: "d", X: 30, Y: 100},
		{Text: "w", X: 0, Y: 500},
		{Text: "x", X: 10, Y: 500},
		{Text: "y", X: 20, Y: 500},
		{Text: "z", X: 30, Y: 500},
	}
	rows := ClusterRows(fragments)
	want := []Row{row("w", "x", "y", "z"), row("a", "b", "c", "d")}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("ClusterRows = %v, want %v", rows, want)
	}
}

func TestClusterRowsDeterministicAcrossRowReordering(t *testing.T) {
	a := []Fragment{
		{Text: "p1", X: 10, Y: 700}, {Text: "p2", X: 20, Y: 700},
		{Text: "p3", X: 30, Y: 700}, {Text: "p4", X: 40, Y: 700},
		{Text: "q1", X: 10, Y: 600}, {Text: "q2", X: 20, Y: 600},
		{Text: "q3", X: 30, Y: 600}, {Text: "q4", X: 40, Y: 600},
	}
	// Same fragments with the two rows interleaved and x out of order.
	b := []Fragment{
		{Text: "q4", X: 40, Y: 600}, {Text: "p2", X: 20, Y: 700},
		{Text: "q1", X: 10, Y: 600}, {Text: "p4", X: 40, Y: 700},
		{Text: "p1", X: 10, Y: 700}, {Text: "q3", X: 30, Y: 600},
		{Text: "p3", X: 30, Y: 700}, {Text: "q2", X: 20, Y: 600},
	}

	ra := ClusterRows(a)
	rb := ClusterRows(b)
	if !reflect.DeepEqual(ra, rb) {
		t.Fatalf("clustering not commutative across row reordering: %v vs %v", ra, rb)
	}
}

func TestClusterRowsDiscardsShortRows(t *testing.T) {
	fragments := []Fragment{
		{Text: "Page", X: 10, Y: 30},
		{Text: "1", X: 40, Y: 30},
		{Text: "a", X: 0, Y: 700}, {Text: "b", X: 10, Y: 700},
		{Text: "c", X: 20, Y: 700}, {Text: "d", X: 30, Y: 700},
	}
	rows := ClusterRows(fragments)
	if len(rows) != 1 {
		t.Fatalf("expected footer row to be discarded, got %v", rows)
	}
}

func TestClusterRowsSkipsEmptyFragments(t *testing.T) {
	fragments := []Fragment{
		{Text: "  ", X: 5, Y: 700},
		{Text: "a", X: 0, Y: 700}, {Text: "b", X: 10, Y: 700},
		{Text: "c", X: 20, Y: 700}, {Text: "d", X: 30, Y: 700},
	}
	rows := ClusterRows(fragments)
	want := []Row{row("a", "b", "c", "d")}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("ClusterRows = %v, want %v", rows, want)
	}
}
