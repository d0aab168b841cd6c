package data

import "testing"

func multiclassPoints() []Point {
	return []Point{
		{Input: [][]float32{{1, 2, 3}, {4, 5, 6}}, Outcome: Outcome{Class: 0, Reward: 1, Penalty: -1}},
		{Input: [][]float32{{40, 5, 6}, {5, 6, 7}}, Outcome: Outcome{Class: 0, Reward: 1, Penalty: -1}},
		{Input: [][]float32{{10, 20, 30}, {11, 12, 13}}, Outcome: Outcome{Class: 0, Reward: 1, Penalty: -1}},
		{Input: [][]float32{{7, 8, 9}, {10, 11, 12}}, Outcome: Outcome{Class: 1, Reward: 1, Penalty: -1}},
		{Input: [][]float32{{100, 11, 12}, {11, 12, 13}}, Outcome: Outcome{Class: 1, Reward: 1, Penalty: -1}},
	}
}

func TestIntoViewTransposesColumnwise(t *testing.T) {
	classes := map[Class]string{0: "0", 1: "1"}
	view := IntoView(multiclassPoints(), classes)

	if view.Shape != (InputShape{Rows: 2, Columns: 3}) {
		t.Fatalf("unexpected shape: %+v", view.Shape)
	}
	want := []float32{1, 40, 10, 7, 100}
	got := view.Cells[0][0]
	if len(got) != len(want) {
		t.Fatalf("len mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cells[0][0][%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if view.N() != len(multiclassPoints()) {
		t.Fatalf("N() = %d, want %d", view.N(), len(multiclassPoints()))
	}
	if view.ClassCount[0] != 3 || view.ClassCount[1] != 2 {
		t.Fatalf("unexpected class counts: %+v", view.ClassCount)
	}
}

func TestIntoViewEmptyDatasetReturnsZeroShapeView(t *testing.T) {
	view := IntoView(nil, map[Class]string{})
	if view.Shape != (InputShape{}) {
		t.Fatalf("expected zero shape, got %+v", view.Shape)
	}
	if view.N() != 0 {
		t.Fatalf("expected N()==0, got %d", view.N())
	}
}

func simpleDataset(count int) *DataSet {
	classes := map[Class]string{0: "FALSE", 1: "TRUE"}
	ds := NewDataSet(classes)
	for i := 0; i < count; i++ {
		a := float32(i)
		ds.Points = append(ds.Points, Point{
			Input:   [][]float32{{a, a}},
			Outcome: Outcome{Class: 0, Reward: 1, Penalty: -1},
		})
	}
	return ds
}

func TestSplit3NoShuffleKeepsOrder(t *testing.T) {
	ds := simpleDataset(90)
	train, verify, test := ds.Split3()

	total := train.N() + verify.N() + test.N()
	if total != 90 {
		t.Fatalf("split3 dropped points: total %d, want 90", total)
	}
	// Without a shuffle, training values must all be less than test values
	// at the same coordinate (monotonically increasing source data).
	trVec := train.Cells[0][0]
	tstVec := test.Cells[0][0]
	for i := 0; i < len(trVec) && i < len(tstVec); i++ {
		if trVec[i] >= tstVec[i] {
			t.Fatalf("expected unshuffled ascending split, train[%d]=%v >= test[%d]=%v", i, trVec[i], i, tstVec[i])
		}
	}
}

func TestSplitWithTestMarkerRoutesCorrectly(t *testing.T) {
	classes := map[Class]string{0: "FALSE", 1: "TRUE"}
	ds := simpleDataset(300)
	marker := float32(150)
	train, verify, test := SplitWithTestMarker(ds.Points, classes, func(p Point) bool {
		return p.Input[0][1] > marker
	})

	if train.N()+verify.N()+test.N() != 300 {
		t.Fatalf("marker split dropped points")
	}
	for _, v := range train.Cells[0][1] {
		if v > marker {
			t.Fatalf("training view contains a point above the test marker")
		}
	}
	for _, v := range verify.Cells[0][1] {
		if v > marker {
			t.Fatalf("verification view contains a point above the test marker")
		}
	}
	for _, v := range test.Cells[0][1] {
		if v <= marker {
			t.Fatalf("test view contains a point at or below the test marker")
		}
	}
}
