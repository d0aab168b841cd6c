package serialize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/forest"
	"github.com/philipluk/primeclue/function"
	"github.com/philipluk/primeclue/node"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

func roundTripBytes(t *testing.T, build func(s *Serializator)) *Serializator {
	t.Helper()
	s := NewSerializator()
	build(s)
	bytes := s.ToBytes()
	out, err := FromBytes(bytes)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return out
}

func TestBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		out := roundTripBytes(t, func(s *Serializator) { SerializeBool(s, v) })
		got, err := DeserializeBool(out)
		if err != nil {
			t.Fatalf("DeserializeBool: %v", err)
		}
		if got != v {
			t.Fatalf("got %v, want %v", got, v)
		}
	}
}

func TestUint16SliceRoundTrip(t *testing.T) {
	v := []uint16{1, 2, 3}
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeSlice(s, v, SerializeUint16)
	})
	got, err := DeserializeSlice(out, DeserializeUint16)
	if err != nil {
		t.Fatalf("DeserializeSlice: %v", err)
	}
	if len(got) != len(v) {
		t.Fatalf("got %v, want %v", got, v)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("got %v, want %v", got, v)
		}
	}
}

func TestStringWithSpaceRoundTrip(t *testing.T) {
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeInt(s, 43)
		SerializeString(s, "Some string with spaces")
	})
	n, err := DeserializeInt(out)
	if err != nil {
		t.Fatalf("DeserializeInt: %v", err)
	}
	str, err := DeserializeString(out)
	if err != nil {
		t.Fatalf("DeserializeString: %v", err)
	}
	if n != 43 || str != "Some string with spaces" {
		t.Fatalf("got (%d, %q)", n, str)
	}
}

func TestMapRoundTrip(t *testing.T) {
	m := map[uint16]string{1: "1", 2: "2", 3: "3"}
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeMap(s, m, SerializeUint16, SerializeString)
	})
	got, err := DeserializeMap(out, DeserializeUint16, DeserializeString)
	if err != nil {
		t.Fatalf("DeserializeMap: %v", err)
	}
	if len(got) != len(m) {
		t.Fatalf("got %v, want %v", got, m)
	}
	for k, v := range m {
		if got[k] != v {
			t.Fatalf("key %d: got %q, want %q", k, got[k], v)
		}
	}
}

func TestNotEnoughTokens(t *testing.T) {
	s := NewSerializator()
	SerializeInt(s, 42)
	SerializeString(s, "Some text")
	s.tokens = s.tokens[:len(s.tokens)-1]

	if _, err := DeserializeInt(s); err != nil {
		t.Fatalf("unexpected error on first field: %v", err)
	}
	if _, err := DeserializeString(s); err == nil {
		t.Fatalf("expected an error for a missing token")
	}
}

func TestInvalidChecksumDetected(t *testing.T) {
	s := NewSerializator()
	SerializeInt(s, 42)
	SerializeString(s, "Some text")
	bytes := s.ToBytes()
	bytes[len(bytes)-2] ^= 0xFF

	if _, err := FromBytes(bytes); err == nil {
		t.Fatalf("expected an invalid checksum error")
	}
}

func TestOptionInvalidToken(t *testing.T) {
	s := NewSerializator()
	v := 15
	SerializeOption(s, &v, SerializeInt)
	disc := len(s.tokens) - 2
	s.tokens[disc] = "Smoe"
	bytes := s.ToBytes()

	out, err := FromBytes(bytes)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if _, err := DeserializeOption(out, DeserializeInt); err == nil {
		t.Fatalf("expected an invalid token error")
	}
}

func TestOptionNoneRoundTrip(t *testing.T) {
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeOption[int](s, nil, SerializeInt)
	})
	got, err := DeserializeOption(out, DeserializeInt)
	if err != nil {
		t.Fatalf("DeserializeOption: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func fixedTreeWithRealOp() *tree.Tree {
	shape := data.InputShape{Rows: 1, Columns: 2}
	add, ok := function.LookupBinary("add")
	if !ok {
		panic("add operator missing from registry")
	}
	left := node.NewWeighted(&node.DataValueNode{Row: 0, Col: 0})
	right := node.NewWeighted(&node.ConstantNode{Name: "1", Value: 1})
	root := node.NewWeighted(&node.BinaryNode{Op: add, Left: *left, Right: *right})
	return tree.New(root, shape)
}

func TestTreeRoundTrip(t *testing.T) {
	tr := fixedTreeWithRealOp()
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeTree(s, tr)
	})
	got, err := DeserializeTree(out)
	if err != nil {
		t.Fatalf("DeserializeTree: %v", err)
	}
	if got.NodeCount != tr.NodeCount {
		t.Fatalf("NodeCount = %d, want %d", got.NodeCount, tr.NodeCount)
	}
	if got.Shape != tr.Shape {
		t.Fatalf("Shape = %+v, want %+v", got.Shape, tr.Shape)
	}

	view := sampleView(4)
	wantOut := tr.Execute(view.Cells)
	gotOut := got.Execute(view.Cells)
	for i := range wantOut {
		if gotOut[i] != wantOut[i] {
			t.Fatalf("Execute()[%d] = %v, want %v", i, gotOut[i], wantOut[i])
		}
	}
}

func TestScoredTreeRoundTrip(t *testing.T) {
	st := tree.ScoredTree{
		Tree: fixedTreeWithRealOp(),
		Score: score.Score{
			Objective: score.Accuracy,
			Class:     1,
			Value:     0.75,
			Threshold: score.Threshold{Value: 0.5},
		},
	}
	out := roundTripBytes(t, func(s *Serializator) {
		SerializeScoredTree(s, st)
	})
	got, err := DeserializeScoredTree(out)
	if err != nil {
		t.Fatalf("DeserializeScoredTree: %v", err)
	}
	if got.Score != st.Score {
		t.Fatalf("Score = %+v, want %+v", got.Score, st.Score)
	}
}

// TestClassifierRoundTrip is the end-to-end save/load scenario: build a
// classifier, serialize it, reload it, and check it behaves identically.
// Several independent assertions make testify's require more readable here
// than a chain of bare t.Fatalf calls.
func TestClassifierRoundTrip(t *testing.T) {
	classMap := map[data.Class]string{0: "low", 1: "high"}
	trees := map[data.Class]tree.ScoredTree{
		0: {Tree: fixedTreeWithRealOp(), Score: score.Score{Objective: score.Accuracy, Class: 0, Value: 0.6, Threshold: score.Threshold{Value: 0}}},
		1: {Tree: fixedTreeWithRealOp(), Score: score.Score{Objective: score.Accuracy, Class: 1, Value: 0.9, Threshold: score.Threshold{Value: 0}}},
	}
	clf, err := forest.NewClassifier(classMap, trees)
	require.NoError(t, err)

	out := roundTripBytes(t, func(s *Serializator) {
		SerializeClassifier(s, clf)
	})
	got, err := DeserializeClassifier(out)
	require.NoError(t, err)
	require.Len(t, got.Trees, len(clf.Trees))

	view := sampleView(6)
	wantLabels := clf.Classify(view)
	gotLabels := got.Classify(view)
	require.Equal(t, wantLabels, gotLabels)
}

func sampleView(n int) *data.DataView {
	points := make([]data.Point, n)
	for i := 0; i < n; i++ {
		points[i] = data.Point{
			Input:   [][]float32{{float32(i), float32(i % 3)}},
			Outcome: data.Outcome{Class: data.Class(i % 2), Reward: 1, Penalty: 1},
		}
	}
	return data.IntoView(points, map[data.Class]string{0: "low", 1: "high"})
}
