package tree

import (
	"testing"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/function"
	"github.com/philipluk/primeclue/node"
	"github.com/philipluk/primeclue/score"
)

func shape() data.InputShape {
	return data.InputShape{Rows: 1, Columns: 3}
}

func buildFixedTree() *Tree {
	left := node.NewWeighted(&node.DataValueNode{Row: 0, Col: 0})
	right := node.NewWeighted(&node.DataValueNode{Row: 0, Col: 1})
	op, _ := function.LookupBinary("add")
	root := node.NewWeighted(&node.BinaryNode{Op: op, Left: *left, Right: *right})
	return New(root, shape())
}

func sampleView(n int) *data.DataView {
	cells := make([][][]float32, 1)
	cells[0] = make([][]float32, 3)
	for c := 0; c < 3; c++ {
		col := make([]float32, n)
		for i := range col {
			col[i] = float32(i + c)
		}
		cells[0][c] = col
	}
	outcomes := make([]data.Outcome, n)
	for i := range outcomes {
		class := data.Class(0)
		if i%2 == 0 {
			class = 1
		}
		outcomes[i] = data.Outcome{Class: class, Reward: 1, Penalty: 1}
	}
	return &data.DataView{Shape: shape(), Cells: cells, Outcomes: outcomes}
}

func TestExecuteLengthMatchesViewSize(t *testing.T) {
	tr := buildFixedTree()
	out := tr.Execute(sampleView(12).Cells)
	if len(out) != 12 {
		t.Fatalf("Execute returned %d values, want 12", len(out))
	}
}

func TestNodeCountTracksStructure(t *testing.T) {
	tr := buildFixedTree()
	if tr.NodeCount != 3 {
		t.Fatalf("NodeCount = %d, want 3", tr.NodeCount)
	}
}

func TestValidRejectsNonFiniteAndConstant(t *testing.T) {
	cases := []struct {
		name string
		out  []float32
		want bool
	}{
		{"has-nan", []float32{1, 2, 3, float32(nan())}, false},
		{"has-inf", []float32{inf(), 1, 2}, false},
		{"constant", []float32{4, 4, 4.00001}, false},
		{"varies", []float32{-1, 2, 3}, true},
	}
	for _, c := range cases {
		if got := Valid(c.out); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestExecuteForScoreSkipsInvalidOutput(t *testing.T) {
	zero := node.NewWeighted(&node.ConstantNode{Name: "0", Value: 0})
	tr := New(zero, shape())
	view := sampleView(5)
	_, ok := ExecuteForScore(tr, view)
	if ok {
		t.Fatalf("expected constant-output tree to be rejected as invalid")
	}
}

func TestExecuteForScoreProducesPairs(t *testing.T) {
	tr := buildFixedTree()
	view := sampleView(10)
	pairs, ok := ExecuteForScore(tr, view)
	if !ok {
		t.Fatalf("expected valid tree output")
	}
	if len(pairs) != 10 {
		t.Fatalf("got %d pairs, want 10", len(pairs))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := buildFixedTree()
	clone := tr.Clone()
	leftLeaf := clone.Root.N.(*node.BinaryNode).Left.N.(*node.DataValueNode)
	leftLeaf.Col = 2
	orig := tr.Root.N.(*node.BinaryNode).Left.N.(*node.DataValueNode)
	if orig.Col == 2 {
		t.Fatalf("cloning did not produce an independent tree")
	}
}

func TestScoredTreeOrderingPrefersHigherScore(t *testing.T) {
	lo := ScoredTree{Tree: buildFixedTree(), Score: score.Score{Objective: score.AUC, Value: 0.5}}
	hi := ScoredTree{Tree: buildFixedTree(), Score: score.Score{Objective: score.AUC, Value: 0.9}}
	if !lo.Less(hi) {
		t.Fatalf("expected lower-scored tree to compare less")
	}
	if hi.Less(lo) {
		t.Fatalf("expected higher-scored tree not to compare less")
	}
}

func TestScoredTreeOrderingParsimonyOnTie(t *testing.T) {
	small := buildFixedTree()
	bigRoot := node.NewWeighted(&node.UnaryNode{Op: mustUnary("abs"), Child: *small.Root})
	big := New(bigRoot, shape())

	s := score.Score{Objective: score.AUC, Value: 0.7}
	smallScored := ScoredTree{Tree: small, Score: s}
	bigScored := ScoredTree{Tree: big, Score: s}
	if !bigScored.Less(smallScored) {
		t.Fatalf("expected the larger tree to compare less (smaller node_count wins ties)")
	}
}

func mustUnary(name string) function.Unary {
	op, ok := function.LookupUnary(name)
	if !ok {
		panic("missing unary: " + name)
	}
	return op
}

func nan() float64 { return 0 / zero() }
func inf() float32 { return float32(1) / float32(zero()) }
func zero() float64 { return 0 }
