// Package tree wraps a weighted expression node into the unit the
// evolutionary loop actually breeds: a Tree that remembers the input shape
// it was built for and its live node count, plus ScoredTree pairing a Tree
// with the Score it earned against some view.
package tree

import (
	"math"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/node"
	"github.com/philipluk/primeclue/rng"
	"github.com/philipluk/primeclue/score"
)

// Tree is a weighted expression tree plus the shape it was constructed for.
type Tree struct {
	Root      *node.Weighted
	Shape     data.InputShape
	NodeCount int
}

// New wraps root, snapshotting its current node count.
func New(root *node.Weighted, shape data.InputShape) *Tree {
	return &Tree{Root: root, Shape: shape, NodeCount: root.NodeCount()}
}

// NewRandom builds a randomly constructed Tree for shape.
func NewRandom(shape data.InputShape, maxDepth int, forbiddenCols []int, branchProb, dataProb float64) *Tree {
	root := node.NewRandom(shape, 1, maxDepth, forbiddenCols, branchProb, dataProb)
	return New(root, shape)
}

// Clone deep-copies t.
func (t *Tree) Clone() *Tree {
	return &Tree{Root: t.Root.Clone(), Shape: t.Shape, NodeCount: t.NodeCount}
}

// MutateStructure picks a uniformly random node and re-rolls its
// operator/leaf identity in place. Structural mutation never changes arity
// so NodeCount cannot change, but it is recomputed here anyway to keep the
// invariant enforced at its one call site rather than trusted implicitly.
func (t *Tree) MutateStructure(forbiddenCols []int) {
	nodes := node.Flatten(t.Root)
	target := nodes[rng.Get().Intn(len(nodes))]
	node.Mutate(target, t.Shape, forbiddenCols)
	t.NodeCount = t.Root.NodeCount()
}

// ChangeWeights draws K ~ Uniform(0, sqrt(NodeCount)) nodes and multiplies
// each one's weight by Uniform(0, 2).
func (t *Tree) ChangeWeights() {
	nodes := node.Flatten(t.Root)
	r := rng.Get()
	k := int(r.Float64() * math.Sqrt(float64(t.NodeCount)))
	for i := 0; i < k; i++ {
		target := nodes[r.Intn(len(nodes))]
		target.ChangeWeight(2)
	}
}

// Execute evaluates the tree over cells.
func (t *Tree) Execute(cells [][][]float32) []float32 {
	return t.Root.Execute(cells)
}

// Valid reports whether out is a usable score-producing tree output: every
// element finite, and at least one element differs from element 0 by more
// than 1e-3.
func Valid(out []float32) bool {
	if len(out) == 0 {
		return false
	}
	varies := false
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
		if math.Abs(float64(v-out[0])) > 1e-3 {
			varies = true
		}
	}
	return varies
}

// ExecuteForScore evaluates t against view and, if the output is valid,
// returns score.Pairs ready for score.CalcScore.
func ExecuteForScore(t *Tree, view *data.DataView) ([]score.Pair, bool) {
	out := t.Execute(view.Cells)
	if !Valid(out) {
		return nil, false
	}
	pairs := make([]score.Pair, len(out))
	for i, v := range out {
		pairs[i] = score.Pair{Guess: v, Outcome: view.Outcomes[i]}
	}
	return pairs, true
}

// ScoredTree pairs a Tree with the Score it earned. Ordering: higher score
// wins; on equal score, smaller NodeCount wins (parsimony pressure).
type ScoredTree struct {
	Tree  *Tree
	Score score.Score
}

// Less reports whether s orders strictly before other.
func (s ScoredTree) Less(other ScoredTree) bool {
	cmp, ok := s.Score.Compare(other.Score)
	if !ok {
		return false
	}
	if cmp != 0 {
		return cmp < 0
	}
	return s.Tree.NodeCount > other.Tree.NodeCount
}

// Greater reports whether s orders strictly after other.
func (s ScoredTree) Greater(other ScoredTree) bool {
	return other.Less(s)
}

// Clone deep-copies the scored tree.
func (s ScoredTree) Clone() ScoredTree {
	return ScoredTree{Tree: s.Tree.Clone(), Score: s.Score}
}
