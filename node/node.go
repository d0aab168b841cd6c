// Package node implements the expression-tree node model: weighted leaves
// and branches built from the function registry, random construction,
// structural mutation, weight perturbation, uniform node selection and
// columnar evaluation.
package node

import (
	"math"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/function"
	"github.com/philipluk/primeclue/rng"
)

// goldenRatio bounds the uniform range new weights are drawn from.
const goldenRatio = 1.618

// Weight scales a node's evaluated output before it is returned to the
// parent.
type Weight float32

// Generate draws a fresh weight ~ Uniform(-phi, phi).
func Generate() Weight {
	r := rng.Get()
	return Weight(-goldenRatio + r.Float64()*2*goldenRatio)
}

// Mutate multiplies the weight by Uniform(0, rate), leaving it unchanged if
// the product is NaN.
func (w *Weight) Mutate(rate float64) {
	next := float32(*w) * float32(rng.Get().Float64()*rate)
	if !math.IsNaN(float64(next)) {
		*w = Weight(next)
	}
}

// Kind is the sum type every concrete node variant implements: DataValue,
// StdDev, MathConstant, Unary, Binary.
type Kind interface {
	// evaluate returns this node's raw (pre-weight) output over cells.
	evaluate(cells [][][]float32) []float32
	// nodeCount returns the count of nodes reachable from here, including
	// this one.
	nodeCount() int
	// mutate re-rolls this node's operator/leaf identity in place, keeping
	// the same arity (and, for branches, the same children).
	mutate(shape data.InputShape, forbiddenCols []int)
	clone() Kind
}

// Weighted pairs a Kind with the Weight scaling its output; it is the unit
// every tree position is built from.
type Weighted struct {
	W Weight
	N Kind
}

// NewWeighted wraps n with a freshly generated Weight, mirroring every
// construction path in this package.
func NewWeighted(n Kind) *Weighted {
	return &Weighted{W: Generate(), N: n}
}

// Execute evaluates the subtree rooted at w and scales the result by W.
func (w *Weighted) Execute(cells [][][]float32) []float32 {
	out := w.N.evaluate(cells)
	wv := float32(w.W)
	for i := range out {
		out[i] *= wv
	}
	return out
}

// NodeCount returns the number of nodes in this subtree, including the root.
func (w *Weighted) NodeCount() int {
	return w.N.nodeCount()
}

// ChangeWeight multiplies W by Uniform(0, rate); a NaN product is discarded.
func (w *Weighted) ChangeWeight(rate float64) {
	w.W.Mutate(rate)
}

// Clone deep-copies the subtree: no node is ever shared between two trees.
func (w *Weighted) Clone() *Weighted {
	return &Weighted{W: w.W, N: w.N.clone()}
}

// DataValueNode is a leaf reading a raw column vector.
type DataValueNode struct {
	Row, Col int
}

// StdDevNode is a leaf reading the z-scored column vector.
type StdDevNode struct {
	Row, Col int
}

// ConstantNode broadcasts a named math constant.
type ConstantNode struct {
	Name  string
	Value float32
}

// UnaryNode applies a named unary operator to one child.
type UnaryNode struct {
	Op    function.Unary
	Child Weighted
}

// BinaryNode applies a named binary operator to two children.
type BinaryNode struct {
	Op          function.Binary
	Left, Right Weighted
}

func (n *DataValueNode) evaluate(cells [][][]float32) []float32 {
	src := cells[n.Row][n.Col]
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

func (n *DataValueNode) nodeCount() int { return 1 }

func (n *DataValueNode) mutate(shape data.InputShape, forbiddenCols []int) {
	n.Row, n.Col = shape.RandomCell(forbiddenCols)
}

func (n *DataValueNode) clone() Kind {
	c := *n
	return &c
}

func (n *StdDevNode) evaluate(cells [][][]float32) []float32 {
	return stdDev(cells[n.Row][n.Col])
}

func (n *StdDevNode) nodeCount() int { return 1 }

func (n *StdDevNode) mutate(shape data.InputShape, forbiddenCols []int) {
	n.Row, n.Col = shape.RandomCell(forbiddenCols)
}

func (n *StdDevNode) clone() Kind {
	c := *n
	return &c
}

func stdDev(values []float32) []float32 {
	var sum float32
	for _, v := range values {
		sum += v
	}
	avg := sum / float32(len(values))

	var sq float32
	for _, v := range values {
		d := v - avg
		sq += d * d
	}
	variance := sq / float32(len(values)-1)
	sd := float32(math.Sqrt(float64(variance)))

	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = (v - avg) / sd
	}
	return out
}

func (n *ConstantNode) evaluate(cells [][][]float32) []float32 {
	n0 := 0
	if len(cells) > 0 && len(cells[0]) > 0 {
		n0 = len(cells[0][0])
	}
	out := make([]float32, n0)
	for i := range out {
		out[i] = n.Value
	}
	return out
}

func (n *ConstantNode) nodeCount() int { return 1 }

func (n *ConstantNode) mutate(data.InputShape, []int) {
	c := function.Constants[rng.Get().Intn(len(function.Constants))]
	n.Name, n.Value = c.Name, c.Value
}

func (n *ConstantNode) clone() Kind {
	c := *n
	return &c
}

func (n *UnaryNode) evaluate(cells [][][]float32) []float32 {
	return n.Op.Fn(n.Child.Execute(cells))
}

func (n *UnaryNode) nodeCount() int { return 1 + n.Child.NodeCount() }

func (n *UnaryNode) mutate(data.InputShape, []int) {
	n.Op = function.Unaries[rng.Get().Intn(len(function.Unaries))]
}

func (n *UnaryNode) clone() Kind {
	return &UnaryNode{Op: n.Op, Child: *n.Child.Clone()}
}

func (n *BinaryNode) evaluate(cells [][][]float32) []float32 {
	return n.Op.Fn(n.Left.Execute(cells), n.Right.Execute(cells))
}

func (n *BinaryNode) nodeCount() int { return 1 + n.Left.NodeCount() + n.Right.NodeCount() }

func (n *BinaryNode) mutate(data.InputShape, []int) {
	n.Op = function.Binaries[rng.Get().Intn(len(function.Binaries))]
}

func (n *BinaryNode) clone() Kind {
	return &BinaryNode{Op: n.Op, Left: *n.Left.Clone(), Right: *n.Right.Clone()}
}

// NewRandom builds a randomly constructed tree for the given shape. depth is
// the depth of the node being built (the root is depth 1); maxDepth,
// forbiddenCols, branchProb and dataProb parameterize the shape of the
// random tree as described by the node-construction rules.
func NewRandom(shape data.InputShape, depth, maxDepth int, forbiddenCols []int, branchProb, dataProb float64) *Weighted {
	r := rng.Get()
	terminate := r.Float64() < float64(depth)/float64(maxDepth)
	if terminate {
		return newTerminatingNode(shape, forbiddenCols, dataProb)
	}
	return newFunctionNode(shape, depth, maxDepth, forbiddenCols, branchProb, dataProb)
}

func newFunctionNode(shape data.InputShape, depth, maxDepth int, forbiddenCols []int, branchProb, dataProb float64) *Weighted {
	r := rng.Get()
	next := depth + 1
	if r.Float64() < branchProb {
		left := NewRandom(shape, next, maxDepth, forbiddenCols, branchProb, dataProb)
		right := NewRandom(shape, next, maxDepth, forbiddenCols, branchProb, dataProb)
		op := function.Binaries[r.Intn(len(function.Binaries))]
		return NewWeighted(&BinaryNode{Op: op, Left: *left, Right: *right})
	}
	child := NewRandom(shape, next, maxDepth, forbiddenCols, branchProb, dataProb)
	op := function.Unaries[r.Intn(len(function.Unaries))]
	return NewWeighted(&UnaryNode{Op: op, Child: *child})
}

func newTerminatingNode(shape data.InputShape, forbiddenCols []int, dataProb float64) *Weighted {
	r := rng.Get()
	if r.Float64() < dataProb {
		return newDataValueNode(shape, forbiddenCols)
	}
	c := function.Constants[r.Intn(len(function.Constants))]
	return NewWeighted(&ConstantNode{Name: c.Name, Value: c.Value})
}

func newDataValueNode(shape data.InputShape, forbiddenCols []int) *Weighted {
	row, col := shape.RandomCell(forbiddenCols)
	r := rng.Get()
	if r.Float64() < 0.95 {
		return NewWeighted(&DataValueNode{Row: row, Col: col})
	}
	return NewWeighted(&StdDevNode{Row: row, Col: col})
}

// Mutate re-rolls the operator/leaf identity of n in place.
func Mutate(n *Weighted, shape data.InputShape, forbiddenCols []int) {
	n.N.mutate(shape, forbiddenCols)
}

// Flatten returns every node in the subtree rooted at root, in preorder:
// the root, then (for a binary node) the whole left subtree followed by the
// whole right subtree, with right subtrees held on an explicit deferred
// stack exactly as a recursive preorder walk would visit them. Index 0 is
// always the root. The returned pointers alias the live tree, so modifying
// *Weighted through them mutates the tree in place.
func Flatten(root *Weighted) []*Weighted {
	var queue []*Weighted
	result := make([]*Weighted, 0, root.NodeCount())
	next := root
	for next != nil {
		result = append(result, next)
		switch n := next.N.(type) {
		case *BinaryNode:
			queue = append(queue, &n.Right)
			next = &n.Left
		case *UnaryNode:
			next = &n.Child
		default:
			if len(queue) == 0 {
				next = nil
				continue
			}
			next = queue[len(queue)-1]
			queue = queue[:len(queue)-1]
		}
	}
	return result
}
