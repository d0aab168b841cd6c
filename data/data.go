// Package data holds the sample-level types (Class, Outcome, InputShape) and
// the columnar DataView used by every training component. A DataView is the
// transposed, cache-friendly representation built once from a DataSet and
// then treated as read-only for the rest of a training session.
package data

import (
	"github.com/philipluk/primeclue/rng"
)

// Class is a small non-negative integer class identity.
type Class uint16

// Outcome is a sample's true class plus the reward/penalty coefficients used
// by the Cost objective.
type Outcome struct {
	Class   Class
	Reward  float32
	Penalty float32
}

// Cost returns the contribution of guessing guess for class on this outcome:
// reward if guess is true and the outcome's class matches, penalty if guess
// is true and it doesn't, zero if guess is false.
func (o Outcome) Cost(guess bool, class Class) float32 {
	if !guess {
		return 0
	}
	if class == o.Class {
		return o.Reward
	}
	return o.Penalty
}

// InputShape is the (rows, columns) shape every sample in a dataset shares.
type InputShape struct {
	Rows    int
	Columns int
}

// RandomCell picks a uniformly random (row, col) coordinate within shape,
// rejecting columns named in forbiddenCols. Rows are never forbidden.
func (s InputShape) RandomCell(forbiddenCols []int) (row, col int) {
	r := rng.Get()
	for {
		c := r.Intn(s.Columns)
		if !contains(forbiddenCols, c) {
			return r.Intn(s.Rows), c
		}
	}
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Point is one labeled sample: a (Rows x Columns) input matrix plus its
// Outcome.
type Point struct {
	Input   [][]float32 // Input[row][col]
	Outcome Outcome
}

// DataView is the columnar, read-only transpose of a dataset used during
// training and inference. Cells[row][col] holds one contiguous length-N
// float32 vector: the value of that coordinate across every sample, in
// sample order. Every tree leaf reads exactly one such vector and every
// operator is a linear sweep over it.
type DataView struct {
	Shape      InputShape
	Cells      [][][]float32 // Cells[row][col][sample]
	Outcomes   []Outcome
	ClassCount map[Class]int
	ClassMap   map[Class]string
}

// N returns the sample count of the view.
func (v *DataView) N() int {
	return len(v.Outcomes)
}

// IntoView transposes a DataSet into a DataView. An empty dataset produces
// an empty, zero-shape view rather than an error: callers that need "must be
// non-empty" enforced surface that themselves (TrainingGroup's constructor
// does, per its own validation contract) and diagnostic/test code is free to
// build and inspect an empty view without special-casing it.
func IntoView(points []Point, classMap map[Class]string) *DataView {
	view := &DataView{ClassMap: classMap, ClassCount: map[Class]int{}}
	if len(points) == 0 {
		return view
	}

	shape := pointShape(points[0])
	view.Shape = shape
	cells := make([][][]float32, shape.Rows)
	for r := 0; r < shape.Rows; r++ {
		cells[r] = make([][]float32, shape.Columns)
		for c := 0; c < shape.Columns; c++ {
			col := make([]float32, len(points))
			for i, p := range points {
				col[i] = p.Input[r][c]
			}
			cells[r][c] = col
		}
	}
	view.Cells = cells

	outcomes := make([]Outcome, len(points))
	for i, p := range points {
		outcomes[i] = p.Outcome
		view.ClassCount[p.Outcome.Class]++
	}
	view.Outcomes = outcomes
	return view
}

func pointShape(p Point) InputShape {
	rows := len(p.Input)
	cols := 0
	if rows > 0 {
		cols = len(p.Input[0])
	}
	return InputShape{Rows: rows, Columns: cols}
}

// DataSet is a mutable collection of Points sharing a class dictionary; it is
// the caller-side staging area consumed by IntoView and the splitting
// helpers. The core never constructs a DataSet itself (ingestion is out of
// scope) but the splitting helpers are kept here because they operate purely
// on DataView/Point shapes that the core depends on.
type DataSet struct {
	Points  []Point
	Classes map[Class]string
}

// NewDataSet builds an empty DataSet sharing the given class dictionary.
func NewDataSet(classes map[Class]string) *DataSet {
	return &DataSet{Classes: classes}
}

// Shuffle returns a new DataSet with the same points in a random order,
// drawn from the process-wide RNG.
func (d *DataSet) Shuffle() *DataSet {
	shuffled := make([]Point, len(d.Points))
	copy(shuffled, d.Points)
	r := rng.Get()
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &DataSet{Points: shuffled, Classes: d.Classes}
}

// Split3 divides the dataset into three views by slicing at the 2/3 and 1/2
// boundaries, with no shuffling and no stratification guarantee: call
// Shuffle first if an unbiased split is wanted.
func (d *DataSet) Split3() (training, verification, testing *DataView) {
	n := len(d.Points)
	testStart := n * 2 / 3
	rest, test := d.Points[:testStart], d.Points[testStart:]
	verifyStart := len(rest) / 2
	train, verify := rest[:verifyStart], rest[verifyStart:]

	return IntoView(train, d.Classes), IntoView(verify, d.Classes), IntoView(test, d.Classes)
}

// SplitWithTestMarker routes every point matching marker into the test view;
// everything else is assigned to training or verification by an independent
// fair coin flip per point.
func SplitWithTestMarker(points []Point, classes map[Class]string, marker func(Point) bool) (training, verification, testing *DataView) {
	var trainPts, verifyPts, testPts []Point
	r := rng.Get()
	for _, p := range points {
		switch {
		case marker(p):
			testPts = append(testPts, p)
		case r.Float64() < 0.5:
			trainPts = append(trainPts, p)
		default:
			verifyPts = append(verifyPts, p)
		}
	}
	return IntoView(trainPts, classes), IntoView(verifyPts, classes), IntoView(testPts, classes)
}
