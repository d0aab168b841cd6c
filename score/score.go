// Package score computes AUC, accuracy and cost objectives for a tree's
// output against labeled outcomes, and selects the decision threshold each
// objective uses, including the O(N) accuracy/cost threshold algorithms
// required to make per-generation scoring tractable.
package score

import (
	"math"
	"sort"

	"github.com/philipluk/primeclue/data"
)

// Objective selects both the score function and the threshold-selection
// algorithm.
type Objective int

const (
	Cost Objective = iota
	AUC
	Accuracy
)

func (o Objective) String() string {
	switch o {
	case Cost:
		return "Cost"
	case AUC:
		return "AUC"
	case Accuracy:
		return "Accuracy"
	default:
		return "Unknown"
	}
}

// Threshold is the cut-off a tree's continuous output is compared against to
// produce a boolean guess.
type Threshold struct {
	Value float32
}

// Bool turns a raw guess value into a thresholded prediction. Non-finite
// guesses produce no vote (ok=false).
func (t Threshold) Bool(v float32) (guess bool, ok bool) {
	if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
		return false, false
	}
	return v >= t.Value, true
}

// Score is a Tree's evaluation result: which objective produced it, which
// class it targets, the resulting value, and the threshold used to derive
// it. Two scores are only comparable if they share an Objective.
type Score struct {
	Objective Objective
	Class     data.Class
	Value     float32
	Threshold Threshold
}

// relativeTolerance is the ~0.1% band within which two scores of the same
// objective compare equal, stabilizing ranking against floating-point
// noise from independently re-evaluated trees.
const relativeTolerance = 0.001

// Compare orders two scores of the same objective: -1 if s < other, 0 if
// equal (within tolerance), 1 if s > other. ok is false if the scores have
// different objectives, in which case they are incomparable.
func (s Score) Compare(other Score) (cmp int, ok bool) {
	if s.Objective != other.Objective {
		return 0, false
	}
	if other.Value == 0 || s.Value == 0 {
		// The relative-tolerance formula below divides by other.Value,
		// which is undefined at zero; fall back to exact comparison.
		switch {
		case s.Value == other.Value:
			return 0, true
		case s.Value < other.Value:
			return -1, true
		default:
			return 1, true
		}
	}
	if math.Abs(float64(s.Value/other.Value-1)) > relativeTolerance {
		switch {
		case s.Value < other.Value:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, true
}

// Equal reports whether s and other compare equal under Compare.
func (s Score) Equal(other Score) bool {
	cmp, ok := s.Compare(other)
	return ok && cmp == 0
}

// Less reports whether s orders strictly before other under Compare.
func (s Score) Less(other Score) bool {
	cmp, ok := s.Compare(other)
	return ok && cmp < 0
}

// Pair is one tree output paired with the sample's true outcome.
type Pair struct {
	Guess   float32
	Outcome data.Outcome
}

// SortPairs sorts pairs ascending by guess value, with NaN guesses (which
// partial_cmp in the reference semantics treats as "greater") sorted to the
// end; infinities sort by value.
func SortPairs(pairs []Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i].Guess, pairs[j].Guess
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			return !math.IsNaN(float64(a)) && math.IsNaN(float64(b))
		}
		return a < b
	})
}

// CalcScore sorts outcomes by guess value, selects the objective's
// threshold, evaluates the objective's score function, and returns the
// resulting Score.
func CalcScore(pairs []Pair, class data.Class, objective Objective) Score {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	SortPairs(sorted)

	threshold := Threshold{}
	switch objective {
	case Cost:
		threshold = CostThreshold(sorted, class)
	case AUC:
		threshold = AUCThreshold(sorted, class)
	case Accuracy:
		threshold = AccuracyThreshold(sorted, class)
	}

	var value float32
	switch objective {
	case AUC:
		value = CalculateAUC(sorted, class)
	case Accuracy:
		value = CalculateAccuracy(threshold, sorted, class)
	case Cost:
		value = CalculateCost(threshold, sorted, class)
	}
	return Score{Objective: objective, Class: class, Value: value, Threshold: threshold}
}

// CalculateAUC computes the Mann-Whitney-U-derived AUC for class over pairs
// already sorted ascending by guess.
func CalculateAUC(pairs []Pair, class data.Class) float32 {
	var incorrectCount, correctCount, totalIncorrect int
	for _, p := range pairs {
		if p.Outcome.Class == class {
			correctCount++
			totalIncorrect += incorrectCount
		} else {
			incorrectCount++
		}
	}
	return float32(totalIncorrect) / float32(correctCount*incorrectCount)
}

// CalculateAccuracy returns the fraction of predictions with a valid
// (finite) guess that correctly predict class membership.
func CalculateAccuracy(threshold Threshold, pairs []Pair, class data.Class) float32 {
	var correct, total int
	for _, p := range pairs {
		guess, ok := threshold.Bool(p.Guess)
		if !ok {
			continue
		}
		total++
		if (p.Outcome.Class == class) == guess {
			correct++
		}
	}
	return float32(correct) / float32(total)
}

// CalculateCost sums each prediction's reward/penalty contribution under
// threshold.
func CalculateCost(threshold Threshold, pairs []Pair, class data.Class) float32 {
	var cost float32
	for _, p := range pairs {
		guess, ok := threshold.Bool(p.Guess)
		if !ok {
			continue
		}
		cost += p.Outcome.Cost(guess, class)
	}
	return cost
}

// AUCThreshold picks the cut that separates class from the rest in sorted
// order: the smallest output if class is the entire population, twice the
// absolute largest output if class is absent, otherwise the output
// immediately above the last non-class sample under the ranking.
func AUCThreshold(pairs []Pair, class data.Class) Threshold {
	noneClassCount := 0
	for _, p := range pairs {
		if p.Outcome.Class != class {
			noneClassCount++
		}
	}
	switch {
	case noneClassCount == 0:
		return Threshold{Value: pairs[0].Guess}
	case noneClassCount == len(pairs):
		last := pairs[len(pairs)-1].Guess
		return Threshold{Value: 2 * float32(math.Abs(float64(last)))}
	default:
		return Threshold{Value: pairs[noneClassCount].Guess}
	}
}

// CostThreshold finds, in O(N), the candidate cut index that maximizes total
// cost by combining a prefix of "everything before i predicts false"
// contributions with a suffix of "everything from i onward predicts true"
// contributions.
func CostThreshold(pairs []Pair, class data.Class) Threshold {
	n := len(pairs)
	falsePrefix := make([]float32, n)
	var falseCost float32
	for i, p := range pairs {
		falsePrefix[i] = falseCost
		falseCost += p.Outcome.Cost(false, class)
	}

	var trueCost float32
	bestIdx := 0
	bestScore := negInf()
	for i := n - 1; i >= 0; i-- {
		trueCost += pairs[i].Outcome.Cost(true, class)
		total := falsePrefix[i] + trueCost
		if total > bestScore {
			bestScore = total
			bestIdx = i
		}
	}
	return Threshold{Value: pairs[bestIdx].Guess}
}

// AccuracyThreshold finds, in O(N), the candidate cut index that maximizes
// total correct predictions by combining an incorrect-prefix count
// (non-class samples strictly before i) with a correct-suffix count
// (class samples from i onward).
func AccuracyThreshold(pairs []Pair, class data.Class) Threshold {
	n := len(pairs)
	incorrectPrefix := make([]int, n)
	incorrectCount := 0
	for i, p := range pairs {
		incorrectPrefix[i] = incorrectCount
		if p.Outcome.Class != class {
			incorrectCount++
		}
	}

	correctCount := 0
	bestIdx := 0
	bestScore := -1
	for i := n - 1; i >= 0; i-- {
		if pairs[i].Outcome.Class == class {
			correctCount++
		}
		total := incorrectPrefix[i] + correctCount
		if total > bestScore {
			bestScore = total
			bestIdx = i
		}
	}
	return Threshold{Value: pairs[bestIdx].Guess}
}

func negInf() float32 {
	return float32(math.Inf(-1))
}
