package forest

import (
	"sort"

	"github.com/philipluk/primeclue"
	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

var (
	errEmptyClassMap     = primeclue.Errorf("classifier requires a non-empty class map")
	errTreeCountMismatch = primeclue.Errorf("classifier requires exactly one tree per class")
)

func errMissingClassTree(class data.Class) error {
	return primeclue.Errorf("classifier is missing a tree for class %d", class)
}

// Classifier composes one ScoredTree per class into a multi-class labeler.
// Tree count always equals the class count its ClassMap names.
type Classifier struct {
	ClassMap map[data.Class]string
	Trees    map[data.Class]tree.ScoredTree
}

func newClassifier(classMap map[data.Class]string, trees map[data.Class]tree.ScoredTree) *Classifier {
	return &Classifier{ClassMap: classMap, Trees: trees}
}

// NewClassifier builds a Classifier directly from a class map and a
// per-class ScoredTree, validating that every class in classMap has a tree
// and vice versa.
func NewClassifier(classMap map[data.Class]string, trees map[data.Class]tree.ScoredTree) (*Classifier, error) {
	if len(classMap) == 0 {
		return nil, errEmptyClassMap
	}
	if len(trees) != len(classMap) {
		return nil, errTreeCountMismatch
	}
	for class := range classMap {
		if _, ok := trees[class]; !ok {
			return nil, errMissingClassTree(class)
		}
	}
	return newClassifier(classMap, trees), nil
}

// ascendingClasses returns the classifier's classes sorted ascending by
// their tree's ScoredTree order: weakest tree first.
func (c *Classifier) ascendingClasses() []data.Class {
	classes := make([]data.Class, 0, len(c.Trees))
	for class := range c.Trees {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return c.Trees[classes[i]].Less(c.Trees[classes[j]])
	})
	return classes
}

// Classify labels every sample in view: trees are evaluated ascending by
// rank (weakest first), and any sample whose thresholded guess is true has
// its label overwritten with that tree's class label, so the strongest
// tree voting "yes" wins.
func (c *Classifier) Classify(view *data.DataView) []string {
	labels := make([]string, view.N())
	for _, class := range c.ascendingClasses() {
		scored := c.Trees[class]
		out := scored.Tree.Execute(view.Cells)
		for i, v := range out {
			guess, ok := scored.Score.Threshold.Bool(v)
			if ok && guess {
				labels[i] = c.ClassMap[class]
			}
		}
	}
	return labels
}

// Result summarizes a Classifier's performance against a labeled view.
type Result struct {
	AUC            float64
	Accuracy       float64
	Cost           float64
	LabelCounts    map[string]int
	PredictedCount int
}

// Score runs Classify against view and computes AUC/accuracy/cost plus a
// label-frequency breakdown. AUC is the mean, over the trees whose output on
// view is valid, of each tree's AUC for its own class on view.
func (c *Classifier) Score(view *data.DataView) Result {
	var aucSum float64
	aucCount := 0
	for class, scored := range c.Trees {
		pairs, ok := tree.ExecuteForScore(scored.Tree, view)
		if !ok {
			continue
		}
		score.SortPairs(pairs)
		aucSum += float64(score.CalculateAUC(pairs, class))
		aucCount++
	}
	result := Result{LabelCounts: map[string]int{}}
	if aucCount > 0 {
		result.AUC = aucSum / float64(aucCount)
	}

	labels := c.Classify(view)
	var correct, predicted int
	for i, label := range labels {
		if label == "" {
			continue
		}
		predicted++
		result.LabelCounts[label]++
		trueLabel := c.ClassMap[view.Outcomes[i].Class]
		if label == trueLabel {
			correct++
		}
	}
	result.PredictedCount = predicted
	if predicted > 0 {
		result.Accuracy = float64(correct) / float64(predicted)
	}

	var cost float64
	for i, label := range labels {
		if label == "" {
			continue
		}
		outcome := view.Outcomes[i]
		if label == c.ClassMap[outcome.Class] {
			cost += float64(outcome.Reward)
		} else {
			cost += float64(outcome.Penalty)
		}
	}
	result.Cost = cost

	return result
}

// AverageScore returns the arithmetic mean of every per-class tree's score
// value.
func (c *Classifier) AverageScore() float64 {
	if len(c.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, scored := range c.Trees {
		sum += float64(scored.Score.Value)
	}
	return sum / float64(len(c.Trees))
}
