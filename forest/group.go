package forest

import (
	"sort"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/rng"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

// GroupID identifies a ClassGroup within a ClassTraining.
type GroupID uint64

// ClassGroup holds one sub-population of a class's evolving forest: a queue
// of freshly-bred, not-yet-scored trees and the surviving scored population.
type ClassGroup struct {
	ID     GroupID
	Fresh  []*tree.Tree
	Scored []tree.ScoredTree
}

// seedGroup builds a ClassGroup by cloning a freshly constructed seed tree
// size times, applying one weight perturbation and one structural mutation
// to each clone.
func seedGroup(id GroupID, shape data.InputShape, forbiddenCols []int, size int) *ClassGroup {
	seed := tree.NewRandom(shape, 3, forbiddenCols, 0.5, 0.6)
	fresh := make([]*tree.Tree, size)
	for i := range fresh {
		clone := seed.Clone()
		clone.ChangeWeights()
		clone.MutateStructure(forbiddenCols)
		fresh[i] = clone
	}
	return &ClassGroup{ID: id, Fresh: fresh}
}

// groupFromTree seeds a new group from an already-chosen tree: the tree
// itself becomes the first clone's starting point, mirroring the same
// clone/perturb/mutate construction seedGroup uses for a freshly built seed.
func groupFromTree(id GroupID, seed *tree.Tree, forbiddenCols []int, size int) *ClassGroup {
	fresh := make([]*tree.Tree, size)
	for i := range fresh {
		clone := seed.Clone()
		clone.ChangeWeights()
		clone.MutateStructure(forbiddenCols)
		fresh[i] = clone
	}
	return &ClassGroup{ID: id, Fresh: fresh}
}

// totalScore sums Score.Value across every scored tree, the denominator
// randomParent needs for score-proportional selection.
func (g *ClassGroup) totalScore() float32 {
	var total float32
	for _, s := range g.Scored {
		total += s.Score.Value
	}
	return total
}

// randomParent picks a scored tree's Tree with probability proportional to
// its score: draw a threshold uniformly in [0, totalScore) and return the
// first tree whose running cumulative score reaches it. Returns nil if
// Scored is empty or no tree's cumulative score reaches the threshold.
func (g *ClassGroup) randomParent(totalScore float32) *tree.Tree {
	if len(g.Scored) == 0 {
		return nil
	}
	threshold := totalScore * float32(rng.Get().Float64())
	var cum float32
	for _, s := range g.Scored {
		cum += s.Score.Value
		if cum >= threshold {
			return s.Tree
		}
	}
	return nil
}

// bestScored returns the group's highest-ranked scored tree under the
// standard ScoredTree order. Scored must be non-empty.
func (g *ClassGroup) bestScored() tree.ScoredTree {
	best := g.Scored[0]
	for _, s := range g.Scored[1:] {
		if s.Greater(best) {
			best = s
		}
	}
	return best
}

// breed clones the group's best scored tree, structurally mutates and
// weight-perturbs it, and appends the clone to Fresh, repeating until Fresh
// holds at least size trees.
func (g *ClassGroup) breed(forbiddenCols []int, size int) {
	if len(g.Scored) == 0 {
		return
	}
	for len(g.Fresh) < size {
		parent := g.bestScored().Tree
		clone := parent.Clone()
		clone.MutateStructure(forbiddenCols)
		clone.ChangeWeights()
		g.Fresh = append(g.Fresh, clone)
	}
}

// scoreFresh evaluates every tree in Fresh against training, discarding
// trees whose output fails the validity predicate, moves the rest into
// Scored, and clears Fresh.
func (g *ClassGroup) scoreFresh(class data.Class, objective score.Objective, training *data.DataView) {
	for _, t := range g.Fresh {
		pairs, ok := tree.ExecuteForScore(t, training)
		if !ok {
			continue
		}
		s := score.CalcScore(pairs, class, objective)
		g.Scored = append(g.Scored, tree.ScoredTree{Tree: t, Score: s})
	}
	g.Fresh = nil
}

// prune sorts Scored descending by ScoredTree order and truncates to size.
func (g *ClassGroup) prune(size int) {
	sort.Slice(g.Scored, func(i, j int) bool {
		return g.Scored[i].Greater(g.Scored[j])
	})
	if len(g.Scored) > size {
		g.Scored = g.Scored[:size]
	}
}

// totalNodeCount sums NodeCount across every tree currently held by the
// group (both fresh and scored).
func (g *ClassGroup) totalNodeCount() int {
	total := 0
	for _, t := range g.Fresh {
		total += t.NodeCount
	}
	for _, s := range g.Scored {
		total += s.Tree.NodeCount
	}
	return total
}
