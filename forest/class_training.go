package forest

import (
	"sort"
	"sync"

	"k8s.io/klog/v2"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/rng"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

// defaultNodeLimit bounds the total live node count across every tree a
// ClassTraining holds, guarding against unbounded memory growth.
const defaultNodeLimit = 5_000_000

// ClassTraining runs the evolutionary loop for a single class: a pool of
// ClassGroups that are seeded, bred, scored, pruned and culled one
// generation at a time, tracking the best tree ever seen on verification
// data.
type ClassTraining struct {
	Class         data.Class
	Objective     score.Objective
	Size          int
	NodeLimit     int
	ForbiddenCols []int

	BestTree *tree.ScoredTree

	Groups map[GroupID]*ClassGroup
	nextID GroupID

	// wastedGenerations counts consecutive generations since BestTree last
	// improved; fillUp's random/mutate mix is supposed to lean more on
	// mutating existing groups as this grows, feeding wastedGenerationsChance.
	wastedGenerations int

	// verificationScores holds the most recent verification-data score for
	// each live group, populated by rankOnVerification and consumed by
	// updateBestTree within the same generation.
	verificationScores map[GroupID]score.Score
}

// NewClassTraining builds an empty trainer for class. NodeLimit of 0 selects
// the default node-count cap.
func NewClassTraining(class data.Class, objective score.Objective, size int, nodeLimit int, forbiddenCols []int) *ClassTraining {
	if nodeLimit <= 0 {
		nodeLimit = defaultNodeLimit
	}
	return &ClassTraining{
		Class:         class,
		Objective:     objective,
		Size:          size,
		NodeLimit:     nodeLimit,
		ForbiddenCols: forbiddenCols,
		Groups:        map[GroupID]*ClassGroup{},
	}
}

// NextGeneration runs one full generation: fill-up, breed/score/prune across
// groups in parallel, drop emptied groups, rank on verification, update the
// best-ever tree, cull to Size groups, and enforce the node limit.
func (c *ClassTraining) NextGeneration(shape data.InputShape, training, verification *data.DataView) {
	c.fillUp(shape)
	c.breedScorePrune(training)
	c.dropEmptyGroups()
	ranked := c.rankOnVerification(verification)
	c.updateBestTree(ranked, training)
	c.cullTo(ranked, c.Size)
	c.enforceNodeLimit()
}

// fillUp creates groups until there are 2*Size of them.
func (c *ClassTraining) fillUp(shape data.InputShape) {
	for len(c.Groups) < 2*c.Size {
		g := c.generateGroup(c.nextID, shape)
		c.Groups[g.ID] = g
		c.nextID++
		klog.V(2).Infof("class %d: seeded group %d", c.Class, g.ID)
	}
}

// wastedGenerationsChance computes the fresh-random-vs-mutate-existing split
// fillUp draws from, following the original formula exactly: (1 - 1/(wasted+1))
// clamped to at most 0.1, then clamped to at least 0.9. Since the first clamp
// always leaves a value no greater than 0.1, the second clamp always wins, so
// this is always 0.9 regardless of wasted - replicated faithfully rather than
// corrected to the wasted-generation-adaptive value the clamps were clearly
// meant to produce.
func wastedGenerationsChance(wasted int) float64 {
	v := 1.0 - 1.0/float64(wasted+1)
	if v > 0.1 {
		v = 0.1
	}
	if v < 0.9 {
		v = 0.9
	}
	return v
}

// generateGroup builds one new group: a coin flip at wastedGenerationsChance
// odds chooses between a freshly constructed random group and mutating an
// existing one's score-proportionally chosen tree. The mutate path retries
// the whole flip if it fails to produce a group (e.g. no groups scored yet).
func (c *ClassTraining) generateGroup(id GroupID, shape data.InputShape) *ClassGroup {
	chance := wastedGenerationsChance(c.wastedGenerations)
	for {
		if rng.Get().Float64() < chance {
			return seedGroup(id, shape, c.ForbiddenCols, c.Size)
		}
		if g := c.createMutatedGroup(id); g != nil {
			return g
		}
	}
}

// createMutatedGroup picks a uniformly random existing group, then within it
// a scored tree chosen with probability proportional to its score, clones
// and structurally mutates it once, and seeds a new group from that tree.
// Returns nil if there are no groups yet or the chosen group has nothing
// scored to choose from.
func (c *ClassTraining) createMutatedGroup(id GroupID) *ClassGroup {
	if len(c.Groups) == 0 {
		return nil
	}
	ids := make([]GroupID, 0, len(c.Groups))
	for gid := range c.Groups {
		ids = append(ids, gid)
	}
	g := c.Groups[ids[rng.Get().Intn(len(ids))]]
	parent := g.randomParent(g.totalScore())
	if parent == nil {
		return nil
	}
	clone := parent.Clone()
	clone.MutateStructure(c.ForbiddenCols)
	return groupFromTree(id, clone, c.ForbiddenCols, c.Size)
}

// breedScorePrune runs breed/score/prune independently across every group,
// in parallel: groups never read or write each other's state.
func (c *ClassTraining) breedScorePrune(training *data.DataView) {
	var wg sync.WaitGroup
	for _, g := range c.Groups {
		wg.Add(1)
		go func(g *ClassGroup) {
			defer wg.Done()
			g.breed(c.ForbiddenCols, c.Size)
			g.scoreFresh(c.Class, c.Objective, training)
			g.prune(c.Size)
		}(g)
	}
	wg.Wait()
}

func (c *ClassTraining) dropEmptyGroups() {
	for id, g := range c.Groups {
		if len(g.Scored) == 0 {
			delete(c.Groups, id)
		}
	}
}

// rankOnVerification re-scores every group's best tree against verification
// and returns the groups sorted descending by that score.
func (c *ClassTraining) rankOnVerification(verification *data.DataView) []*ClassGroup {
	type ranked struct {
		group *ClassGroup
		score score.Score
	}
	results := make([]ranked, 0, len(c.Groups))
	for _, g := range c.Groups {
		best := g.bestScored().Tree
		pairs, ok := tree.ExecuteForScore(best, verification)
		if !ok {
			results = append(results, ranked{group: g, score: score.Score{Objective: c.Objective, Class: c.Class}})
			continue
		}
		s := score.CalcScore(pairs, c.Class, c.Objective)
		results = append(results, ranked{group: g, score: s})
	}
	sort.Slice(results, func(i, j int) bool {
		cmp, ok := results[i].score.Compare(results[j].score)
		return ok && cmp > 0
	})
	groups := make([]*ClassGroup, len(results))
	for i, r := range results {
		groups[i] = r.group
	}
	c.verificationScores = make(map[GroupID]score.Score, len(results))
	for _, r := range results {
		c.verificationScores[r.group.ID] = r.score
	}
	return groups
}

// updateBestTree clones the top-ranked group's best tree and records a
// stabilized score averaging its training and verification values, if it
// exceeds the current best-ever.
func (c *ClassTraining) updateBestTree(ranked []*ClassGroup, training *data.DataView) {
	if len(ranked) == 0 {
		return
	}
	top := ranked[0]
	trainingBest := top.bestScored()
	verificationScore := c.verificationScores[top.ID]

	stabilized := trainingBest.Score
	stabilized.Value = (verificationScore.Value + trainingBest.Score.Value) / 2

	candidate := tree.ScoredTree{Tree: trainingBest.Tree.Clone(), Score: stabilized}
	if c.BestTree == nil || candidate.Greater(*c.BestTree) {
		c.BestTree = &candidate
		c.wastedGenerations = 0
		klog.V(1).Infof("class %d: new best tree, score=%.4f nodes=%d", c.Class, stabilized.Value, candidate.Tree.NodeCount)
	} else {
		c.wastedGenerations++
	}
}

// cullTo keeps only the top n groups from ranked (already sorted
// descending by verification score).
func (c *ClassTraining) cullTo(ranked []*ClassGroup, n int) {
	if len(ranked) <= n {
		return
	}
	keep := make(map[GroupID]*ClassGroup, n)
	for _, g := range ranked[:n] {
		keep[g.ID] = g
	}
	c.Groups = keep
}

// enforceNodeLimit drops the largest groups (by total node count) until the
// sum across all remaining groups fits within NodeLimit.
func (c *ClassTraining) enforceNodeLimit() {
	type counted struct {
		group *ClassGroup
		nodes int
	}
	counts := make([]counted, 0, len(c.Groups))
	total := 0
	for _, g := range c.Groups {
		n := g.totalNodeCount()
		counts = append(counts, counted{group: g, nodes: n})
		total += n
	}
	if total <= c.NodeLimit {
		return
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].nodes > counts[j].nodes })
	for _, cnt := range counts {
		if total <= c.NodeLimit {
			break
		}
		delete(c.Groups, cnt.group.ID)
		total -= cnt.nodes
		klog.V(2).Infof("class %d: evicted group %d to enforce node limit", c.Class, cnt.group.ID)
	}
}
