// Package forest implements the ambient multi-run training harness: the
// per-class evolutionary loop (ClassTraining over ClassGroups), the
// multi-class coordinator that drives them in parallel (TrainingGroup), and
// the inference-time composition of per-class trees (Classifier).
package forest

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/philipluk/primeclue"
	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

// defaultWorkers is the pool size used when the caller doesn't specify one,
// generous enough that every class trainer can usually run concurrently.
const defaultWorkers = 64

// TrainingGroup coordinates one ClassTraining per class, driving them
// through a generation at a time on a bounded worker pool.
type TrainingGroup struct {
	generation    int
	training      *data.DataView
	verification  *data.DataView
	objective     score.Objective
	classTrainers map[data.Class]*ClassTraining
	workers       int
}

// NewTrainingGroup validates training and verification, then builds one
// ClassTraining per class present in the training view (its ClassCount keys).
func NewTrainingGroup(training, verification *data.DataView, objective score.Objective, size, nodeLimit, workers int) (*TrainingGroup, error) {
	if training.N() == 0 || verification.N() == 0 {
		return nil, primeclue.Errorf("training group requires non-empty training and verification views")
	}
	if len(training.ClassCount) != len(verification.ClassCount) {
		return nil, primeclue.Errorf("training group requires matching class counts, got %d and %d",
			len(training.ClassCount), len(verification.ClassCount))
	}
	if training.Shape != verification.Shape {
		return nil, primeclue.Errorf("training group requires matching input shapes, got %+v and %+v",
			training.Shape, verification.Shape)
	}
	if workers < 1 {
		workers = defaultWorkers
	}

	trainers := make(map[data.Class]*ClassTraining, len(training.ClassCount))
	for class := range training.ClassCount {
		trainers[class] = NewClassTraining(class, objective, size, nodeLimit, nil)
	}

	return &TrainingGroup{
		training:      training,
		verification:  verification,
		objective:     objective,
		classTrainers: trainers,
		workers:       workers,
	}, nil
}

// NextGeneration advances every class trainer by one generation, running
// them concurrently on the worker pool. Class trainers themselves cannot
// fail; once ctx is cancelled no further class trainer is started and the
// context's error is returned to the caller.
func (g *TrainingGroup) NextGeneration(ctx context.Context) error {
	g.generation++
	shape := g.training.Shape

	eg, ctx := errgroup.WithContext(ctx)

	type job struct {
		class data.Class
		ct    *ClassTraining
	}
	in := make(chan job)

	nWorkers := g.workers
	if nWorkers > len(g.classTrainers) {
		nWorkers = len(g.classTrainers)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	for i := 0; i < nWorkers; i++ {
		eg.Go(func() error {
			for j := range in {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				j.ct.NextGeneration(shape, g.training, g.verification)
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(in)
		for class, ct := range g.classTrainers {
			select {
			case in <- job{class: class, ct: ct}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return errors.Wrapf(err, "generation %d", g.generation)
	}

	klog.V(1).Infof("generation %d complete", g.generation)
	return nil
}

// Stats is a point-in-time snapshot of training progress across classes.
type Stats struct {
	Generation int
	NodeCount  int
	Score      float64
}

// Stats sums best-tree node counts across classes and combines their best
// training scores: averaged for AUC/Accuracy, summed for Cost.
func (g *TrainingGroup) Stats() Stats {
	s := Stats{Generation: g.generation}
	var total float64
	n := 0
	for _, ct := range g.classTrainers {
		if ct.BestTree == nil {
			continue
		}
		s.NodeCount += ct.BestTree.Tree.NodeCount
		total += float64(ct.BestTree.Score.Value)
		n++
	}
	switch {
	case n == 0:
		s.Score = 0
	case g.objective == score.Cost:
		s.Score = total
	default:
		s.Score = total / float64(n)
	}
	return s
}

// Classifier snapshots the best-ever tree from every class trainer into a
// Classifier. Fails if any class has not yet produced a scored tree.
func (g *TrainingGroup) Classifier() (*Classifier, error) {
	scored := make(map[data.Class]tree.ScoredTree, len(g.classTrainers))
	for class, ct := range g.classTrainers {
		if ct.BestTree == nil {
			return nil, primeclue.Errorf("no classifier yet: class %d has no scored tree", class)
		}
		scored[class] = ct.BestTree.Clone()
	}
	return newClassifier(g.training.ClassMap, scored), nil
}
