package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/davecheney/profile"
	flag "github.com/docker/docker/pkg/mflag"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/forest"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/serialize"
)

var (
	dataFile     = flag.String([]string{"d", "-data"}, "", "CSV training data (label column first)")
	modelFile    = flag.String([]string{"m", "-model"}, "model.ssd", "path to save or load a classifier")
	objectiveOpt = flag.String([]string{"o", "-objective"}, "accuracy", "training objective: auc, accuracy or cost")
	groupSize    = flag.Int([]string{"g", "-group-size"}, 10, "per-class group count")
	generations  = flag.Int([]string{"n", "-generations"}, 50, "number of generations to run")
	workers      = flag.Int([]string{"w", "-workers"}, 64, "worker pool size")
	runProfile   = flag.Bool([]string{"-profile"}, false, "write a pprof CPU profile of the training run")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *dataFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of primeclue:\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *runProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	objective, err := parseObjective(*objectiveOpt)
	if err != nil {
		klog.Fatalf("%+v", err)
	}

	dataset, err := loadCSV(*dataFile)
	if err != nil {
		klog.Fatalf("%+v", err)
	}

	// an existing model file means score-only: load it and report how it
	// does against the whole dataset rather than training a new one.
	if _, err := os.Stat(*modelFile); err == nil {
		classifier, err := loadClassifier(*modelFile)
		if err != nil {
			klog.Fatalf("%+v", errors.Wrapf(err, "loading classifier from %s", *modelFile))
		}
		view := data.IntoView(dataset.Points, dataset.Classes)
		result := classifier.Score(view)
		fmt.Fprintf(os.Stderr, "%s: auc=%.4f accuracy=%.4f cost=%.4f predicted=%d/%d\n",
			*modelFile, result.AUC, result.Accuracy, result.Cost, result.PredictedCount, view.N())
		return
	}

	training, verification, testing := dataset.Shuffle().Split3()

	runtime.GOMAXPROCS(runtime.NumCPU())

	group, err := forest.NewTrainingGroup(training, verification, objective, *groupSize, 0, *workers)
	if err != nil {
		klog.Fatalf("%+v", errors.Wrap(err, "building training group"))
	}

	ctx := context.Background()
	for i := 0; i < *generations; i++ {
		if err := group.NextGeneration(ctx); err != nil {
			klog.Fatalf("%+v", errors.Wrapf(err, "generation %d", i+1))
		}
		stats := group.Stats()
		klog.V(1).Infof("generation %d: score=%.4f nodes=%d", stats.Generation, stats.Score, stats.NodeCount)
	}

	classifier, err := group.Classifier()
	if err != nil {
		klog.Fatalf("%+v", errors.Wrap(err, "snapshotting classifier"))
	}

	if testing.N() > 0 {
		result := classifier.Score(testing)
		fmt.Fprintf(os.Stderr, "test set: auc=%.4f accuracy=%.4f cost=%.4f predicted=%d/%d\n",
			result.AUC, result.Accuracy, result.Cost, result.PredictedCount, testing.N())
	}

	if err := saveClassifier(classifier, *modelFile); err != nil {
		klog.Fatalf("%+v", errors.Wrap(err, "saving classifier"))
	}
}

func parseObjective(v string) (score.Objective, error) {
	switch v {
	case "auc":
		return score.AUC, nil
	case "accuracy":
		return score.Accuracy, nil
	case "cost":
		return score.Cost, nil
	default:
		return 0, fmt.Errorf("unknown objective %q, want auc, accuracy or cost", v)
	}
}

func saveClassifier(c *forest.Classifier, path string) error {
	s := serialize.NewSerializator()
	serialize.SerializeClassifier(s, c)
	return os.WriteFile(path, s.ToBytes(), 0o644)
}

func loadClassifier(path string) (*forest.Classifier, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := serialize.FromBytes(bytes)
	if err != nil {
		return nil, err
	}
	return serialize.DeserializeClassifier(s)
}
