package forest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/score"
)

// syntheticPoints builds a small 3-class dataset with a 2-column shape where
// class is fully determined by the sign of the first column, so that a
// handful of generations reliably produces a usable classifier.
func syntheticPoints(n int) ([]data.Point, map[data.Class]string) {
	classMap := map[data.Class]string{0: "low", 1: "mid", 2: "high"}
	points := make([]data.Point, n)
	for i := 0; i < n; i++ {
		var class data.Class
		var a float32
		switch i % 3 {
		case 0:
			class, a = 0, -10
		case 1:
			class, a = 1, 0
		case 2:
			class, a = 2, 10
		}
		b := float32(i % 5)
		points[i] = data.Point{
			Input:   [][]float32{{a, b}},
			Outcome: data.Outcome{Class: class, Reward: 1, Penalty: 1},
		}
	}
	return points, classMap
}

func TestNewTrainingGroupValidatesViews(t *testing.T) {
	points, classMap := syntheticPoints(30)
	view := data.IntoView(points, classMap)

	if _, err := NewTrainingGroup(view, data.IntoView(nil, classMap), score.Accuracy, 4, 0, 2); err == nil {
		t.Fatalf("expected error for empty verification view")
	}

	mismatched := &data.DataView{Shape: data.InputShape{Rows: 2, Columns: 2}, Outcomes: view.Outcomes, ClassCount: view.ClassCount, ClassMap: classMap}
	if _, err := NewTrainingGroup(view, mismatched, score.Accuracy, 4, 0, 2); err == nil {
		t.Fatalf("expected error for mismatched shapes")
	}
}

// TestTrainingGroupRunsGenerationsAndProducesClassifier is an end-to-end
// scenario (construct, run several generations, snapshot, classify) with
// many independent assertions per step, so it uses testify's require/assert
// rather than a chain of bare t.Fatalf calls.
func TestTrainingGroupRunsGenerationsAndProducesClassifier(t *testing.T) {
	points, classMap := syntheticPoints(60)
	training := data.IntoView(points[:40], classMap)
	verification := data.IntoView(points[40:], classMap)

	tg, err := NewTrainingGroup(training, verification, score.Accuracy, 4, 0, 4)
	require.NoError(t, err)

	_, err = tg.Classifier()
	require.Error(t, err, "classifier snapshot should fail before any generation ran")

	for i := 0; i < 5; i++ {
		require.NoError(t, tg.NextGeneration(context.Background()))
	}

	stats := tg.Stats()
	require.Equal(t, 5, stats.Generation)

	clf, err := tg.Classifier()
	require.NoError(t, err)
	require.Len(t, clf.Trees, len(classMap))

	labels := clf.Classify(verification)
	require.Len(t, labels, verification.N())
	for _, label := range labels {
		if label == "" {
			continue
		}
		_, ok := classMap[classOf(classMap, label)]
		require.Truef(t, ok, "unexpected label %q", label)
	}
}

func classOf(classMap map[data.Class]string, label string) data.Class {
	for class, l := range classMap {
		if l == label {
			return class
		}
	}
	return data.Class(255)
}

func TestClassTrainingNextGenerationGrowsBestTree(t *testing.T) {
	points, classMap := syntheticPoints(40)
	training := data.IntoView(points, classMap)
	verification := data.IntoView(points, classMap)

	ct := NewClassTraining(0, score.Accuracy, 3, 0, nil)
	for i := 0; i < 3; i++ {
		ct.NextGeneration(training.Shape, training, verification)
	}
	if ct.BestTree == nil {
		t.Fatalf("expected a best tree after generations ran")
	}
}
