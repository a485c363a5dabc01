package labels

import (
	"errors"
	"math"
	"testing"
)

func scoreOf(t *testing.T, table *ScoreTable, id uint64) float64 {
	score, found := table.Score(id)
	if !found {
		t.Fatalf("no score for label %d\n", id)
	}
	return score
}

func TestAggregateScores(t *testing.T) {
	// Label 1 is uniformly 0.9 and label 2 alternates 0.0 and 1.0.
	pred, _ := NewVolume(Shape{1, 2, 3}, []uint64{1, 1, 1, 2, 2, 0})
	heatmap, _ := NewHeatmap(Shape{1, 2, 3}, 0, []float32{0.9, 0.9, 0.9, 0.0, 1.0, 0.3})

	table, err := AggregateScores(pred, heatmap, AllChannels)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 scores, got %d\n", table.Len())
	}
	if s := scoreOf(t, table, 1); math.Abs(s-0.9) > 1e-6 {
		t.Errorf("expected score 0.9 for label 1, got %f\n", s)
	}
	if s := scoreOf(t, table, 2); math.Abs(s-0.5) > 1e-6 {
		t.Errorf("expected score 0.5 for label 2, got %f\n", s)
	}
	if _, found := table.Score(0); found {
		t.Errorf("background should never be scored\n")
	}
	if _, err := AggregateScores(pred, heatmap, 0); err != nil {
		t.Errorf("channel 0 of heatmap without channels should be allowed: %v\n", err)
	}
}

func TestAggregateScoresChannels(t *testing.T) {
	pred, _ := NewVolume(Shape{1, 1, 3}, []uint64{4, 4, 6})
	heatmap, _ := NewHeatmap(Shape{1, 1, 3}, 2, []float32{
		0.2, 0.4, 1.0, // channel 0
		0.6, 0.8, 0.0, // channel 1
	})

	table, err := AggregateScores(pred, heatmap, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if s := scoreOf(t, table, 4); math.Abs(s-0.7) > 1e-6 {
		t.Errorf("expected channel 1 score 0.7 for label 4, got %f\n", s)
	}
	table, err = AggregateScores(pred, heatmap, AllChannels)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if s := scoreOf(t, table, 4); math.Abs(s-0.5) > 1e-6 {
		t.Errorf("expected mean score 0.5 for label 4, got %f\n", s)
	}
	if s := scoreOf(t, table, 6); math.Abs(s-0.5) > 1e-6 {
		t.Errorf("expected mean score 0.5 for label 6, got %f\n", s)
	}

	for _, ch := range []int{2, 5, -2} {
		if _, err := AggregateScores(pred, heatmap, ch); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("channel %d: expected ErrInvalidChannel, got %v\n", ch, err)
		}
	}
	flat, _ := NewHeatmap(Shape{1, 1, 3}, 0, []float32{0, 0, 0})
	if _, err := AggregateScores(pred, flat, 1); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel for channel of flat heatmap, got %v\n", err)
	}
}

func TestAggregateScoresShapeMismatch(t *testing.T) {
	pred := NewEmptyVolume(Shape{1, 2, 3})
	heatmap, _ := NewHeatmap(Shape{1, 3, 2}, 0, make([]float32, 6))
	if _, err := AggregateScores(pred, heatmap, AllChannels); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v\n", err)
	}
}

func TestScoreSources(t *testing.T) {
	pred, _ := NewVolume(Shape{1, 1, 4}, []uint64{3, 3, 8, 12})
	direct, err := NewScoreTable([]uint64{12, 3, 99}, []float64{0.25, 0.75, 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	heatmap, _ := NewHeatmap(Shape{1, 1, 4}, 0, []float32{0.5, 0.5, 0.5, 0.5})

	src, err := ResolveScores(direct, heatmap, AllChannels)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if _, ok := src.(DirectScores); !ok {
		t.Fatalf("expected score table to take precedence, got %T\n", src)
	}
	table, err := src.Scores(pred)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if table.Len() != 3 {
		t.Errorf("expected scores only for labels in prediction, got %v\n", table.Entries())
	}
	if s := scoreOf(t, table, 3); s != 0.75 {
		t.Errorf("bad score for label 3: %f\n", s)
	}
	if s := scoreOf(t, table, 8); s != 0 {
		t.Errorf("expected unscored label to get 0, got %f\n", s)
	}

	src, err = ResolveScores(nil, heatmap, AllChannels)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if _, ok := src.(HeatmapScores); !ok {
		t.Fatalf("expected heatmap scores, got %T\n", src)
	}
	table, err = src.Scores(pred)
	if err != nil || table.Len() != 3 {
		t.Errorf("bad heatmap scores: %v, %v\n", table, err)
	}

	if _, err := ResolveScores(nil, nil, AllChannels); !errors.Is(err, ErrNoScores) {
		t.Errorf("expected ErrNoScores, got %v\n", err)
	}
}

func TestNewScoreTableErrors(t *testing.T) {
	if _, err := NewScoreTable([]uint64{1, 2}, []float64{0.5}); err == nil {
		t.Errorf("expected error for length mismatch\n")
	}
	if _, err := NewScoreTable([]uint64{0}, []float64{0.5}); err == nil {
		t.Errorf("expected error for background id\n")
	}
	if _, err := NewScoreTable([]uint64{4, 2, 4}, []float64{0.5, 0.1, 0.2}); err == nil {
		t.Errorf("expected error for duplicate id\n")
	}
}
