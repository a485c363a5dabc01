package labels

import (
	"context"
	"slices"
	"testing"
)

func TestInputsUnchanged(t *testing.T) {
	shape := Shape{6, 9, 11}
	gt := randomVolume(shape, 12, 7)
	pred := randomVolume(shape, 15, 8)
	values := make([]float32, 2*shape.NumVoxels())
	for i := range values {
		values[i] = float32(i%13) / 13
	}
	heatmap, err := NewHeatmap(shape, 2, values)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}

	gtData := slices.Clone(gt.Data())
	predData := slices.Clone(pred.Data())
	heatData := slices.Clone(heatmap.Data())
	check := func(op string) {
		if !slices.Equal(gtData, gt.Data()) {
			t.Errorf("%s modified the ground-truth volume\n", op)
		}
		if !slices.Equal(predData, pred.Data()) {
			t.Errorf("%s modified the predicted volume\n", op)
		}
		if !slices.Equal(heatData, heatmap.Data()) {
			t.Errorf("%s modified the heatmap\n", op)
		}
	}

	for _, workers := range []int{1, 4} {
		if _, err := MatchInstances(context.Background(), gt, pred, MatchOptions{Workers: workers}); err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
		check("MatchInstances")
	}
	if _, err := ComputeBoundingBoxes(gt, nil, BoxOptions{Count: true}); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if _, err := ComputeBoundingBoxes(pred, []uint64{3, 99, 3}, BoxOptions{}); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	check("ComputeBoundingBoxes")
	for _, channel := range []int{0, 1, AllChannels} {
		if _, err := AggregateScores(pred, heatmap, channel); err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
	}
	check("AggregateScores")
	if _, err := Evaluate(context.Background(), gt, pred, HeatmapScores{Heatmap: heatmap, Channel: AllChannels}, EvalOptions{}); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	check("Evaluate")
}
