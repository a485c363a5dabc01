package labels

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestMatchIdenticalCube(t *testing.T) {
	gt := NewEmptyVolume(Shape{4, 4, 4})
	gt.Fill(BoundingBox{ZMax: 3, YMax: 3, XMax: 3}, 1)
	pred := NewEmptyVolume(Shape{4, 4, 4})
	pred.Fill(BoundingBox{ZMax: 3, YMax: 3, XMax: 3}, 1)

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	expected := []MatchRecord{{GTID: 1, PredID: 1, GTCount: 64, PredCount: 64, IoU: 1.0}}
	if !reflect.DeepEqual(result.Matches, expected) {
		t.Errorf("expected %v, got %v\n", expected, result.Matches)
	}
	table, err := BuildCorrespondence(result.Matches, IDs(result.Predicted))
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if !reflect.DeepEqual(table.Pairs, []Pair{{1, 1}}) {
		t.Errorf("bad correspondence: %v\n", table.Pairs)
	}
}

func TestMatchEmptyGroundTruth(t *testing.T) {
	gt := NewEmptyVolume(Shape{2, 5, 5})
	pred := NewEmptyVolume(Shape{2, 5, 5})
	pred.Fill(BoundingBox{ZMin: 0, ZMax: 1, YMin: 0, YMax: 4, XMin: 2, XMax: 2}, 5)

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{Workers: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("expected no matches, got %v\n", result.Matches)
	}
	if !reflect.DeepEqual(result.Predicted, []IDCount{{5, 10}}) {
		t.Errorf("bad predicted tally: %v\n", result.Predicted)
	}
	table, err := BuildCorrespondence(result.Matches, IDs(result.Predicted))
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if !reflect.DeepEqual(table.Pairs, []Pair{{0, 5}}) {
		t.Errorf("expected single false positive, got %v\n", table.Pairs)
	}
}

func TestMatchPartialOverlap(t *testing.T) {
	gt := NewEmptyVolume(Shape{1, 10, 20})
	gt.Fill(BoundingBox{YMax: 4, XMax: 19}, 2)
	pred := NewEmptyVolume(Shape{1, 10, 20})
	pred.Fill(BoundingBox{YMax: 9, XMin: 10, XMax: 19}, 7)

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected one match, got %v\n", result.Matches)
	}
	m := result.Matches[0]
	if m.GTID != 2 || m.PredID != 7 || m.GTCount != 100 || m.PredCount != 100 {
		t.Errorf("bad match record: %v\n", m)
	}
	if math.Abs(m.IoU-1.0/3.0) > 1e-12 {
		t.Errorf("expected IoU 1/3, got %f\n", m.IoU)
	}
}

func TestMatchNoOverlap(t *testing.T) {
	gt := NewEmptyVolume(Shape{1, 4, 4})
	gt.Fill(BoundingBox{YMax: 1, XMax: 1}, 3)
	pred := NewEmptyVolume(Shape{1, 4, 4})
	pred.Fill(BoundingBox{YMin: 2, YMax: 3, XMin: 2, XMax: 3}, 6)

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	expected := []MatchRecord{{GTID: 3, GTCount: 4}}
	if !reflect.DeepEqual(result.Matches, expected) {
		t.Errorf("expected %v, got %v\n", expected, result.Matches)
	}
	table, _ := BuildCorrespondence(result.Matches, IDs(result.Predicted))
	if !reflect.DeepEqual(table.Pairs, []Pair{{3, 0}, {0, 6}}) {
		t.Errorf("bad correspondence: %v\n", table.Pairs)
	}
}

func TestMatchTieGoesToSmallestID(t *testing.T) {
	gt := NewEmptyVolume(Shape{1, 1, 4})
	gt.Fill(BoundingBox{XMax: 3}, 1)
	pred, _ := NewVolume(Shape{1, 1, 4}, []uint64{9, 9, 3, 3})

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if result.Matches[0].PredID != 3 {
		t.Errorf("expected tie to go to label 3, got %v\n", result.Matches[0])
	}
	if result.Matches[0].IoU != 0.5 {
		t.Errorf("expected IoU 0.5, got %f\n", result.Matches[0].IoU)
	}
}

func TestMatchSharedPrediction(t *testing.T) {
	gt, _ := NewVolume(Shape{1, 1, 6}, []uint64{1, 1, 1, 2, 2, 2})
	pred, _ := NewVolume(Shape{1, 1, 6}, []uint64{4, 4, 4, 4, 4, 8})

	result, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	for _, m := range result.Matches {
		if m.PredID != 4 || !m.Shared {
			t.Errorf("expected shared match to label 4, got %v (shared %t)\n", m, m.Shared)
		}
	}
	table, err := BuildCorrespondence(result.Matches, IDs(result.Predicted))
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if !reflect.DeepEqual(table.Pairs, []Pair{{1, 4}, {2, 4}, {0, 8}}) {
		t.Errorf("bad correspondence: %v\n", table.Pairs)
	}
	if !reflect.DeepEqual(table.Contested, []uint64{4}) {
		t.Errorf("expected label 4 contested, got %v\n", table.Contested)
	}
	if err := table.Validate(IDs(Tally(gt)), IDs(result.Predicted)); err != nil {
		t.Errorf("valid table failed validation: %v\n", err)
	}
}

func TestMatchShapeMismatch(t *testing.T) {
	gt := NewEmptyVolume(Shape{2, 3, 4})
	pred := NewEmptyVolume(Shape{2, 4, 3})
	_, err := MatchInstances(context.Background(), gt, pred, MatchOptions{})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v\n", err)
	}
	if _, err := MatchInstances(context.Background(), gt, nil, MatchOptions{}); err == nil {
		t.Errorf("expected error with nil prediction\n")
	}
}

func TestMatchCanceled(t *testing.T) {
	gt := randomVolume(Shape{4, 6, 6}, 5, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := MatchInstances(ctx, gt, gt, MatchOptions{Workers: 2}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v\n", err)
	}
}

// naiveMatch scores one ground-truth label over the whole volume.
func naiveMatch(gt, pred *Volume, gtID uint64) MatchRecord {
	rec := MatchRecord{GTID: gtID}
	overlap := make(map[uint64]uint64)
	predCounts := make(map[uint64]uint64)
	for i, label := range gt.Data() {
		p := pred.Data()[i]
		predCounts[p]++
		if label != gtID {
			continue
		}
		rec.GTCount++
		if p != 0 {
			overlap[p]++
		}
	}
	var inter uint64
	for p, n := range overlap {
		if n > inter || (n == inter && p < rec.PredID) {
			rec.PredID, inter = p, n
		}
	}
	if rec.PredID != 0 {
		rec.PredCount = predCounts[rec.PredID]
		rec.IoU = float64(inter) / float64(rec.GTCount+rec.PredCount-inter)
	}
	return rec
}

func TestMatchAgreesWithNaive(t *testing.T) {
	for seed := int64(10); seed < 14; seed++ {
		gt := randomVolume(Shape{6, 10, 9}, 12, seed)
		pred := randomVolume(Shape{6, 10, 9}, 15, seed+100)

		serial, err := MatchInstances(context.Background(), gt, pred, MatchOptions{Workers: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
		parallel, err := MatchInstances(context.Background(), gt, pred, MatchOptions{Workers: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
		if !reflect.DeepEqual(serial, parallel) {
			t.Errorf("seed %d: results differ by worker count\n", seed)
		}
		again, _ := MatchInstances(context.Background(), gt, pred, MatchOptions{Workers: 1})
		if !reflect.DeepEqual(serial, again) {
			t.Errorf("seed %d: repeated matching differs\n", seed)
		}

		gtTally := Tally(gt)
		if len(serial.Matches) != len(gtTally) {
			t.Fatalf("expected %d matches, got %d\n", len(gtTally), len(serial.Matches))
		}
		for i, m := range serial.Matches {
			expected := naiveMatch(gt, pred, gtTally[i].ID)
			expected.Shared = m.Shared
			if m != expected {
				t.Errorf("seed %d: expected %v, got %v\n", seed, expected, m)
			}
			if m.IoU < 0 || m.IoU > 1 {
				t.Errorf("IoU out of range: %v\n", m)
			}
		}

		table, err := BuildCorrespondence(serial.Matches, IDs(serial.Predicted))
		if err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
		if err := table.Validate(IDs(gtTally), IDs(serial.Predicted)); err != nil {
			t.Errorf("seed %d: %v\n", seed, err)
		}
	}
}
