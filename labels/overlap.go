package labels

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/segeval/core"

	"golang.org/x/sync/errgroup"
)

// MatchRecord is the best predicted match for one ground-truth instance.
// PredID == 0 and IoU == 0 mean no predicted instance overlaps it.
type MatchRecord struct {
	GTID      uint64
	PredID    uint64
	GTCount   uint64
	PredCount uint64 // voxels of PredID in the whole predicted volume
	IoU       float64

	// Shared is set when PredID is also the best match of another ground-truth instance.
	Shared bool
}

func (m MatchRecord) String() string {
	return fmt.Sprintf("gt %d (%d voxels) -> pred %d (%d voxels), IoU %.4f", m.GTID, m.GTCount, m.PredID, m.PredCount, m.IoU)
}

// MatchOptions modify instance matching.
type MatchOptions struct {
	// Workers is the number of goroutines scoring ground-truth instances.
	// If <= 0, core.NumCPU is used.
	Workers int
}

// MatchResult holds one MatchRecord per ground-truth id in ascending id order and
// the voxel tally of every predicted id.
type MatchResult struct {
	Matches   []MatchRecord
	Predicted []IDCount
}

// MatchInstances finds, for each ground-truth instance, the predicted instance with
// the largest overlap and the IoU of the pair.  The overlap of each ground-truth
// instance is only computed within its bounding box.  Ties go to the smallest
// predicted id; the matching is greedy and not a globally optimal assignment.
func MatchInstances(ctx context.Context, gt, pred *Volume, opts MatchOptions) (*MatchResult, error) {
	if gt == nil || pred == nil {
		return nil, fmt.Errorf("both ground-truth and predicted volumes are required")
	}
	if gt.shape != pred.shape {
		return nil, fmt.Errorf("ground truth %s, prediction %s: %w", gt.shape, pred.shape, ErrShapeMismatch)
	}
	timedLog := core.NewTimeLog()

	gtTally := Tally(gt)
	predTally := Tally(pred)
	boxes, err := ComputeBoundingBoxes(gt, IDs(gtTally), BoxOptions{})
	if err != nil {
		return nil, err
	}
	predIndex := newIDIndex(IDs(predTally))

	matches := make([]MatchRecord, len(gtTally))
	workers := opts.Workers
	if workers <= 0 {
		workers = core.NumCPU
	}
	if workers > len(gtTally) {
		workers = len(gtTally)
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		begin := w * len(gtTally) / workers
		end := (w + 1) * len(gtTally) / workers
		g.Go(func() error {
			sc := newOverlapScorer(gt, pred, predIndex, predTally)
			for i := begin; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				matches[i] = sc.score(boxes[i], gtTally[i].Count)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, predID := range markShared(matches) {
		core.Warningf("predicted label %d is the best match of more than one ground-truth label\n", predID)
	}
	timedLog.Debugf("matched %d ground-truth labels against %d predicted labels in %s volume with %d workers",
		len(gtTally), len(predTally), gt.shape, workers)
	return &MatchResult{Matches: matches, Predicted: predTally}, nil
}

// overlapScorer holds per-worker scratch space for tallying predicted labels.
type overlapScorer struct {
	gt, pred  *Volume
	predIndex *idIndex
	predTally []IDCount
	counts    []uint64 // indexed by predicted slot
	touched   []int
}

func newOverlapScorer(gt, pred *Volume, predIndex *idIndex, predTally []IDCount) *overlapScorer {
	return &overlapScorer{
		gt:        gt,
		pred:      pred,
		predIndex: predIndex,
		predTally: predTally,
		counts:    make([]uint64, predIndex.len()),
	}
}

// score computes the match for the ground-truth instance with the given box.
func (sc *overlapScorer) score(box BoundingBox, gtCount uint64) MatchRecord {
	rec := MatchRecord{GTID: box.ID, GTCount: gtCount}

	gtCrop := sc.gt.Crop(box)
	masked := sc.pred.Crop(box)
	for i, label := range gtCrop.data {
		if label != box.ID {
			masked.data[i] = 0
		}
	}

	sc.touched = sc.touched[:0]
	for _, label := range masked.data {
		if label == 0 {
			continue
		}
		slot := sc.predIndex.slot(label)
		if sc.counts[slot] == 0 {
			sc.touched = append(sc.touched, slot)
		}
		sc.counts[slot]++
	}

	// Slots are in ascending id order so the smaller slot wins a tie.
	best := -1
	var intersection uint64
	for _, slot := range sc.touched {
		n := sc.counts[slot]
		if n > intersection || (n == intersection && slot < best) {
			best, intersection = slot, n
		}
		sc.counts[slot] = 0
	}
	if best < 0 {
		return rec
	}
	rec.PredID = sc.predTally[best].ID
	rec.PredCount = sc.predTally[best].Count
	rec.IoU = float64(intersection) / float64(rec.GTCount+rec.PredCount-intersection)
	return rec
}

// markShared flags records whose predicted id is claimed by more than one
// ground-truth id and returns those predicted ids in ascending order.
func markShared(matches []MatchRecord) []uint64 {
	claimed := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.PredID != 0 {
			claimed = append(claimed, m.PredID)
		}
	}
	shared := duplicates(claimed)
	if len(shared) == 0 {
		return nil
	}
	ix := newIDIndex(shared)
	for i := range matches {
		if matches[i].PredID != 0 && ix.slot(matches[i].PredID) >= 0 {
			matches[i].Shared = true
		}
	}
	return shared
}
