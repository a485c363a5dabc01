package labels

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// DefaultThresholds are the IoU thresholds used when none are given to Summarize.
var DefaultThresholds = []float64{0.5, 0.75}

// ThresholdCounts are detection counts at one IoU threshold.
type ThresholdCounts struct {
	Threshold      float64 `json:"threshold"`
	TruePositives  int     `json:"true_positives"`
	FalseNegatives int     `json:"false_negatives"`
	FalsePositives int     `json:"false_positives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// Summary describes a matching at a glance.
type Summary struct {
	GroundTruth int               `json:"ground_truth"`
	Predicted   int               `json:"predicted"`
	Matched     int               `json:"matched"`
	Contested   int               `json:"contested"`
	MeanIoU     float64           `json:"mean_iou"`
	StdDevIoU   float64           `json:"stddev_iou"`
	Thresholds  []ThresholdCounts `json:"thresholds"`
}

// Summarize counts true positives, false negatives and false positives at each
// IoU threshold.  A predicted id counts as a true positive at most once, for the
// ground-truth instance it overlaps best.  IoU statistics are over ground-truth
// instances with any match.
func Summarize(matches []MatchRecord, table *Table, thresholds []float64) Summary {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	var s Summary
	s.GroundTruth = len(matches)
	if table != nil {
		s.Contested = len(table.Contested)
		var preds []uint64
		for _, p := range table.Pairs {
			if p.Pred != 0 {
				preds = append(preds, p.Pred)
			}
		}
		s.Predicted = len(uniquePositive(preds))
	}

	var ious []float64
	for _, m := range matches {
		if m.PredID != 0 {
			ious = append(ious, m.IoU)
		}
	}
	s.Matched = len(ious)
	switch len(ious) {
	case 0:
	case 1:
		s.MeanIoU = ious[0]
	default:
		s.MeanIoU, s.StdDevIoU = stat.MeanStdDev(ious, nil)
	}

	// Best claim first so each predicted id goes to its highest-IoU ground truth.
	ranked := make([]MatchRecord, 0, len(ious))
	for _, m := range matches {
		if m.PredID != 0 {
			ranked = append(ranked, m)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].IoU > ranked[j].IoU })

	matched := make([]uint64, len(ranked))
	for i, m := range ranked {
		matched[i] = m.PredID
	}
	ix := newIDIndex(uniquePositive(matched))
	used := make([]bool, ix.len())
	for _, t := range thresholds {
		var tp int
		clear(used)
		for _, m := range ranked {
			if m.IoU < t {
				break
			}
			slot := ix.slot(m.PredID)
			if used[slot] {
				continue
			}
			used[slot] = true
			tp++
		}
		c := ThresholdCounts{
			Threshold:      t,
			TruePositives:  tp,
			FalseNegatives: s.GroundTruth - tp,
			FalsePositives: s.Predicted - tp,
		}
		if s.Predicted > 0 {
			c.Precision = float64(tp) / float64(s.Predicted)
		}
		if s.GroundTruth > 0 {
			c.Recall = float64(tp) / float64(s.GroundTruth)
		}
		if c.Precision+c.Recall > 0 {
			c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		s.Thresholds = append(s.Thresholds, c)
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ground truth %d, predicted %d, matched %d, contested %d, IoU %.4f +/- %.4f",
		s.GroundTruth, s.Predicted, s.Matched, s.Contested, s.MeanIoU, s.StdDevIoU)
	for _, c := range s.Thresholds {
		fmt.Fprintf(&b, "\n  IoU >= %.2f: TP %d, FN %d, FP %d, precision %.4f, recall %.4f, F1 %.4f",
			c.Threshold, c.TruePositives, c.FalseNegatives, c.FalsePositives, c.Precision, c.Recall, c.F1)
	}
	return b.String()
}
