package labels

import (
	"fmt"
	"slices"
)

// Pair is one row of a correspondence table.  GT == 0 marks a false-positive
// prediction and Pred == 0 marks a ground-truth instance without any match.
type Pair struct {
	GT   uint64
	Pred uint64
}

// Table is the complete id correspondence between ground truth and prediction.
// Pairs holds every ground-truth id with its best match, in the order of the
// match records, followed by each unmatched prediction in ascending order.
type Table struct {
	Pairs []Pair

	// Contested lists, in ascending order, predicted ids that are the best match
	// of more than one ground-truth id.  Each such claim remains a separate pair.
	Contested []uint64
}

// BuildCorrespondence combines match records with the ids of all predicted
// instances.  predIDs need not be sorted or unique.
func BuildCorrespondence(matches []MatchRecord, predIDs []uint64) (*Table, error) {
	preds := uniquePositive(predIDs)
	table := &Table{Pairs: make([]Pair, 0, len(matches)+len(preds))}

	claimed := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.GTID == 0 {
			return nil, fmt.Errorf("match record with ground-truth id 0 (pred %d)", m.PredID)
		}
		table.Pairs = append(table.Pairs, Pair{GT: m.GTID, Pred: m.PredID})
		if m.PredID != 0 {
			claimed = append(claimed, m.PredID)
		}
	}
	slices.Sort(claimed)
	table.Contested = duplicates(claimed)
	claimed = slices.Compact(claimed)

	// Merge the two sorted lists; predictions never claimed are false positives.
	var c int
	for _, id := range preds {
		for c < len(claimed) && claimed[c] < id {
			c++
		}
		if c < len(claimed) && claimed[c] == id {
			continue
		}
		table.Pairs = append(table.Pairs, Pair{GT: 0, Pred: id})
	}
	return table, nil
}

// GTIDs returns the ground-truth ids in table order.
func (t *Table) GTIDs() []uint64 {
	var ids []uint64
	for _, p := range t.Pairs {
		if p.GT != 0 {
			ids = append(ids, p.GT)
		}
	}
	return ids
}

// FalsePositives returns the predicted ids not matched to any ground-truth id.
func (t *Table) FalsePositives() []uint64 {
	var ids []uint64
	for _, p := range t.Pairs {
		if p.GT == 0 {
			ids = append(ids, p.Pred)
		}
	}
	return ids
}

// Validate checks the table against the full sets of ground-truth and predicted ids:
// no (0, 0) pair, every ground-truth id exactly once, the non-zero predicted ids
// equal to the predicted id set, and no prediction both matched and unmatched.
// Contested predictions may appear in several match pairs.
func (t *Table) Validate(gtIDs, predIDs []uint64) error {
	var gts, matched, fps []uint64
	for _, p := range t.Pairs {
		switch {
		case p.GT == 0 && p.Pred == 0:
			return fmt.Errorf("correspondence table has a (0, 0) pair")
		case p.GT == 0:
			fps = append(fps, p.Pred)
		default:
			gts = append(gts, p.GT)
			if p.Pred != 0 {
				matched = append(matched, p.Pred)
			}
		}
	}
	slices.Sort(gts)
	if dup := duplicates(gts); len(dup) != 0 {
		return fmt.Errorf("ground-truth ids %v appear more than once", dup)
	}
	if !slices.Equal(gts, uniquePositive(gtIDs)) {
		return fmt.Errorf("table has %d ground-truth ids, expected %d", len(gts), len(uniquePositive(gtIDs)))
	}
	slices.Sort(fps)
	if dup := duplicates(fps); len(dup) != 0 {
		return fmt.Errorf("false-positive ids %v appear more than once", dup)
	}
	matched = uniquePositive(matched)
	fpIndex := newIDIndex(fps)
	for _, id := range matched {
		if fpIndex.slot(id) >= 0 {
			return fmt.Errorf("predicted id %d is both matched and a false positive", id)
		}
	}
	all := uniquePositive(append(matched, fps...))
	if !slices.Equal(all, uniquePositive(predIDs)) {
		return fmt.Errorf("table covers %d predicted ids, expected %d", len(all), len(uniquePositive(predIDs)))
	}
	return nil
}

// duplicates returns the values occurring more than once in a sorted slice,
// each reported once.
func duplicates(sorted []uint64) []uint64 {
	if !slices.IsSorted(sorted) {
		sorted = slices.Clone(sorted)
		slices.Sort(sorted)
	}
	var dup []uint64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] && (len(dup) == 0 || dup[len(dup)-1] != sorted[i]) {
			dup = append(dup, sorted[i])
		}
	}
	return dup
}
