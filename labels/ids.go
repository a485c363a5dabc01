package labels

import (
	"slices"
	"sort"
)

// Largest id for which per-id state is found through a direct lookup table
// instead of binary search.  A table costs 4 bytes per possible id.
const maxDenseID = 1 << 22

// IDCount is a label and its number of voxels.
type IDCount struct {
	ID    uint64
	Count uint64
}

// idIndex maps instance ids to dense slots 0..n-1 so per-instance state can live
// in plain slices.  Slots follow ascending id order.
type idIndex struct {
	ids   []uint64 // sorted, unique, non-zero
	dense []int32  // dense[id] is the slot for id or -1; nil when ids are too large
}

// newIDIndex builds an index over sorted, unique, non-zero ids.
func newIDIndex(ids []uint64) *idIndex {
	ix := &idIndex{ids: ids}
	if len(ids) == 0 {
		return ix
	}
	maxID := ids[len(ids)-1]
	if maxID < maxDenseID {
		ix.dense = make([]int32, maxID+1)
		for i := range ix.dense {
			ix.dense[i] = -1
		}
		for slot, id := range ids {
			ix.dense[id] = int32(slot)
		}
	}
	return ix
}

// slot returns the slot for an id or -1 if the id is not indexed.
func (ix *idIndex) slot(id uint64) int {
	if ix.dense != nil {
		if id >= uint64(len(ix.dense)) {
			return -1
		}
		return int(ix.dense[id])
	}
	i := sort.Search(len(ix.ids), func(i int) bool { return ix.ids[i] >= id })
	if i < len(ix.ids) && ix.ids[i] == id {
		return i
	}
	return -1
}

func (ix *idIndex) len() int {
	return len(ix.ids)
}

// uniquePositive returns the sorted, unique, non-zero members of ids.
func uniquePositive(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Tally returns the voxel count of every positive label in the volume, ascending by id.
func Tally(v *Volume) []IDCount {
	maxLabel := v.MaxLabel()
	if maxLabel == 0 {
		return []IDCount{}
	}
	if maxLabel < maxDenseID {
		counts := make([]uint64, maxLabel+1)
		for _, label := range v.data {
			counts[label]++
		}
		var tally []IDCount
		for id := uint64(1); id <= maxLabel; id++ {
			if counts[id] != 0 {
				tally = append(tally, IDCount{ID: id, Count: counts[id]})
			}
		}
		return tally
	}

	// Large ids: sort the foreground labels and count runs.
	fg := make([]uint64, 0, len(v.data))
	for _, label := range v.data {
		if label != 0 {
			fg = append(fg, label)
		}
	}
	slices.Sort(fg)
	var tally []IDCount
	for i := 0; i < len(fg); {
		j := i + 1
		for j < len(fg) && fg[j] == fg[i] {
			j++
		}
		tally = append(tally, IDCount{ID: fg[i], Count: uint64(j - i)})
		i = j
	}
	return tally
}

// IDs returns just the ids of a tally.
func IDs(tally []IDCount) []uint64 {
	ids := make([]uint64, len(tally))
	for i, tc := range tally {
		ids[i] = tc.ID
	}
	return ids
}
