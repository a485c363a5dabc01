package labels

import (
	"reflect"
	"testing"
)

func TestTally(t *testing.T) {
	vol, _ := NewVolume(Shape{1, 2, 4}, []uint64{0, 5, 5, 2, 0, 0, 9, 5})
	got := Tally(vol)
	expected := []IDCount{{2, 1}, {5, 3}, {9, 1}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected tally %v, got %v\n", expected, got)
	}
	if ids := IDs(got); !reflect.DeepEqual(ids, []uint64{2, 5, 9}) {
		t.Errorf("bad ids: %v\n", ids)
	}
	if n := len(Tally(NewEmptyVolume(Shape{2, 2, 2}))); n != 0 {
		t.Errorf("expected empty tally of background volume, got %d entries\n", n)
	}
}

func TestTallyLargeIDs(t *testing.T) {
	big := uint64(1) << 40
	vol, _ := NewVolume(Shape{1, 1, 6}, []uint64{big + 1, 3, big + 1, 0, big, 3})
	got := Tally(vol)
	expected := []IDCount{{3, 2}, {big, 1}, {big + 1, 2}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected tally %v, got %v\n", expected, got)
	}
}

func TestIDIndex(t *testing.T) {
	for _, ids := range [][]uint64{
		{1, 4, 17, 300},
		{2, maxDenseID + 10, 1 << 50},
	} {
		ix := newIDIndex(ids)
		for slot, id := range ids {
			if got := ix.slot(id); got != slot {
				t.Errorf("id %d: expected slot %d, got %d\n", id, slot, got)
			}
		}
		for _, id := range []uint64{0, 3, maxDenseID, 1<<50 + 1} {
			if got := ix.slot(id); got != -1 {
				t.Errorf("absent id %d gave slot %d\n", id, got)
			}
		}
	}
	if got := uniquePositive([]uint64{5, 0, 3, 5, 1, 3}); !reflect.DeepEqual(got, []uint64{1, 3, 5}) {
		t.Errorf("bad unique ids: %v\n", got)
	}
}
