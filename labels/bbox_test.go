package labels

import (
	"math/rand"
	"testing"
)

// randomVolume returns a volume with a few blobby instances and scattered noise.
func randomVolume(shape Shape, numLabels int, seed int64) *Volume {
	rng := rand.New(rand.NewSource(seed))
	vol := NewEmptyVolume(shape)
	for label := 1; label <= numLabels; label++ {
		var box BoundingBox
		box.ZMin = rng.Intn(shape[0])
		box.YMin = rng.Intn(shape[1])
		box.XMin = rng.Intn(shape[2])
		box.ZMax = box.ZMin + rng.Intn(shape[0]-box.ZMin)
		box.YMax = box.YMin + rng.Intn(shape[1]-box.YMin)
		box.XMax = box.XMin + rng.Intn(shape[2]-box.XMin)
		vol.Fill(box, uint64(label))
	}
	for i := 0; i < shape.NumVoxels()/20; i++ {
		vol.Set(rng.Intn(shape[0]), rng.Intn(shape[1]), rng.Intn(shape[2]), uint64(rng.Intn(numLabels+1)))
	}
	return vol
}

// naiveBox finds a box by visiting every voxel.
func naiveBox(vol *Volume, id uint64) (BoundingBox, uint64) {
	s := vol.Shape()
	box := BoundingBox{ID: id, ZMin: s[0], ZMax: -1, YMin: s[1], YMax: -1, XMin: s[2], XMax: -1}
	var count uint64
	for z := 0; z < s[0]; z++ {
		for y := 0; y < s[1]; y++ {
			for x := 0; x < s[2]; x++ {
				if vol.At(z, y, x) != id {
					continue
				}
				count++
				box.ZMin, box.ZMax = min(box.ZMin, z), max(box.ZMax, z)
				box.YMin, box.YMax = min(box.YMin, y), max(box.YMax, y)
				box.XMin, box.XMax = min(box.XMin, x), max(box.XMax, x)
			}
		}
	}
	return box, count
}

func TestBoundingBoxesMatchNaive(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		vol := randomVolume(Shape{7, 11, 13}, 9, seed)
		boxes, err := ComputeBoundingBoxes(vol, nil, BoxOptions{Count: true})
		if err != nil {
			t.Fatalf("unexpected error: %v\n", err)
		}
		tally := Tally(vol)
		if len(boxes) != len(tally) {
			t.Fatalf("expected %d boxes, got %d\n", len(tally), len(boxes))
		}
		for i, box := range boxes {
			if box.ID != tally[i].ID {
				t.Fatalf("box %d has id %d, expected %d\n", i, box.ID, tally[i].ID)
			}
			expected, count := naiveBox(vol, box.ID)
			expected.Count = count
			if box != expected {
				t.Errorf("seed %d: expected %v (count %d), got %v (count %d)\n", seed, expected, count, box, box.Count)
			}
		}
	}
}

func TestBoundingBoxContainsAllVoxels(t *testing.T) {
	vol := randomVolume(Shape{5, 9, 6}, 6, 42)
	boxes, err := ComputeBoundingBoxes(vol, nil, BoxOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	byID := make(map[uint64]BoundingBox)
	for _, box := range boxes {
		if box.Count != 0 {
			t.Errorf("count set without being requested: %v\n", box)
		}
		byID[box.ID] = box
	}
	s := vol.Shape()
	for z := 0; z < s[0]; z++ {
		for y := 0; y < s[1]; y++ {
			for x := 0; x < s[2]; x++ {
				label := vol.At(z, y, x)
				if label == 0 {
					continue
				}
				if !byID[label].Contains(z, y, x) {
					t.Errorf("voxel (%d,%d,%d) of label %d outside %v\n", z, y, x, label, byID[label])
				}
			}
		}
	}
}

func TestBoundingBoxRequestedIDs(t *testing.T) {
	vol := NewEmptyVolume(Shape{3, 4, 5})
	vol.Fill(BoundingBox{ZMin: 0, ZMax: 1, YMin: 1, YMax: 2, XMin: 3, XMax: 4}, 8)
	vol.Set(2, 3, 0, 3)

	boxes, err := ComputeBoundingBoxes(vol, []uint64{8, 50, 3}, BoxOptions{Count: true})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if len(boxes) != 3 || boxes[0].ID != 8 || boxes[1].ID != 50 || boxes[2].ID != 3 {
		t.Fatalf("boxes not in requested order: %v\n", boxes)
	}
	expected := BoundingBox{ID: 8, ZMin: 0, ZMax: 1, YMin: 1, YMax: 2, XMin: 3, XMax: 4, Count: 8}
	if boxes[0] != expected {
		t.Errorf("expected %v, got %v\n", expected, boxes[0])
	}
	if !boxes[1].Empty() || boxes[1].ZMax != -1 || boxes[1].ZMin != 3 || boxes[1].Count != 0 {
		t.Errorf("expected undefined box for absent label, got %v\n", boxes[1])
	}
	expected = BoundingBox{ID: 3, ZMin: 2, ZMax: 2, YMin: 3, YMax: 3, XMin: 0, XMax: 0, Count: 1}
	if boxes[2] != expected {
		t.Errorf("expected %v, got %v\n", expected, boxes[2])
	}

	boxes, err = ComputeBoundingBoxes(vol, []uint64{}, BoxOptions{})
	if err != nil || len(boxes) != 0 {
		t.Errorf("expected no boxes for empty id list, got %v, %v\n", boxes, err)
	}
}

func TestBoundingBoxesLargeIDs(t *testing.T) {
	big := uint64(1) << 45
	vol := NewEmptyVolume(Shape{2, 3, 4})
	vol.Set(0, 2, 1, big)
	vol.Set(1, 0, 3, big)
	boxes, err := ComputeBoundingBoxes(vol, nil, BoxOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	expected := BoundingBox{ID: big, ZMin: 0, ZMax: 1, YMin: 0, YMax: 2, XMin: 1, XMax: 3}
	if len(boxes) != 1 || boxes[0] != expected {
		t.Errorf("expected %v, got %v\n", expected, boxes)
	}
}
