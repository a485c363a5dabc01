package labels

import (
	"fmt"
)

// BoundingBox is the tight, inclusive, axis-aligned extent of one instance.
// A requested id with no voxels has min bounds at the axis length and max
// bounds at -1, so Empty() is true.
type BoundingBox struct {
	ID         uint64
	ZMin, ZMax int
	YMin, YMax int
	XMin, XMax int
	Count      uint64 // voxel count; only set when BoxOptions.Count is true
}

// Empty returns true if the box holds no voxels.
func (b BoundingBox) Empty() bool {
	return b.ZMin > b.ZMax || b.YMin > b.YMax || b.XMin > b.XMax
}

// Size returns the extent of the box along each axis.
func (b BoundingBox) Size() Shape {
	if b.Empty() {
		return Shape{}
	}
	return Shape{b.ZMax - b.ZMin + 1, b.YMax - b.YMin + 1, b.XMax - b.XMin + 1}
}

// Contains returns true if (z, y, x) lies within the box.
func (b BoundingBox) Contains(z, y, x int) bool {
	return z >= b.ZMin && z <= b.ZMax && y >= b.YMin && y <= b.YMax && x >= b.XMin && x <= b.XMax
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("label %d: z %d-%d, y %d-%d, x %d-%d", b.ID, b.ZMin, b.ZMax, b.YMin, b.YMax, b.XMin, b.XMax)
}

// BoxOptions modify bounding box computation.
type BoxOptions struct {
	// Count requests the voxel count of each instance.
	Count bool
}

// ComputeBoundingBoxes returns one box per id in ids, in the same order.  If ids is nil,
// boxes are returned for every positive label in the volume in ascending order.
//
// The volume is scanned once per axis rather than once per instance: the depth pass
// collects the instances present in each z slice, the row pass the instances present
// in each y plane, and the column pass extends x bounds while walking rows.  Planes
// without foreground are skipped after the first pass.
func ComputeBoundingBoxes(vol *Volume, ids []uint64, opts BoxOptions) ([]BoundingBox, error) {
	if vol == nil {
		return nil, fmt.Errorf("no volume given for bounding box computation")
	}
	if ids == nil {
		ids = IDs(Tally(vol))
	}
	ix := newIDIndex(uniquePositive(ids))
	ext := computeExtents(vol, ix, opts.Count)

	boxes := make([]BoundingBox, len(ids))
	for i, id := range ids {
		boxes[i] = ext.box(id, ix.slot(id), vol.shape)
	}
	return boxes, nil
}

// extents holds per-slot bounds, indexed by idIndex slot.
type extents struct {
	zmin, zmax []int
	ymin, ymax []int
	xmin, xmax []int
	counts     []uint64
}

func newExtents(n int, shape Shape, withCounts bool) *extents {
	ext := &extents{
		zmin: make([]int, n), zmax: make([]int, n),
		ymin: make([]int, n), ymax: make([]int, n),
		xmin: make([]int, n), xmax: make([]int, n),
	}
	for s := 0; s < n; s++ {
		ext.zmin[s], ext.zmax[s] = shape[0], -1
		ext.ymin[s], ext.ymax[s] = shape[1], -1
		ext.xmin[s], ext.xmax[s] = shape[2], -1
	}
	if withCounts {
		ext.counts = make([]uint64, n)
	}
	return ext
}

func (ext *extents) box(id uint64, slot int, shape Shape) BoundingBox {
	if slot < 0 {
		return BoundingBox{ID: id, ZMin: shape[0], ZMax: -1, YMin: shape[1], YMax: -1, XMin: shape[2], XMax: -1}
	}
	b := BoundingBox{
		ID:   id,
		ZMin: ext.zmin[slot], ZMax: ext.zmax[slot],
		YMin: ext.ymin[slot], YMax: ext.ymax[slot],
		XMin: ext.xmin[slot], XMax: ext.xmax[slot],
	}
	if ext.counts != nil {
		b.Count = ext.counts[slot]
	}
	return b
}

func computeExtents(vol *Volume, ix *idIndex, withCounts bool) *extents {
	nz, ny, nx := vol.shape[0], vol.shape[1], vol.shape[2]
	ext := newExtents(ix.len(), vol.shape, withCounts)
	if ix.len() == 0 {
		return ext
	}
	data := vol.data
	sliceSize := ny * nx

	// stamp[slot] marks the last plane in which a slot was seen, so each instance
	// is recorded once per plane.
	stamp := make([]int, ix.len())
	present := make([]int, 0, 64)

	// Depth pass, also recording which rows have any requested foreground.
	zHasFG := make([]bool, nz)
	yHasFG := make([]bool, ny)
	for z := 0; z < nz; z++ {
		present = present[:0]
		for y := 0; y < ny; y++ {
			row := z*sliceSize + y*nx
			for _, label := range data[row : row+nx] {
				if label == 0 {
					continue
				}
				slot := ix.slot(label)
				if slot < 0 {
					continue
				}
				yHasFG[y] = true
				if withCounts {
					ext.counts[slot]++
				}
				if stamp[slot] != z+1 {
					stamp[slot] = z + 1
					present = append(present, slot)
				}
			}
		}
		if len(present) == 0 {
			continue
		}
		zHasFG[z] = true
		for _, slot := range present {
			if ext.zmin[slot] > z {
				ext.zmin[slot] = z
			}
			ext.zmax[slot] = z
		}
	}

	// Row pass over (depth, width) planes at each y.
	for i := range stamp {
		stamp[i] = 0
	}
	for y := 0; y < ny; y++ {
		if !yHasFG[y] {
			continue
		}
		present = present[:0]
		for z := 0; z < nz; z++ {
			if !zHasFG[z] {
				continue
			}
			row := (z*ny + y) * nx
			for _, label := range data[row : row+nx] {
				if label == 0 {
					continue
				}
				slot := ix.slot(label)
				if slot < 0 || stamp[slot] == y+1 {
					continue
				}
				stamp[slot] = y + 1
				present = append(present, slot)
			}
		}
		for _, slot := range present {
			if ext.ymin[slot] > y {
				ext.ymin[slot] = y
			}
			ext.ymax[slot] = y
		}
	}

	// Column pass, walking rows in storage order and widening x bounds.
	for z := 0; z < nz; z++ {
		if !zHasFG[z] {
			continue
		}
		for y := 0; y < ny; y++ {
			if !yHasFG[y] {
				continue
			}
			row := (z*ny + y) * nx
			for x, label := range data[row : row+nx] {
				if label == 0 {
					continue
				}
				slot := ix.slot(label)
				if slot < 0 {
					continue
				}
				if ext.xmin[slot] > x {
					ext.xmin[slot] = x
				}
				if ext.xmax[slot] < x {
					ext.xmax[slot] = x
				}
			}
		}
	}
	return ext
}
