package labels

import (
	"fmt"
)

// Shape is the size of a volume along (depth, height, width).
type Shape [3]int

// NumVoxels returns the number of voxels in a volume of this shape.
func (s Shape) NumVoxels() int {
	return s[0] * s[1] * s[2]
}

func (s Shape) String() string {
	return fmt.Sprintf("%d x %d x %d", s[0], s[1], s[2])
}

func (s Shape) valid() error {
	if s[0] < 0 || s[1] < 0 || s[2] < 0 {
		return fmt.Errorf("bad volume shape %s", s)
	}
	return nil
}

// Integer is any Go integer type that can hold a label.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Volume is a label volume stored z-major, i.e., the label at (z, y, x) is at
// index (z*H + y)*W + x.  The engine only reads volumes.
type Volume struct {
	shape Shape
	data  []uint64
}

// NewVolume wraps the given labels without copying them.
func NewVolume(shape Shape, data []uint64) (*Volume, error) {
	if err := shape.valid(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumVoxels() {
		return nil, fmt.Errorf("volume of shape %s needs %d labels, got %d", shape, shape.NumVoxels(), len(data))
	}
	return &Volume{shape: shape, data: data}, nil
}

// NewEmptyVolume returns an all-background volume of the given shape.
func NewEmptyVolume(shape Shape) *Volume {
	if shape.valid() != nil {
		shape = Shape{}
	}
	return &Volume{shape: shape, data: make([]uint64, shape.NumVoxels())}
}

// VolumeFromInts converts integer labels of any width into a Volume, failing
// with ErrInvalidLabel if a negative label is found.
func VolumeFromInts[T Integer](shape Shape, data []T) (*Volume, error) {
	if err := shape.valid(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumVoxels() {
		return nil, fmt.Errorf("volume of shape %s needs %d labels, got %d", shape, shape.NumVoxels(), len(data))
	}
	labels := make([]uint64, len(data))
	for i, v := range data {
		if v < 0 {
			return nil, fmt.Errorf("label %d at voxel index %d: %w", int64(v), i, ErrInvalidLabel)
		}
		labels[i] = uint64(v)
	}
	return &Volume{shape: shape, data: labels}, nil
}

// Shape returns the (depth, height, width) of the volume.
func (v *Volume) Shape() Shape {
	return v.shape
}

// Data returns the underlying labels in z-major order.  Callers own the volume
// and must not change the returned slice while any matching is in progress.
func (v *Volume) Data() []uint64 {
	return v.data
}

func (v *Volume) index(z, y, x int) int {
	return (z*v.shape[1]+y)*v.shape[2] + x
}

// At returns the label at (z, y, x).
func (v *Volume) At(z, y, x int) uint64 {
	return v.data[v.index(z, y, x)]
}

// Set changes the label at (z, y, x).
func (v *Volume) Set(z, y, x int, label uint64) {
	v.data[v.index(z, y, x)] = label
}

// Fill sets every voxel in the inclusive box to label.  It is a convenience for
// building volumes and is never called by the matching engine.
func (v *Volume) Fill(b BoundingBox, label uint64) {
	for z := b.ZMin; z <= b.ZMax; z++ {
		for y := b.YMin; y <= b.YMax; y++ {
			i := v.index(z, y, b.XMin)
			for x := b.XMin; x <= b.XMax; x++ {
				v.data[i] = label
				i++
			}
		}
	}
}

// Crop returns a new volume holding a copy of the voxels within the inclusive
// bounds of the box.  An empty box gives an empty volume.
func (v *Volume) Crop(b BoundingBox) *Volume {
	if b.Empty() {
		return NewEmptyVolume(Shape{})
	}
	size := b.Size()
	out := make([]uint64, 0, size.NumVoxels())
	for z := b.ZMin; z <= b.ZMax; z++ {
		for y := b.YMin; y <= b.YMax; y++ {
			i := v.index(z, y, b.XMin)
			out = append(out, v.data[i:i+size[2]]...)
		}
	}
	return &Volume{shape: size, data: out}
}

// MaxLabel returns the largest label in the volume.
func (v *Volume) MaxLabel() uint64 {
	var max uint64
	for _, label := range v.data {
		if label > max {
			max = label
		}
	}
	return max
}

func (v *Volume) String() string {
	return fmt.Sprintf("label volume %s", v.shape)
}

// Heatmap is a per-voxel float32 confidence volume with an optional leading
// channel axis.  Channels == 0 means the heatmap has no channel axis.
type Heatmap struct {
	shape    Shape
	channels int
	data     []float32
}

// NewHeatmap wraps confidence values without copying.  With channels > 0 the data
// holds channel after channel, each a z-major volume of the given shape.
func NewHeatmap(shape Shape, channels int, data []float32) (*Heatmap, error) {
	if err := shape.valid(); err != nil {
		return nil, err
	}
	if channels < 0 {
		return nil, fmt.Errorf("bad heatmap channel count %d", channels)
	}
	n := shape.NumVoxels()
	if channels > 0 {
		n *= channels
	}
	if len(data) != n {
		return nil, fmt.Errorf("heatmap of shape %s with %d channels needs %d values, got %d", shape, channels, n, len(data))
	}
	return &Heatmap{shape: shape, channels: channels, data: data}, nil
}

// Shape returns the spatial shape of the heatmap.
func (h *Heatmap) Shape() Shape {
	return h.shape
}

// Channels returns the number of channels or 0 if there is no channel axis.
func (h *Heatmap) Channels() int {
	return h.channels
}

// Data returns the underlying values.
func (h *Heatmap) Data() []float32 {
	return h.data
}
