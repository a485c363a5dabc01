package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"
)

// Volume files start with a fixed header followed by a serialized payload:
//
//	magic "LVOL" | version uint8 | element type uint8 | channels uint16 |
//	depth uint32 | height uint32 | width uint32 | payload
//
// All integers are little-endian.  The payload is core.SerializeData output
// holding the voxel values in z-major order, one channel after another.
const (
	volumeMagic      = "LVOL"
	volumeVersion    = 1
	volumeHeaderSize = 20
)

// ElemType is the stored type of each voxel value.
type ElemType uint8

const (
	Uint8 ElemType = iota + 1
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float32
)

var elemTypeNames = map[ElemType]string{
	Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
	Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
	Float32: "float32",
}

func (t ElemType) String() string {
	if name, found := elemTypeNames[t]; found {
		return name
	}
	return fmt.Sprintf("unknown element type %d", uint8(t))
}

// Size returns the number of bytes per value.
func (t ElemType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64:
		return 8
	default:
		return 0
	}
}

func (t ElemType) signed() bool {
	return t >= Int8 && t <= Int64
}

// LabelElemType returns the smallest unsigned type that holds the given label.
func LabelElemType(maxLabel uint64) ElemType {
	switch {
	case maxLabel <= math.MaxUint8:
		return Uint8
	case maxLabel <= math.MaxUint16:
		return Uint16
	case maxLabel <= math.MaxUint32:
		return Uint32
	default:
		return Uint64
	}
}

type volumeHeader struct {
	elemType ElemType
	channels int
	shape    labels.Shape
}

func (h volumeHeader) numValues() int {
	n := h.shape.NumVoxels()
	if h.channels > 0 {
		n *= h.channels
	}
	return n
}

func encodeVolume(h volumeHeader, raw []byte, compress core.Compression) ([]byte, error) {
	payload, err := core.SerializeData(raw, compress, core.CRC32)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(volumeHeaderSize + len(payload))
	buf.WriteString(volumeMagic)
	buf.WriteByte(volumeVersion)
	buf.WriteByte(byte(h.elemType))
	var hdr [14]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(h.channels))
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(hdr[2+4*i:6+4*i], uint32(h.shape[i]))
	}
	buf.Write(hdr[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

func decodeVolume(data []byte) (volumeHeader, []byte, error) {
	var h volumeHeader
	if len(data) < volumeHeaderSize {
		return h, nil, fmt.Errorf("volume data only %d bytes, too short for header", len(data))
	}
	if string(data[0:4]) != volumeMagic {
		return h, nil, fmt.Errorf("volume data does not start with %q", volumeMagic)
	}
	if data[4] != volumeVersion {
		return h, nil, fmt.Errorf("unsupported volume format version %d", data[4])
	}
	h.elemType = ElemType(data[5])
	if h.elemType.Size() == 0 {
		return h, nil, fmt.Errorf("volume has %s", h.elemType)
	}
	h.channels = int(binary.LittleEndian.Uint16(data[6:8]))
	for i := 0; i < 3; i++ {
		h.shape[i] = int(binary.LittleEndian.Uint32(data[8+4*i : 12+4*i]))
	}
	raw, _, err := core.DeserializeData(data[volumeHeaderSize:], true)
	if err != nil {
		return h, nil, err
	}
	if expected := h.numValues() * h.elemType.Size(); len(raw) != expected {
		return h, nil, fmt.Errorf("volume %s of %s needs %d bytes, got %d", h.shape, h.elemType, expected, len(raw))
	}
	return h, raw, nil
}

// EncodeLabels serializes a label volume using the given element type, which
// must be an integer type wide enough for every label.
func EncodeLabels(vol *labels.Volume, elemType ElemType, compress core.Compression) ([]byte, error) {
	if elemType == Float32 || elemType.Size() == 0 {
		return nil, fmt.Errorf("labels cannot be stored as %s", elemType)
	}
	bits := uint(8 * elemType.Size())
	if elemType.signed() {
		bits--
	}
	maxLabel := vol.MaxLabel()
	if bits < 64 && maxLabel >= 1<<bits {
		return nil, fmt.Errorf("label %d does not fit in %s", maxLabel, elemType)
	}

	src := vol.Data()
	size := elemType.Size()
	raw := make([]byte, len(src)*size)
	for i, label := range src {
		b := raw[i*size : (i+1)*size]
		switch size {
		case 1:
			b[0] = uint8(label)
		case 2:
			binary.LittleEndian.PutUint16(b, uint16(label))
		case 4:
			binary.LittleEndian.PutUint32(b, uint32(label))
		case 8:
			binary.LittleEndian.PutUint64(b, label)
		}
	}
	h := volumeHeader{elemType: elemType, shape: vol.Shape()}
	return encodeVolume(h, raw, compress)
}

// DecodeLabels deserializes a label volume of any integer element type.
// Negative labels give an error wrapping labels.ErrInvalidLabel.
func DecodeLabels(data []byte) (*labels.Volume, error) {
	h, raw, err := decodeVolume(data)
	if err != nil {
		return nil, err
	}
	if h.elemType == Float32 {
		return nil, fmt.Errorf("volume of %s values cannot hold labels", h.elemType)
	}
	if h.channels != 0 {
		return nil, fmt.Errorf("label volume cannot have channels, found %d", h.channels)
	}
	n := h.numValues()
	switch h.elemType {
	case Uint8:
		return labels.VolumeFromInts(h.shape, raw)
	case Uint16:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }))
	case Uint32:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }))
	case Uint64:
		return labels.NewVolume(h.shape, decodeInts(raw, n, func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }))
	case Int8:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) int8 { return int8(b[0]) }))
	case Int16:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) }))
	case Int32:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }))
	case Int64:
		return labels.VolumeFromInts(h.shape, decodeInts(raw, n, func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }))
	}
	return nil, fmt.Errorf("unhandled element type %s", h.elemType)
}

func decodeInts[T labels.Integer](raw []byte, n int, get func([]byte) T) []T {
	size := len(raw) / max(n, 1)
	out := make([]T, n)
	for i := range out {
		out[i] = get(raw[i*size : (i+1)*size])
	}
	return out
}

// EncodeHeatmap serializes a heatmap as float32 values.
func EncodeHeatmap(h *labels.Heatmap, compress core.Compression) ([]byte, error) {
	src := h.Data()
	raw := make([]byte, 4*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	hdr := volumeHeader{elemType: Float32, channels: h.Channels(), shape: h.Shape()}
	return encodeVolume(hdr, raw, compress)
}

// DecodeHeatmap deserializes a float32 heatmap.
func DecodeHeatmap(data []byte) (*labels.Heatmap, error) {
	h, raw, err := decodeVolume(data)
	if err != nil {
		return nil, err
	}
	if h.elemType != Float32 {
		return nil, fmt.Errorf("heatmap must hold float32 values, found %s", h.elemType)
	}
	values := make([]float32, h.numValues())
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return labels.NewHeatmap(h.shape, h.channels, values)
}

// ReadLabels reads and decodes a label volume from a storage reference.
func ReadLabels(ctx context.Context, ref string) (*labels.Volume, error) {
	data, err := ReadAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	vol, err := DecodeLabels(data)
	if err != nil {
		return nil, fmt.Errorf("label volume %q: %w", ref, err)
	}
	return vol, nil
}

// ReadHeatmap reads and decodes a heatmap from a storage reference.
func ReadHeatmap(ctx context.Context, ref string) (*labels.Heatmap, error) {
	data, err := ReadAll(ctx, ref)
	if err != nil {
		return nil, err
	}
	h, err := DecodeHeatmap(data)
	if err != nil {
		return nil, fmt.Errorf("heatmap %q: %w", ref, err)
	}
	return h, nil
}

// WriteLabels stores a label volume using the smallest element type for its labels.
func WriteLabels(ctx context.Context, ref string, vol *labels.Volume, compress core.Compression) error {
	data, err := EncodeLabels(vol, LabelElemType(vol.MaxLabel()), compress)
	if err != nil {
		return err
	}
	return WriteAll(ctx, ref, data)
}

// WriteHeatmap stores a heatmap.
func WriteHeatmap(ctx context.Context, ref string, h *labels.Heatmap, compress core.Compression) error {
	data, err := EncodeHeatmap(h, compress)
	if err != nil {
		return err
	}
	return WriteAll(ctx, ref, data)
}
