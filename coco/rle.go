package coco

import (
	"fmt"
	"strings"
)

// RLE is a compressed run-length encoded binary mask.  Size is (height, width)
// and Counts alternates runs of zeros and ones in column-major order, starting
// with zeros.
type RLE struct {
	Size   [2]int `json:"size"`
	Counts string `json:"counts"`
}

// EncodeRLE encodes a row-major h x w mask where any non-zero value is foreground.
func EncodeRLE(mask []uint8, h, w int) (RLE, error) {
	if h < 0 || w < 0 || len(mask) != h*w {
		return RLE{}, fmt.Errorf("mask of %d values is not %d x %d", len(mask), h, w)
	}
	var counts []uint32
	var run uint32
	var prev uint8
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var v uint8
			if mask[y*w+x] != 0 {
				v = 1
			}
			if v != prev {
				counts = append(counts, run)
				run, prev = 0, v
			}
			run++
		}
	}
	counts = append(counts, run)
	return RLE{Size: [2]int{h, w}, Counts: compressCounts(counts)}, nil
}

// compressCounts packs run lengths into the pycocotools ASCII format: each count,
// after the third stored as a difference from the count two before, goes out in
// 5-bit groups with a continuation bit, offset by '0'.
func compressCounts(counts []uint32) string {
	var b strings.Builder
	for i, cnt := range counts {
		x := int64(cnt)
		if i > 2 {
			x -= int64(counts[i-2])
		}
		for more := true; more; {
			c := x & 0x1f
			x >>= 5
			if c&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				c |= 0x20
			}
			b.WriteByte(byte(c + 48))
		}
	}
	return b.String()
}

// decompressCounts reverses compressCounts.
func decompressCounts(s string) ([]uint32, error) {
	var counts []uint32
	for p := 0; p < len(s); {
		var x int64
		var k uint
		for more := true; more; {
			if p >= len(s) {
				return nil, fmt.Errorf("truncated RLE counts %q", s)
			}
			c := int64(s[p]) - 48
			if c < 0 || c > 0x3f {
				return nil, fmt.Errorf("bad character %q in RLE counts", s[p])
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if m := len(counts); m > 2 {
			x += int64(counts[m-2])
		}
		if x < 0 {
			return nil, fmt.Errorf("negative run in RLE counts %q", s)
		}
		counts = append(counts, uint32(x))
	}
	return counts, nil
}

// Decode returns the row-major mask of the RLE.
func (r RLE) Decode() ([]uint8, error) {
	counts, err := decompressCounts(r.Counts)
	if err != nil {
		return nil, err
	}
	h, w := r.Size[0], r.Size[1]
	mask := make([]uint8, h*w)
	var pos int
	var v uint8
	for _, run := range counts {
		if pos+int(run) > h*w {
			return nil, fmt.Errorf("RLE runs exceed %d x %d mask", h, w)
		}
		if v == 1 {
			for i := pos; i < pos+int(run); i++ {
				mask[(i%h)*w+i/h] = 1
			}
		}
		pos += int(run)
		v ^= 1
	}
	if pos != h*w {
		return nil, fmt.Errorf("RLE runs cover %d of %d mask pixels", pos, h*w)
	}
	return mask, nil
}

// Area returns the number of foreground pixels.
func (r RLE) Area() (int, error) {
	counts, err := decompressCounts(r.Counts)
	if err != nil {
		return 0, err
	}
	var area int
	for i := 1; i < len(counts); i += 2 {
		area += int(counts[i])
	}
	return area, nil
}
