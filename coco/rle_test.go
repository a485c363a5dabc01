package coco

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRLEKnown(t *testing.T) {
	// 3x3 mask with only the center set: column-major runs 4, 1, 4.
	rle, err := EncodeRLE([]uint8{0, 0, 0, 0, 1, 0, 0, 0, 0}, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 3}, rle.Size)
	assert.Equal(t, "414", rle.Counts)

	rle, err = EncodeRLE([]uint8{1, 1, 1, 1}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "04", rle.Counts)

	// Column-major: first column is (1, 0), second is (1, 1).
	rle, err = EncodeRLE([]uint8{1, 1, 0, 1}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "0111", rle.Counts)

	_, err = EncodeRLE([]uint8{1, 1, 1}, 2, 2)
	assert.Error(t, err)
}

func TestCompressCounts(t *testing.T) {
	assert.Equal(t, "0:1I", compressCounts([]uint32{0, 10, 1, 3}))
	assert.Equal(t, "X1", compressCounts([]uint32{40}))

	counts, err := decompressCounts("0:1I")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 10, 1, 3}, counts)

	for _, bad := range []string{"X", "0\x01"} {
		_, err := decompressCounts(bad)
		assert.Error(t, err, bad)
	}
}

func TestRLERoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, size := range [][2]int{{1, 1}, {5, 3}, {17, 40}, {64, 64}} {
		h, w := size[0], size[1]
		mask := make([]uint8, h*w)
		var area int
		for i := range mask {
			if rng.Intn(3) == 0 {
				mask[i] = 1
				area++
			}
		}
		rle, err := EncodeRLE(mask, h, w)
		require.NoError(t, err)
		got, err := rle.Decode()
		require.NoError(t, err)
		assert.Equal(t, mask, got, "%d x %d", h, w)
		n, err := rle.Area()
		require.NoError(t, err)
		assert.Equal(t, area, n)
	}
}

func TestDecodeBadRLE(t *testing.T) {
	_, err := RLE{Size: [2]int{2, 2}, Counts: "05"}.Decode()
	assert.Error(t, err, "runs beyond mask")
	_, err = RLE{Size: [2]int{2, 2}, Counts: "03"}.Decode()
	assert.Error(t, err, "runs short of mask")
}
