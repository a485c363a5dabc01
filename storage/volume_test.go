package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLabels(t *testing.T, maxLabel uint64) *labels.Volume {
	shape := labels.Shape{3, 4, 5}
	data := make([]uint64, shape.NumVoxels())
	for i := range data {
		data[i] = uint64(i*7) % (maxLabel + 1)
	}
	data[len(data)-1] = maxLabel
	vol, err := labels.NewVolume(shape, data)
	require.NoError(t, err)
	return vol
}

func TestLabelsRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		elemType ElemType
		maxLabel uint64
	}{
		{Uint8, 200},
		{Uint16, 60000},
		{Uint32, 1 << 30},
		{Uint64, 1 << 50},
		{Int8, 100},
		{Int16, 30000},
		{Int32, 1 << 30},
		{Int64, 1 << 60},
	} {
		vol := testLabels(t, tc.maxLabel)
		for _, compress := range []core.Compression{core.Uncompressed, core.Snappy, core.Zstd, core.Gzip} {
			data, err := EncodeLabels(vol, tc.elemType, compress)
			require.NoError(t, err, "%s with %s", tc.elemType, compress)
			got, err := DecodeLabels(data)
			require.NoError(t, err, "%s with %s", tc.elemType, compress)
			assert.Equal(t, vol.Shape(), got.Shape())
			assert.Equal(t, vol.Data(), got.Data(), "%s with %s", tc.elemType, compress)
		}
	}
}

func TestEncodeLabelsTooNarrow(t *testing.T) {
	vol := testLabels(t, 300)
	_, err := EncodeLabels(vol, Uint8, core.Uncompressed)
	assert.Error(t, err)
	_, err = EncodeLabels(testLabels(t, 200), Int8, core.Uncompressed)
	assert.Error(t, err)
	_, err = EncodeLabels(vol, Float32, core.Uncompressed)
	assert.Error(t, err)
	assert.Equal(t, Uint16, LabelElemType(300))
	assert.Equal(t, Uint8, LabelElemType(0))
	assert.Equal(t, Uint64, LabelElemType(1<<40))
}

func TestDecodeNegativeLabels(t *testing.T) {
	// Encode non-negative int8 data, then flip one stored byte negative.
	vol, err := labels.NewVolume(labels.Shape{1, 1, 4}, []uint64{1, 2, 3, 4})
	require.NoError(t, err)
	data, err := EncodeLabels(vol, Int8, core.Uncompressed)
	require.NoError(t, err)
	// header, format byte, crc32, then values
	payload := data[volumeHeaderSize:]
	raw, _, err := core.DeserializeData(payload, true)
	require.NoError(t, err)
	raw[2] = 0xff
	payload, err = core.SerializeData(raw, core.Uncompressed, core.CRC32)
	require.NoError(t, err)
	data = append(data[:volumeHeaderSize:volumeHeaderSize], payload...)

	_, err = DecodeLabels(data)
	assert.ErrorIs(t, err, labels.ErrInvalidLabel)
}

func TestDecodeCorrupt(t *testing.T) {
	data, err := EncodeLabels(testLabels(t, 10), Uint8, core.Snappy)
	require.NoError(t, err)

	_, err = DecodeLabels(data[:10])
	assert.Error(t, err)

	bad := append([]byte{}, data...)
	copy(bad, "XVOL")
	_, err = DecodeLabels(bad)
	assert.Error(t, err)

	bad = append([]byte{}, data...)
	bad[len(bad)-1] ^= 0xff
	_, err = DecodeLabels(bad)
	assert.Error(t, err, "checksum should catch corrupted payload")

	h, _ := labels.NewHeatmap(labels.Shape{1, 2, 2}, 0, []float32{0, 1, 2, 3})
	hdata, err := EncodeHeatmap(h, core.Uncompressed)
	require.NoError(t, err)
	_, err = DecodeLabels(hdata)
	assert.Error(t, err, "heatmap should not decode as labels")
	_, err = DecodeHeatmap(data)
	assert.Error(t, err, "labels should not decode as heatmap")
}

func TestHeatmapRoundTrip(t *testing.T) {
	values := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2}
	h, err := labels.NewHeatmap(labels.Shape{1, 2, 3}, 2, values)
	require.NoError(t, err)
	data, err := EncodeHeatmap(h, core.Zstd)
	require.NoError(t, err)
	got, err := DecodeHeatmap(data)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Channels())
	assert.Equal(t, h.Shape(), got.Shape())
	assert.Equal(t, values, got.Data())
}

func TestReadWriteRefs(t *testing.T) {
	ctx := context.Background()
	vol := testLabels(t, 1000)
	h, err := labels.NewHeatmap(vol.Shape(), 0, make([]float32, vol.Shape().NumVoxels()))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, ref := range []string{
		filepath.Join(dir, "sub", "gt.lvol"),
		"file://" + filepath.ToSlash(dir) + "/gt2.lvol",
		"mem://volumes/gt.lvol",
	} {
		require.NoError(t, WriteLabels(ctx, ref, vol, core.Zstd), ref)
		got, err := ReadLabels(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, vol.Data(), got.Data(), ref)
	}

	require.NoError(t, WriteHeatmap(ctx, "mem://volumes/heat.lvol", h, core.Snappy))
	gotHeat, err := ReadHeatmap(ctx, "mem://volumes/heat.lvol")
	require.NoError(t, err)
	assert.Equal(t, h.Data(), gotHeat.Data())

	_, err = ReadLabels(ctx, "mem://volumes/missing.lvol")
	assert.Error(t, err)
}

func TestObjectVersion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, ref := range []string{
		filepath.Join(dir, "obj.bin"),
		"mem://versions/obj.bin",
	} {
		require.NoError(t, WriteAll(ctx, ref, []byte("first")), ref)
		v1, err := ObjectVersion(ctx, ref)
		require.NoError(t, err, ref)
		v2, err := ObjectVersion(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, v1, v2, ref)

		require.NoError(t, WriteAll(ctx, ref, []byte("second")), ref)
		v3, err := ObjectVersion(ctx, ref)
		require.NoError(t, err, ref)
		assert.NotEqual(t, v1, v3, ref)
	}
	_, err := ObjectVersion(ctx, "mem://versions/missing.bin")
	assert.Error(t, err)
}

func TestSplitRef(t *testing.T) {
	for _, tc := range []struct {
		ref, bucket, key string
	}{
		{"gs://my-bucket/evals/gt.lvol", "gs://my-bucket", "evals/gt.lvol"},
		{"s3://data/pred.lvol?region=us-east-2", "s3://data?region=us-east-2", "pred.lvol"},
		{"file:///tmp/vols/gt.lvol", "file:///tmp/vols", "gt.lvol"},
		{"mem://scratch/a/b", "mem://scratch", "a/b"},
		{"/var/data/heat.lvol", "file:///var/data", "heat.lvol"},
	} {
		bucket, key, err := SplitRef(tc.ref)
		require.NoError(t, err, tc.ref)
		assert.Equal(t, tc.bucket, bucket, tc.ref)
		assert.Equal(t, tc.key, key, tc.ref)
	}
	for _, ref := range []string{"", "gs://bucket-only", "ftp://host/file", "file:///tmp/dir/"} {
		_, _, err := SplitRef(ref)
		assert.Error(t, err, ref)
	}
}
