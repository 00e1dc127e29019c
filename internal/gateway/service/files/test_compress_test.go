package files

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachai/internal/gateway/service"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSmartParams(t *testing.T) {
	tests := []struct {
		size    int64
		quality float64
		ok      bool
	}{
		{size: 500 << 10, ok: false},
		{size: 500<<10 + 1, quality: 0.8, ok: true},
		{size: 2 << 20, quality: 0.8, ok: true},
		{size: 2<<20 + 1, quality: 0.7, ok: true},
		{size: 5<<20 + 1, quality: 0.6, ok: true},
	}
	for _, tt := range tests {
		p, ok := SmartParams(tt.size)
		assert.Equal(t, tt.ok, ok, "size=%d", tt.size)
		assert.Equal(t, tt.ok, NeedsCompression(tt.size), "size=%d", tt.size)
		if ok {
			assert.Equal(t, tt.quality, p.Quality, "size=%d", tt.size)
			assert.Equal(t, DefaultMaxDimension, p.MaxWidth)
			assert.Equal(t, DefaultMaxDimension, p.MaxHeight)
		}
	}
}

func TestCompressResizesToJPEG(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	src := testPNG(t, 400, 200)

	out, err := svc.Compress(src, CompressParams{Quality: 0.5, MaxWidth: 100, MaxHeight: 100})
	require.NoError(t, err)
	require.NotNil(t, out.Params)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	small, err := svc.Compress(src, CompressParams{Quality: 1, MaxWidth: 1920, MaxHeight: 1920})
	require.NoError(t, err)
	cfg, err = jpeg.DecodeConfig(bytes.NewReader(small.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
}

func TestCompressRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	src := testPNG(t, 8, 8)

	for _, q := range []float64{0, 0.09, 1.01} {
		_, err := svc.Compress(src, CompressParams{Quality: q, MaxWidth: 10, MaxHeight: 10})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr, "quality=%v", q)
		assert.Equal(t, "quality", verr.Field)
	}
	_, err := svc.Compress([]byte("not an image"), CompressParams{Quality: 0.5, MaxWidth: 10, MaxHeight: 10})
	assert.True(t, service.IsValidation(err), "got %v", err)

	_, err = svc.CompressUpload(Upload{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")}, nil)
	assert.True(t, service.IsValidation(err), "got %v", err)
}

func TestSmartCompressKeepsSmallImages(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	src := testPNG(t, 16, 16)

	out, err := svc.SmartCompress(src)
	require.NoError(t, err)
	assert.Nil(t, out.Params)
	assert.Equal(t, src, out.Data)
}

func TestCompressAndUpload(t *testing.T) {
	svc, store := newTestService(t, Config{})
	ctx := context.Background()
	src := testPNG(t, 300, 300)

	stored, out, err := svc.CompressAndUpload(ctx, Upload{Filename: "pose.png", ContentType: "image/png", Data: src},
		&CompressParams{Quality: 0.6, MaxWidth: 120, MaxHeight: 120})
	require.NoError(t, err)
	assert.Equal(t, "images/20250304050607_1a2b3c4d.jpg", stored.ObjectName)
	assert.Equal(t, "image/jpeg", stored.ContentType)
	got, err := store.Get(ctx, stored.ObjectName)
	require.NoError(t, err)
	assert.Equal(t, out.Data, got)

	kept, out, err := svc.CompressAndUpload(ctx, Upload{Filename: "pose.png", ContentType: "image/png", Data: src}, nil)
	require.NoError(t, err)
	assert.Nil(t, out.Params)
	assert.Equal(t, "image/png", kept.ContentType)
	assert.Equal(t, int64(len(src)), kept.Size)
}
