package files

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"path"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"coachai/internal/gateway/service"
)

const (
	DefaultMaxDimension = 1920
	MinQuality          = 0.1
	MaxQuality          = 1.0

	// CompressThreshold is the size above which SmartCompress re-encodes.
	CompressThreshold = 500 << 10
)

// CompressParams controls one re-encode. The output always fits inside
// MaxWidth x MaxHeight and keeps the aspect ratio.
type CompressParams struct {
	Quality   float64 `json:"quality"`
	MaxWidth  int     `json:"maxWidth"`
	MaxHeight int     `json:"maxHeight"`
}

func (p CompressParams) validate() error {
	if p.Quality < MinQuality || p.Quality > MaxQuality {
		return service.Invalid("quality", "must be between %.1f and %.1f", MinQuality, MaxQuality)
	}
	if p.MaxWidth <= 0 || p.MaxHeight <= 0 {
		return service.Invalid("maxWidth/maxHeight", "must be positive")
	}
	return nil
}

// Compressed is the outcome of a compression. Params is nil when the input
// was returned unchanged.
type Compressed struct {
	Data   []byte
	Params *CompressParams
}

// NeedsCompression reports whether SmartCompress would re-encode an input of
// size bytes.
func NeedsCompression(size int64) bool {
	return size > CompressThreshold
}

// SmartParams picks the quality for an input of size bytes. It returns false
// when the input is small enough to keep.
func SmartParams(size int64) (CompressParams, bool) {
	p := CompressParams{MaxWidth: DefaultMaxDimension, MaxHeight: DefaultMaxDimension}
	switch {
	case size > 5<<20:
		p.Quality = 0.6
	case size > 2<<20:
		p.Quality = 0.7
	case NeedsCompression(size):
		p.Quality = 0.8
	default:
		return p, false
	}
	return p, true
}

// Compress decodes a GIF, PNG, JPEG or WebP image, shrinks it to fit the
// bounds and re-encodes it as JPEG.
func (s *Service) Compress(data []byte, p CompressParams) (*Compressed, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, service.Invalid("file", "unreadable image: %v", err)
	}
	dst := fitWithin(src, p.MaxWidth, p.MaxHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(p.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	b := dst.Bounds()
	log.Printf("files: compressed format=%s in=%d out=%d size=%dx%d quality=%.2f",
		format, len(data), buf.Len(), b.Dx(), b.Dy(), p.Quality)
	return &Compressed{Data: buf.Bytes(), Params: &p}, nil
}

// SmartCompress keeps inputs at or under CompressThreshold and otherwise
// compresses with SmartParams.
func (s *Service) SmartCompress(data []byte) (*Compressed, error) {
	p, ok := SmartParams(int64(len(data)))
	if !ok {
		log.Printf("files: compression skipped bytes=%d", len(data))
		return &Compressed{Data: data}, nil
	}
	return s.Compress(data, p)
}

// CompressUpload compresses an image upload without storing it. A nil params
// selects SmartCompress.
func (s *Service) CompressUpload(up Upload, params *CompressParams) (*Compressed, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(up.ContentType)), "image/") {
		return nil, service.Invalid("file", "unsupported file type %q, expected an image", up.ContentType)
	}
	if len(up.Data) == 0 {
		return nil, service.Invalid("file", "file is empty")
	}
	if params == nil {
		return s.SmartCompress(up.Data)
	}
	return s.Compress(up.Data, *params)
}

// CompressAndUpload stores the CompressUpload result under the image prefix.
// Inputs kept as-is are stored with their own type.
func (s *Service) CompressAndUpload(ctx context.Context, up Upload, params *CompressParams) (*Stored, *Compressed, error) {
	out, err := s.CompressUpload(up, params)
	if err != nil {
		return nil, nil, err
	}
	stored := up
	stored.Data = out.Data
	if out.Params != nil {
		stored.ContentType = "image/jpeg"
		stored.Filename = strings.TrimSuffix(up.Filename, path.Ext(up.Filename)) + ".jpg"
	}
	saved, err := s.upload(ctx, stored, s.cfg.Paths.Images, imageCacheControl)
	if err != nil {
		return nil, nil, err
	}
	return saved, out, nil
}

// fitWithin flattens src onto white, scaling it down to fit maxW x maxH.
func fitWithin(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := w, h
	if w > maxW || h > maxH {
		scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
		nw, nh = max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if nw == w && nh == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func jpegQuality(q float64) int {
	return max(1, min(100, int(q*100+0.5)))
}
