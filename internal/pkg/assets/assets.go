// Package assets prepares the images embedded in reports: the company logo,
// normalized to PNG, and the QR mark of the report number.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	"report-service-go/internal/pkg/cache"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrLogoUnavailable means the logo file is missing or cannot be decoded.
// Renderers substitute a text mark.
var ErrLogoUnavailable = errors.New("logo unavailable")

// MaxLogoHeight bounds the logo in pixels; larger images are scaled down.
const MaxLogoHeight = 240

// Image is a PNG with its pixel size.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Loader caches prepared images by source.
type Loader struct {
	cache *cache.Cache
}

// NewLoader creates a Loader whose entries live for ttl.
func NewLoader(ttl time.Duration) *Loader {
	return &Loader{cache: cache.NewCache(ttl)}
}

// NewLoaderWithCache uses an existing cache.
func NewLoaderWithCache(c *cache.Cache) *Loader {
	return &Loader{cache: c}
}

// Close releases the cache.
func (l *Loader) Close() {
	l.cache.Close()
}

// Logo reads the image at path (PNG, JPEG, GIF or WebP) and returns it as PNG no
// taller than MaxLogoHeight.
func (l *Loader) Logo(ctx context.Context, path string) (Image, error) {
	if path == "" {
		return Image{}, fmt.Errorf("%w: no path configured", ErrLogoUnavailable)
	}

	buf, err := l.cache.GetOrLoad(ctx, "logo:"+path, func(context.Context) ([]byte, error) {
		return loadLogo(path)
	})
	if err != nil {
		return Image{}, err
	}
	return decodeSize(buf)
}

// QRCode encodes text as a square QR PNG of px pixels.
func (l *Loader) QRCode(ctx context.Context, text string, px int) (Image, error) {
	key := fmt.Sprintf("qr:%d:%s", px, text)
	buf, err := l.cache.GetOrLoad(ctx, key, func(context.Context) ([]byte, error) {
		return encodeQR(text, px)
	})
	if err != nil {
		return Image{}, err
	}
	return Image{PNG: buf, Width: px, Height: px}, nil
}

func loadLogo(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogoUnavailable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrLogoUnavailable, path, err)
	}

	b := img.Bounds()
	if b.Dy() > MaxLogoHeight {
		w := b.Dx() * MaxLogoHeight / b.Dy()
		if w < 1 {
			w = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, MaxLogoHeight))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		img = dst
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode logo: %w", err)
	}
	return out.Bytes(), nil
}

func encodeQR(text string, px int) ([]byte, error) {
	if text == "" {
		return nil, errors.New("qr: empty content")
	}
	code, err := qr.Encode(text, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	code, err = barcode.Scale(code, px, px)
	if err != nil {
		return nil, fmt.Errorf("qr scale: %w", err)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, code); err != nil {
		return nil, fmt.Errorf("qr png: %w", err)
	}
	return out.Bytes(), nil
}

func decodeSize(buf []byte) (Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrLogoUnavailable, err)
	}
	return Image{PNG: buf, Width: cfg.Width, Height: cfg.Height}, nil
}
