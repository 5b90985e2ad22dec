// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging validates uploaded images and downsizes oversized ones
// before they are stored. JPEG, PNG, GIF and WebP inputs are accepted.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// MaxWidth is the widest image kept as uploaded. Wider images are
	// scaled down to this width and re-encoded as JPEG.
	MaxWidth = 1920

	// jpegQuality is used when re-encoding a downsized image.
	jpegQuality = 85

	// maxImagePixels caps the number of pixels to prevent memory bombs.
	maxImagePixels = 100_000_000
)

// ErrNotImage is returned when the payload is not a decodable image.
var ErrNotImage = errors.New("not a supported image")

// Image is a validated upload ready for storage.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

var formats = map[string]struct {
	contentType string
	ext         string
}{
	"jpeg": {"image/jpeg", ".jpg"},
	"png":  {"image/png", ".png"},
	"gif":  {"image/gif", ".gif"},
	"webp": {"image/webp", ".webp"},
}

// Prepare checks that data is an image and downsizes it when it is wider
// than MaxWidth. GIFs are kept untouched to preserve animation.
func Prepare(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}
	f, ok := formats[format]
	if !ok {
		return nil, ErrNotImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNotImage, cfg.Width, cfg.Height, maxImagePixels)
	}

	img := &Image{Data: data, ContentType: f.contentType, Ext: f.ext, Width: cfg.Width, Height: cfg.Height}
	if cfg.Width <= MaxWidth || format == "gif" {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}
	resized, w, h, err := downscale(src, MaxWidth)
	if err != nil {
		return nil, err
	}
	return &Image{Data: resized, ContentType: "image/jpeg", Ext: ".jpg", Width: w, Height: h}, nil
}

// downscale resizes img to maxWidth preserving the aspect ratio and
// encodes the result as JPEG.
func downscale(img image.Image, maxWidth int) ([]byte, int, int, error) {
	bounds := img.Bounds()
	ratio := float64(maxWidth) / float64(bounds.Dx())
	w, h := maxWidth, int(float64(bounds.Dy())*ratio)
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), w, h, nil
}
