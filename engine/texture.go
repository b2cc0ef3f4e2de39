// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// loadImage decodes the image file at path into RGBA.
// If path is the empty string, it returns a 1x1 white
// image. Images larger than maxSize in either dimension
// are scaled down, preserving the aspect ratio.
func loadImage(path string, maxSize int) (*image.RGBA, error) {
	if path == "" {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
		return img, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "engine: opening texture")
	}
	defer file.Close()
	src, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "engine: decoding texture %s", path)
	}
	img := toRGBA(src, maxSize)
	b := img.Bounds()
	logger.Debugf("texture %s: %s, %dx%d", path, format, b.Dx(), b.Dy())
	return img, nil
}

// toRGBA converts src to a zero-based RGBA image that is
// at most maxSize pixels wide and tall.
// maxSize less than 1 means no limit.
func toRGBA(src image.Image, maxSize int) *image.RGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
		return dst
	}
	if img, ok := src.(*image.RGBA); ok && sb.Min == (image.Point{}) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
	return dst
}
