// Package texture decodes images into tightly packed RGBA pixels ready
// for upload.
package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes the file at path. With flip set the rows are reversed
// so the first row is the bottom of the picture, as OpenGL expects.
func LoadImage(path string, flip bool) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open texture %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode texture %s: %w", path, err)
	}

	rgba := ToRGBA(img)
	if flip {
		rgba = VFlip(rgba)
	}
	return rgba, nil
}

// ToRGBA converts any image to a zero-origin RGBA image.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// VFlip vertically flips the provided RGBA image.
func VFlip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}

// Scale resizes the image with a Catmull-Rom filter.
func Scale(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Fit scales src down, keeping its aspect ratio, so that neither side is
// larger than limit. src is returned as is when it already fits.
func Fit(src *image.RGBA, limit int) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return src
	}
	if w >= h {
		w, h = limit, h*limit/w
	} else {
		w, h = w*limit/h, limit
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Scale(src, w, h)
}

// Checkerboard is the stand-in texture used when no image can be loaded.
func Checkerboard(width, height, cell int) *image.RGBA {
	if cell <= 0 {
		cell = 1
	}
	light := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	dark := color.RGBA{R: 60, G: 60, B: 60, A: 255}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := dark
			if (x/cell+y/cell)%2 == 0 {
				c = light
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// MipLevels is the length of a full mip chain for the given size.
func MipLevels(width, height int) int {
	m := width
	if height > m {
		m = height
	}
	if m <= 0 {
		return 0
	}
	return int(math.Floor(math.Log2(float64(m)))) + 1
}
