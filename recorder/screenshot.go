package recorder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/richinsley/asyncgl/texture"
)

// SavePNG writes a bottom-up frame as a PNG into dir and returns the path.
func SavePNG(dir string, f *Frame, now time.Time) (string, error) {
	if len(f.Pixels) != f.Width*f.Height*4 {
		return "", fmt.Errorf("frame has %d bytes, want %d", len(f.Pixels), f.Width*f.Height*4)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	img := &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	img = texture.VFlip(img)

	path := filepath.Join(dir, fmt.Sprintf("asyncgl-%s.png", now.Format("20060102-150405.000")))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return path, out.Close()
}
