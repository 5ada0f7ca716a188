package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func twoRows() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	img.SetRGBA(1, 1, color.RGBA{B: 255, A: 255})
	return img
}

func TestVFlip(t *testing.T) {
	f := VFlip(twoRows())
	if f.RGBAAt(0, 0).B != 255 || f.RGBAAt(1, 1).R != 255 {
		t.Errorf("rows were not swapped: %v", f.Pix)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, enc func(*os.File) error) string {
		p := filepath.Join(dir, name)
		f, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if err := enc(f); err != nil {
			t.Fatal(err)
		}
		return p
	}
	pngPath := write("a.png", func(f *os.File) error { return png.Encode(f, twoRows()) })
	bmpPath := write("a.bmp", func(f *os.File) error { return bmp.Encode(f, twoRows()) })

	tests := []struct {
		name    string
		path    string
		flip    bool
		topBlue bool
	}{
		{name: "png", path: pngPath},
		{name: "png flipped", path: pngPath, flip: true, topBlue: true},
		{name: "bmp", path: bmpPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := LoadImage(tt.path, tt.flip)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
				t.Fatalf("wrong size %v", img.Bounds())
			}
			if got := img.RGBAAt(0, 0).B == 255; got != tt.topBlue {
				t.Errorf("first row blue = %v, want %v", got, tt.topBlue)
			}
		})
	}
}

func TestLoadImageErrors(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.jpg"), true); err == nil {
		t.Error("want error for missing file")
	}
	junk := filepath.Join(t.TempDir(), "junk.jpg")
	if err := os.WriteFile(junk, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadImage(junk, false); err == nil {
		t.Error("want error for undecodable file")
	}
}

func TestToRGBAOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 8, 7))
	src.Set(5, 5, color.NRGBA{G: 255, A: 255})
	dst := ToRGBA(src)
	if dst.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("wrong bounds %v", dst.Bounds())
	}
	if dst.RGBAAt(0, 0).G != 255 {
		t.Errorf("origin pixel not copied: %v", dst.RGBAAt(0, 0))
	}
}

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(8, 8, 4)
	if img.RGBAAt(0, 0) == img.RGBAAt(4, 0) {
		t.Error("adjacent cells share a colour")
	}
	if img.RGBAAt(0, 0) != img.RGBAAt(4, 4) {
		t.Error("diagonal cells differ")
	}
}

func TestScale(t *testing.T) {
	img := Scale(Checkerboard(8, 8, 2), 4, 2)
	if img.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Errorf("wrong bounds %v", img.Bounds())
	}
}

func TestMipLevels(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{1, 1, 1},
		{2, 2, 2},
		{1920, 1080, 11},
		{1024, 1024, 11},
		{3, 17, 5},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := MipLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
		same         bool
	}{
		{64, 32, 128, 64, 32, true},
		{64, 32, 0, 64, 32, true},
		{256, 128, 64, 64, 32, false},
		{100, 400, 200, 50, 200, false},
		{4096, 2, 1024, 1024, 1, false},
	}
	for _, tt := range tests {
		src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
		dst := Fit(src, tt.max)
		if (dst == src) != tt.same {
			t.Errorf("Fit(%dx%d, %d) returned the source: %v", tt.w, tt.h, tt.max, dst == src)
		}
		if dst.Rect.Dx() != tt.wantW || dst.Rect.Dy() != tt.wantH {
			t.Errorf("Fit(%dx%d, %d) = %v, want %dx%d", tt.w, tt.h, tt.max, dst.Rect, tt.wantW, tt.wantH)
		}
	}
}
