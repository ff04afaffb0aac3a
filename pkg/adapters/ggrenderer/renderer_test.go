package ggrenderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/vidout/pkg/ports"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderer_CanvasDrawing(t *testing.T) {
	r := New()

	canvas := r.CreateCanvas(64, 48, color.Black)
	canvas.DrawRect(0, 0, 32, 48, color.RGBA{R: 255, A: 255})
	canvas.DrawLine(0, 40, 63, 40, color.White, 2)
	canvas.DrawText("vidout", 32, 24, ports.TextStyle{Color: color.White, Align: ports.AlignCenter})

	img := canvas.ToImage()
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("expected 64x48, got %v", img.Bounds())
	}

	r8, g8, _, _ := img.At(4, 4).RGBA()
	if r8>>8 != 255 || g8>>8 != 0 {
		t.Errorf("expected red fill at (4,4), got %v", img.At(4, 4))
	}
	r8, _, b8, _ := img.At(60, 4).RGBA()
	if r8 != 0 || b8 != 0 {
		t.Errorf("expected black background at (60,4), got %v", img.At(60, 4))
	}
}

func TestRenderer_DrawTextWithMissingFont(t *testing.T) {
	canvas := New().CreateCanvas(40, 20, color.Black)
	// Must not panic; the built-in face is used.
	canvas.DrawText("x", 0, 10, ports.TextStyle{FontPath: "/nonexistent.ttf", FontSize: 12, Color: color.White})
}

func TestRenderer_EncodeDecode(t *testing.T) {
	r := New()
	src := solid(50, 30, color.RGBA{G: 200, A: 255})

	tests := []struct {
		name   string
		encode ports.ImageFormat
		decode ports.ImageFormat
	}{
		{"jpeg", ports.FormatJPEG, ports.FormatJPEG},
		{"png", ports.FormatPNG, ports.FormatPNG},
		{"sniffed jpeg", ports.FormatJPEG, ports.FormatAuto},
		{"auto encodes png", ports.FormatAuto, ports.FormatPNG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.EncodeImage(src, tt.encode, 80)
			if err != nil {
				t.Fatalf("EncodeImage failed: %v", err)
			}
			img, err := r.DecodeImage(data, tt.decode)
			if err != nil {
				t.Fatalf("DecodeImage failed: %v", err)
			}
			if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 30 {
				t.Errorf("expected 50x30, got %v", img.Bounds())
			}
		})
	}
}

func TestRenderer_DecodeInvalid(t *testing.T) {
	if _, err := New().DecodeImage([]byte("not an image"), ports.FormatAuto); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	for _, r := range []*Renderer{New(), NewFast()} {
		src := solid(100, 50, color.RGBA{B: 255, A: 255})

		dst := r.ResizeImage(src, 20, 10)
		if dst.Bounds().Dx() != 20 || dst.Bounds().Dy() != 10 {
			t.Errorf("expected 20x10, got %v", dst.Bounds())
		}
		_, _, b, _ := dst.At(10, 5).RGBA()
		if b>>8 < 250 {
			t.Errorf("expected blue to survive scaling, got %v", dst.At(10, 5))
		}

		if same := r.ResizeImage(src, 100, 50); same != image.Image(src) {
			t.Error("expected image at target size to be returned unchanged")
		}
	}
}
