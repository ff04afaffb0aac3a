package rawimage

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/user/vidout/pkg/ports"
)

func newFrame(format ports.PixelFormat, w, h int) *ports.RawFrame {
	d := ports.FrameDescriptor{Width: w, Height: h, Format: format}
	return &ports.RawFrame{Descriptor: d, Pix: make([]byte, d.FrameSize())}
}

func fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func TestWriteToImage_RoundTrip(t *testing.T) {
	orange := color.RGBA{R: 240, G: 128, B: 16, A: 255}

	tests := []struct {
		format ports.PixelFormat
		tol    int
		grey   bool
	}{
		{ports.PixelRGBA, 0, false},
		{ports.PixelRGB24, 0, false},
		{ports.PixelBGR24, 0, false},
		{ports.PixelRGB565, 8, false},
		{ports.PixelYUYV, 4, false},
		{ports.PixelGrey, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			frame := newFrame(tt.format, 8, 4)
			frame.Len = 0
			if err := Write(frame, fill(8, 4, orange)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if frame.Len != frame.Descriptor.FrameSize() {
				t.Errorf("expected Len %d, got %d", frame.Descriptor.FrameSize(), frame.Len)
			}

			img, err := ToImage(frame)
			if err != nil {
				t.Fatalf("ToImage failed: %v", err)
			}
			if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
				t.Fatalf("expected 8x4, got %v", img.Bounds())
			}

			got := color.RGBAModel.Convert(img.At(3, 2)).(color.RGBA)
			want := orange
			if tt.grey {
				yy, _, _ := color.RGBToYCbCr(orange.R, orange.G, orange.B)
				want = color.RGBA{R: yy, G: yy, B: yy, A: 255}
			}
			if !near(got.R, want.R, tt.tol) || !near(got.G, want.G, tt.tol) || !near(got.B, want.B, tt.tol) {
				t.Errorf("expected about %v, got %v", want, got)
			}
		})
	}
}

func TestWrite_ByteLayout(t *testing.T) {
	src := fill(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	bgr := newFrame(ports.PixelBGR24, 2, 1)
	Write(bgr, src)
	if bgr.Pix[0] != 3 || bgr.Pix[1] != 2 || bgr.Pix[2] != 1 {
		t.Errorf("expected B,G,R order, got %v", bgr.Pix[:3])
	}

	white := newFrame(ports.PixelRGB565, 2, 1)
	Write(white, fill(2, 1, color.White))
	if white.Pix[0] != 0xff || white.Pix[1] != 0xff {
		t.Errorf("expected 0xffff for white, got %x %x", white.Pix[0], white.Pix[1])
	}

	yuyv := newFrame(ports.PixelYUYV, 2, 1)
	Write(yuyv, fill(2, 1, color.Black))
	// Y0 U Y1 V for black: luma 0, neutral chroma.
	if yuyv.Pix[0] != 0 || yuyv.Pix[1] != 128 || yuyv.Pix[2] != 0 || yuyv.Pix[3] != 128 {
		t.Errorf("unexpected YUYV bytes for black: %v", yuyv.Pix)
	}
}

func TestWrite_Scales(t *testing.T) {
	frame := newFrame(ports.PixelRGB24, 4, 4)
	if err := Write(frame, fill(40, 20, color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	for i := 0; i < 16; i++ {
		if frame.Pix[i*3+1] < 250 || frame.Pix[i*3] > 5 {
			t.Fatalf("pixel %d: expected green, got %v", i, frame.Pix[i*3:i*3+3])
		}
	}
}

func TestUnsupported(t *testing.T) {
	bayer := newFrame(ports.PixelBayer, 4, 4)
	if err := Write(bayer, fill(4, 4, color.White)); !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ToImage(bayer); !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if Supported(ports.PixelBayer) {
		t.Error("expected BA81 to be unsupported")
	}

	if _, err := ToImage(nil); !errors.Is(err, ports.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}

	short := newFrame(ports.PixelRGBA, 4, 4)
	short.Pix = short.Pix[:10]
	if err := Write(short, fill(4, 4, color.White)); err == nil {
		t.Error("expected error for short buffer")
	}
}
