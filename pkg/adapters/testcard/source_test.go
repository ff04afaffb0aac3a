package testcard

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/user/vidout/pkg/adapters/ggrenderer"
	"github.com/user/vidout/pkg/mocks"
	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
)

func frameFor(desc ports.FrameDescriptor) *ports.RawFrame {
	return &ports.RawFrame{Descriptor: desc, Pix: make([]byte, desc.FrameSize())}
}

func TestSource_DrawsBars(t *testing.T) {
	src := New(ggrenderer.New(), DefaultTheme())
	desc := ports.FrameDescriptor{Width: 140, Height: 60, Format: ports.PixelRGB24}
	frame := frameFor(desc)

	if err := src.Fill(context.Background(), frame, 0); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	img, err := rawimage.ToImage(frame)
	if err != nil {
		t.Fatalf("ToImage failed: %v", err)
	}
	// Second row, centre of each 20px bar, above the safe-area frame.
	for i, want := range Bars {
		got := color.RGBAModel.Convert(img.At(i*20+10, 1)).(color.RGBA)
		if got != want {
			t.Errorf("bar %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestSource_MarkerMoves(t *testing.T) {
	src := New(ggrenderer.New(), DefaultTheme())
	desc := ports.FrameDescriptor{Width: 64, Height: 48, Format: ports.PixelGrey}

	a, b := frameFor(desc), frameFor(desc)
	src.Fill(context.Background(), a, 0)
	src.Fill(context.Background(), b, 5)

	same := true
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected consecutive cards to differ")
	}
}

func TestSource_LabelsFrames(t *testing.T) {
	canvas := mocks.NewCanvas(32, 32, color.Black)
	renderer := &mocks.Renderer{}
	renderer.CreateCanvasFunc = func(w, h int, bg color.Color) ports.Canvas {
		// The first canvas is the card; the second holds the bars.
		if renderer.Calls("CreateCanvas") == 1 {
			return canvas
		}
		return mocks.NewCanvas(w, h, bg)
	}
	theme := DefaultTheme()
	theme.Label = "cam0"

	img := New(renderer, theme).Draw(32, 32, 42)

	if len(canvas.Texts) != 1 || canvas.Texts[0] != "cam0 #42" {
		t.Errorf("expected label \"cam0 #42\", got %v", canvas.Texts)
	}
	// Band is the bottom sixth; the marker advances 4px per frame.
	if got := color.RGBAModel.Convert(img.At(0, 31)); got != theme.BandColor {
		t.Errorf("expected band color, got %v", got)
	}
	markerX := 42 * 4 % (32 - 2)
	if got := color.GrayModel.Convert(img.At(markerX, 28)).(color.Gray); got.Y != 255 {
		t.Errorf("expected white marker at x=%d, got %v", markerX, got)
	}
	if renderer.Calls("CreateCanvas") != 2 {
		t.Errorf("expected card and bars canvases, got %d", renderer.Calls("CreateCanvas"))
	}
}

func TestSource_Errors(t *testing.T) {
	src := New(ggrenderer.New(), DefaultTheme())

	bayer := frameFor(ports.FrameDescriptor{Width: 8, Height: 8, Format: ports.PixelBayer})
	if err := src.Fill(context.Background(), bayer, 0); !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	grey := frameFor(ports.FrameDescriptor{Width: 8, Height: 8, Format: ports.PixelGrey})
	if err := src.Fill(ctx, grey, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
