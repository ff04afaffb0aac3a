// Package testcard provides a frame source drawing colour bars with a moving
// marker and a frame counter.
package testcard

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
)

// Bars are the 75% colour bars, left to right.
var Bars = []color.RGBA{
	{R: 191, G: 191, B: 191, A: 255}, // grey
	{R: 191, G: 191, B: 0, A: 255},   // yellow
	{R: 0, G: 191, B: 191, A: 255},   // cyan
	{R: 0, G: 191, B: 0, A: 255},     // green
	{R: 191, G: 0, B: 191, A: 255},   // magenta
	{R: 191, G: 0, B: 0, A: 255},     // red
	{R: 0, G: 0, B: 191, A: 255},     // blue
}

// Theme controls the overlay drawn on top of the bars.
type Theme struct {
	Label      string
	TextColor  color.Color
	BandColor  color.Color
	Marker     color.Color
	FontPath   string
	FontSize   float64
	ShowMarker bool
}

// DefaultTheme returns the default overlay.
func DefaultTheme() Theme {
	return Theme{
		Label:      "vidout",
		TextColor:  color.White,
		BandColor:  color.RGBA{R: 16, G: 16, B: 16, A: 255},
		Marker:     color.White,
		FontSize:   24,
		ShowMarker: true,
	}
}

// Source implements ports.FrameSource.
type Source struct {
	renderer ports.Renderer
	theme    Theme

	mu     sync.Mutex
	bars   image.Image
	barsWH image.Point
}

// New creates a test card source drawing through renderer.
func New(renderer ports.Renderer, theme Theme) *Source {
	return &Source{renderer: renderer, theme: theme}
}

// Fill draws the card for seq and packs it into frame.
func (s *Source) Fill(ctx context.Context, frame *ports.RawFrame, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rawimage.Supported(frame.Descriptor.Format) {
		return fmt.Errorf("%w: test card cannot be drawn as %s", ports.ErrUnsupportedFormat, frame.Descriptor.Format)
	}
	return rawimage.Write(frame, s.Draw(frame.Descriptor.Width, frame.Descriptor.Height, seq))
}

// Draw renders the card for seq at the given size.
func (s *Source) Draw(w, h int, seq uint64) image.Image {
	canvas := s.renderer.CreateCanvas(w, h, color.Black)
	canvas.DrawImage(s.background(w, h), 0, 0)

	band := h / 6
	top := h - band

	// Centre cross and the 90% safe area.
	cx, cy := w/2, top/2
	arm := min(w, top) / 8
	canvas.DrawLine(cx-arm, cy, cx+arm, cy, s.theme.TextColor, 1)
	canvas.DrawLine(cx, cy-arm, cx, cy+arm, s.theme.TextColor, 1)
	canvas.DrawRectStroke(w/20, h/20, w-w/10, h-h/10, s.theme.TextColor, 1)

	canvas.DrawRect(0, top, w, band, s.theme.BandColor)

	if s.theme.ShowMarker && w > 0 {
		size := band / 2
		x := int(seq*4) % max(w-size, 1)
		canvas.DrawRoundedRect(x, top+band/4, size, size, size/4, s.theme.Marker)
	}

	style := ports.TextStyle{
		FontSize: s.theme.FontSize,
		FontPath: s.theme.FontPath,
		Color:    s.theme.TextColor,
		Align:    ports.AlignCenter,
	}
	canvas.DrawText(fmt.Sprintf("%s #%d", s.theme.Label, seq), cx, cy+arm+10, style)

	return canvas.ToImage()
}

// background returns the bars image for the size, drawing it once per size.
func (s *Source) background(w, h int) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bars != nil && s.barsWH == (image.Point{X: w, Y: h}) {
		return s.bars
	}

	canvas := s.renderer.CreateCanvas(w, h, color.Black)
	n := len(Bars)
	for i, c := range Bars {
		x0 := i * w / n
		x1 := (i + 1) * w / n
		canvas.DrawRect(x0, 0, x1-x0, h, c)
	}
	s.bars = canvas.ToImage()
	s.barsWH = image.Point{X: w, Y: h}
	return s.bars
}

// Ensure Source implements ports.FrameSource
var _ ports.FrameSource = (*Source)(nil)
