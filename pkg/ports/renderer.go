package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts drawing and still-image coding used around the sinks:
// test cards on the producer side, JPEG/PNG on the transport side.
type Renderer interface {
	// CreateCanvas creates a drawing canvas filled with the background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// DecodeImage decodes image data. FormatAuto sniffs the format.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image. Quality applies to JPEG only.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage scales an image to the given dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides the drawing operations needed for test cards.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawRoundedRect(x, y, w, h, radius int, c color.Color)
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)
	DrawLine(x1, y1, x2, y2 int, c color.Color, width float64)

	// DrawText draws text anchored at (x, y) according to style.Align.
	DrawText(text string, x, y int, style TextStyle)

	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string // optional TrueType font; the built-in face is used when empty
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies still-image encoding.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatAuto
)

// Extension returns the file extension for the format, without a dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	default:
		return "bin"
	}
}
