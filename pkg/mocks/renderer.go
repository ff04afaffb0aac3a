package mocks

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/user/vidout/pkg/ports"
)

// Renderer is a ports.Renderer double. Hooks left nil fall back to cheap
// defaults, and every call is counted per method.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	DecodeImageFunc  func(data []byte, format ports.ImageFormat) (image.Image, error)
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	mu    sync.Mutex
	calls map[string]int
}

func (m *Renderer) count(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how often method was called.
func (m *Renderer) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	m.count("CreateCanvas")
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return NewCanvas(width, height, bg)
}

// DecodeImage returns an 8x8 mid-grey image by default.
func (m *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	m.count("DecodeImage")
	if m.DecodeImageFunc != nil {
		return m.DecodeImageFunc(data, format)
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 128}), image.Point{}, draw.Src)
	return img, nil
}

// EncodeImage returns an empty JPEG (SOI, EOI) by default.
func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	m.count("EncodeImage")
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// ResizeImage stretches img with nearest-neighbour sampling by default.
func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	m.count("ResizeImage")
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst.Set(x, y, img.At(src.Min.X+x*src.Dx()/width, src.Min.Y+y*src.Dy()/height))
		}
	}
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a ports.Canvas double that fills rectangles and images for real
// and records text instead of rasterising it.
type Canvas struct {
	img *image.RGBA

	// Texts records every DrawText call.
	Texts []string
}

// NewCanvas creates a canvas filled with bg.
func NewCanvas(width, height int, bg color.Color) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if bg != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	return &Canvas{img: img}
}

func (m *Canvas) target() *image.RGBA {
	if m.img == nil {
		m.img = image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	return m.img
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {
	dst := m.target()
	r := img.Bounds().Sub(img.Bounds().Min).Add(image.Pt(x, y))
	draw.Draw(dst, r, img, img.Bounds().Min, draw.Over)
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {
	draw.Draw(m.target(), image.Rect(x, y, x+w, y+h), image.NewUniform(c), image.Point{}, draw.Over)
}

func (m *Canvas) DrawRoundedRect(x, y, w, h, radius int, c color.Color) {
	m.DrawRect(x, y, w, h, c)
}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, text)
}

func (m *Canvas) DrawLine(x1, y1, x2, y2 int, c color.Color, width float64) {}

func (m *Canvas) ToImage() image.Image {
	return m.target()
}

var _ ports.Canvas = (*Canvas)(nil)
