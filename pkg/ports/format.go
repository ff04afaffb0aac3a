package ports

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PixelFormat identifies the memory layout of a frame's pixels.
type PixelFormat int

const (
	PixelUnknown PixelFormat = iota
	PixelYUYV                // packed 4:2:2, 2 bytes per pixel
	PixelGrey                // 8-bit luma
	PixelRGB565              // 16-bit little-endian RGB
	PixelRGB24               // 8-bit R, G, B
	PixelBGR24               // 8-bit B, G, R
	PixelRGBA                // 8-bit R, G, B, A
	PixelBayer               // 8-bit BGGR mosaic
)

var pixelFormats = []struct {
	format PixelFormat
	fourcc string
	bpp    int
}{
	{PixelYUYV, "YUYV", 2},
	{PixelGrey, "GREY", 1},
	{PixelRGB565, "RGBP", 2},
	{PixelRGB24, "RGB3", 3},
	{PixelBGR24, "BGR3", 3},
	{PixelRGBA, "RGBA", 4},
	{PixelBayer, "BA81", 1},
}

// PixelFormats returns all known pixel formats.
func PixelFormats() []PixelFormat {
	out := make([]PixelFormat, 0, len(pixelFormats))
	for _, pf := range pixelFormats {
		out = append(out, pf.format)
	}
	return out
}

// String returns the FourCC of the format.
func (p PixelFormat) String() string {
	for _, pf := range pixelFormats {
		if pf.format == p {
			return pf.fourcc
		}
	}
	return "NONE"
}

// BytesPerPixel returns the storage size of one pixel, or 0 for unknown formats.
func (p PixelFormat) BytesPerPixel() int {
	for _, pf := range pixelFormats {
		if pf.format == p {
			return pf.bpp
		}
	}
	return 0
}

// ParsePixelFormat parses a FourCC (case-insensitive). A few common aliases are accepted.
func ParsePixelFormat(s string) (PixelFormat, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "GRAY", "Y8":
		name = "GREY"
	case "RGB565":
		name = "RGBP"
	case "RGB", "RGB24":
		name = "RGB3"
	case "BGR", "BGR24":
		name = "BGR3"
	case "BAYER":
		name = "BA81"
	}
	for _, pf := range pixelFormats {
		if pf.fourcc == name {
			return pf.format, nil
		}
	}
	return PixelUnknown, fmt.Errorf("%w: unknown pixel format %q", ErrUnsupportedFormat, s)
}

// Rational is a frame rate expressed as Num/Den frames per second.
// The zero value means "unspecified" and disables pacing.
type Rational struct {
	Num uint32
	Den uint32
}

// FPS returns a whole-number frame rate.
func FPS(n uint32) Rational {
	return Rational{Num: n, Den: 1}
}

// IsZero reports whether no frame rate was requested.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Float64 returns the frame rate in frames per second.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Interval returns the duration of one frame, or 0 when unspecified.
func (r Rational) Interval() time.Duration {
	if r.Num == 0 || r.Den == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) * float64(r.Den) / float64(r.Num))
}

// Equal reports whether both rates describe the same frame interval.
func (r Rational) Equal(o Rational) bool {
	if r.IsZero() || o.IsZero() {
		return r.IsZero() == o.IsZero()
	}
	return uint64(r.Num)*uint64(o.Den) == uint64(o.Num)*uint64(r.Den)
}

// String formats the rate as "num/den", or just "num" when den is 1.
func (r Rational) String() string {
	if r.Num == 0 || r.Den == 1 {
		return strconv.FormatUint(uint64(r.Num), 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational parses "30", "30000/1001" or "29.97".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 32)
		if err != nil {
			return Rational{}, fmt.Errorf("invalid frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseUint(strings.TrimSpace(den), 10, 32)
		if err != nil {
			return Rational{}, fmt.Errorf("invalid frame rate %q: %w", s, err)
		}
		if d == 0 {
			return Rational{}, fmt.Errorf("invalid frame rate %q: zero denominator", s)
		}
		return Rational{Num: uint32(n), Den: uint32(d)}.reduce(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > math.MaxUint32/1000 {
		return Rational{}, fmt.Errorf("invalid frame rate %q", s)
	}
	if f == math.Trunc(f) {
		return Rational{Num: uint32(f), Den: 1}, nil
	}
	return Rational{Num: uint32(math.Round(f * 1000)), Den: 1000}.reduce(), nil
}

func (r Rational) reduce() Rational {
	a, b := r.Num, r.Den
	for b != 0 {
		a, b = b, a%b
	}
	if a <= 1 {
		return r
	}
	return Rational{Num: r.Num / a, Den: r.Den / a}
}

// MaxFrameSize caps the bytes of one frame buffer (1 GiB).
const MaxFrameSize = 1 << 30

// FrameDescriptor is the negotiated format of a streaming session.
type FrameDescriptor struct {
	Width     int
	Height    int
	Format    PixelFormat
	FrameRate Rational
}

// Validate checks that the descriptor describes a non-empty image in a known format.
func (d FrameDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrUnsupportedFormat, d.Width, d.Height)
	}
	if d.Format.BytesPerPixel() == 0 {
		return fmt.Errorf("%w: unknown pixel format", ErrUnsupportedFormat)
	}
	// Divide instead of multiplying so huge sizes cannot overflow.
	if bpp := d.Format.BytesPerPixel(); d.Height > MaxFrameSize/bpp || d.Width > MaxFrameSize/bpp/d.Height {
		return fmt.Errorf("%w: %dx%d %s exceeds %d bytes per frame", ErrUnsupportedFormat, d.Width, d.Height, d.Format, MaxFrameSize)
	}
	if d.Format == PixelYUYV && d.Width%2 != 0 {
		return fmt.Errorf("%w: YUYV needs an even width, got %d", ErrUnsupportedFormat, d.Width)
	}
	if d.FrameRate.Num != 0 && d.FrameRate.Den == 0 {
		return fmt.Errorf("%w: invalid frame rate", ErrUnsupportedFormat)
	}
	return nil
}

// FrameSize returns the number of bytes one frame occupies.
func (d FrameDescriptor) FrameSize() int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

// Equal reports whether both descriptors negotiate the same format.
func (d FrameDescriptor) Equal(o FrameDescriptor) bool {
	return d.Width == o.Width && d.Height == o.Height && d.Format == o.Format &&
		d.FrameRate.Equal(o.FrameRate)
}

// String formats the descriptor as "YUYV 640x480 @ 30".
func (d FrameDescriptor) String() string {
	return fmt.Sprintf("%s %dx%d @ %s", d.Format, d.Width, d.Height, d.FrameRate)
}

// ParseFrameDescriptor parses "YUYV 640x480 @ 30". The frame rate part is optional.
func ParseFrameDescriptor(s string) (FrameDescriptor, error) {
	fields := strings.Fields(strings.ReplaceAll(s, "@", " @ "))
	if len(fields) != 2 && !(len(fields) == 4 && fields[2] == "@") {
		return FrameDescriptor{}, fmt.Errorf("invalid frame descriptor %q", s)
	}

	var d FrameDescriptor
	var err error
	if d.Format, err = ParsePixelFormat(fields[0]); err != nil {
		return FrameDescriptor{}, err
	}

	w, h, ok := strings.Cut(strings.ToLower(fields[1]), "x")
	if !ok {
		return FrameDescriptor{}, fmt.Errorf("invalid frame size %q", fields[1])
	}
	if d.Width, err = strconv.Atoi(w); err != nil {
		return FrameDescriptor{}, fmt.Errorf("invalid frame width %q: %w", w, err)
	}
	if d.Height, err = strconv.Atoi(h); err != nil {
		return FrameDescriptor{}, fmt.Errorf("invalid frame height %q: %w", h, err)
	}

	if len(fields) == 4 {
		if d.FrameRate, err = ParseRational(fields[3]); err != nil {
			return FrameDescriptor{}, err
		}
	}

	return d, d.Validate()
}
