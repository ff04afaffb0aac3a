// Package rawimage converts between image.Image and the packed pixel layouts
// carried by output frames.
package rawimage

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/vidout/pkg/ports"
)

// Supported reports whether frames in format p can be converted.
func Supported(p ports.PixelFormat) bool {
	switch p {
	case ports.PixelYUYV, ports.PixelGrey, ports.PixelRGB565,
		ports.PixelRGB24, ports.PixelBGR24, ports.PixelRGBA:
		return true
	}
	return false
}

func check(frame *ports.RawFrame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ports.ErrInvalidHandle)
	}
	d := frame.Descriptor
	if !Supported(d.Format) {
		return fmt.Errorf("%w: no conversion for %s", ports.ErrUnsupportedFormat, d.Format)
	}
	if len(frame.Pix) < d.FrameSize() {
		return fmt.Errorf("rawimage: buffer holds %d bytes, %s needs %d", len(frame.Pix), d, d.FrameSize())
	}
	return nil
}

// toRGBA returns img as an RGBA image of exactly w x h, scaling when the
// sizes differ.
func toRGBA(img image.Image, w, h int) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && b.Dx() == w && b.Dy() == h {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	return dst
}

// Write packs img into frame in the frame's pixel format and sets frame.Len
// to the frame size. img is scaled to the frame size when needed.
func Write(frame *ports.RawFrame, img image.Image) error {
	if err := check(frame); err != nil {
		return err
	}
	d := frame.Descriptor
	src := toRGBA(img, d.Width, d.Height)
	dst := frame.Pix[:d.FrameSize()]

	for y := 0; y < d.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+d.Width*4]
		out := dst[y*d.Width*d.Format.BytesPerPixel():]

		switch d.Format {
		case ports.PixelRGBA:
			copy(out, row)
		case ports.PixelRGB24:
			for x := 0; x < d.Width; x++ {
				out[x*3], out[x*3+1], out[x*3+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		case ports.PixelBGR24:
			for x := 0; x < d.Width; x++ {
				out[x*3], out[x*3+1], out[x*3+2] = row[x*4+2], row[x*4+1], row[x*4]
			}
		case ports.PixelRGB565:
			for x := 0; x < d.Width; x++ {
				v := uint16(row[x*4])>>3<<11 | uint16(row[x*4+1])>>2<<5 | uint16(row[x*4+2])>>3
				out[x*2], out[x*2+1] = byte(v), byte(v>>8)
			}
		case ports.PixelGrey:
			for x := 0; x < d.Width; x++ {
				yy, _, _ := color.RGBToYCbCr(row[x*4], row[x*4+1], row[x*4+2])
				out[x] = yy
			}
		case ports.PixelYUYV:
			// Width is even for YUYV; chroma is averaged over each pixel pair.
			for x := 0; x < d.Width; x += 2 {
				y0, cb0, cr0 := color.RGBToYCbCr(row[x*4], row[x*4+1], row[x*4+2])
				y1, cb1, cr1 := color.RGBToYCbCr(row[x*4+4], row[x*4+5], row[x*4+6])
				out[x*2] = y0
				out[x*2+1] = byte((int(cb0) + int(cb1) + 1) / 2)
				out[x*2+2] = y1
				out[x*2+3] = byte((int(cr0) + int(cr1) + 1) / 2)
			}
		}
	}

	frame.Len = d.FrameSize()
	return nil
}

// ToImage unpacks the valid bytes of frame into a new image. The result does
// not alias the frame's buffer.
func ToImage(frame *ports.RawFrame) (image.Image, error) {
	if err := check(frame); err != nil {
		return nil, err
	}
	d := frame.Descriptor
	src := frame.Pix[:d.FrameSize()]
	rect := image.Rect(0, 0, d.Width, d.Height)

	switch d.Format {
	case ports.PixelGrey:
		img := image.NewGray(rect)
		copy(img.Pix, src)
		return img, nil

	case ports.PixelYUYV:
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio422)
		for y := 0; y < d.Height; y++ {
			row := src[y*d.Width*2:]
			for x := 0; x < d.Width; x += 2 {
				img.Y[y*img.YStride+x] = row[x*2]
				img.Y[y*img.YStride+x+1] = row[x*2+2]
				c := y*img.CStride + x/2
				img.Cb[c] = row[x*2+1]
				img.Cr[c] = row[x*2+3]
			}
		}
		return img, nil
	}

	img := image.NewRGBA(rect)
	bpp := d.Format.BytesPerPixel()
	for i := 0; i < d.Width*d.Height; i++ {
		p, o := src[i*bpp:], img.Pix[i*4:]
		switch d.Format {
		case ports.PixelRGBA:
			copy(o[:4], p[:4])
		case ports.PixelRGB24:
			o[0], o[1], o[2], o[3] = p[0], p[1], p[2], 0xff
		case ports.PixelBGR24:
			o[0], o[1], o[2], o[3] = p[2], p[1], p[0], 0xff
		case ports.PixelRGB565:
			v := uint16(p[0]) | uint16(p[1])<<8
			r, g, b := byte(v>>11), byte(v>>5&0x3f), byte(v&0x1f)
			o[0], o[1], o[2], o[3] = r<<3|r>>2, g<<2|g>>4, b<<3|b>>2, 0xff
		}
	}
	return img, nil
}
