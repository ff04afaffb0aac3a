// Package imagesource provides a frame source that plays still images: a
// single file, or every PNG/JPEG in a directory as a slideshow.
package imagesource

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
)

// Source implements ports.FrameSource.
type Source struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger
	paths    []string
	hold     uint64

	mu      sync.Mutex
	decoded map[string]image.Image
	scaled  map[scaledKey]image.Image
}

type scaledKey struct {
	path string
	w, h int
}

// Option configures a Source.
type Option func(*Source)

// WithHold shows each image for n frames before moving to the next one.
func WithHold(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.hold = uint64(n)
		}
	}
}

// New creates a source for path. When path is a directory, its .png, .jpg and
// .jpeg files are played in name order.
func New(fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger, path string, opts ...Option) (*Source, error) {
	s := &Source{
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("imagesource"),
		hold:     1,
		decoded:  make(map[string]image.Image),
		scaled:   make(map[scaledKey]image.Image),
	}
	for _, opt := range opts {
		opt(s)
	}

	if names, err := fs.ListDir(path); err == nil {
		for _, name := range names {
			if isImage(name) {
				s.paths = append(s.paths, filepath.Join(path, name))
			}
		}
		if len(s.paths) == 0 {
			return nil, fmt.Errorf("no images in %s", path)
		}
	} else {
		ok, err := fs.Exists(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("image not found: %s", path)
		}
		s.paths = []string{path}
	}

	s.logger.Debug("Playing %d images from %s", len(s.paths), path)
	return s, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Len returns the number of images in the slideshow.
func (s *Source) Len() int {
	return len(s.paths)
}

// Fill writes the image due at seq into frame, scaled to the frame size.
func (s *Source) Fill(ctx context.Context, frame *ports.RawFrame, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.paths[(seq/s.hold)%uint64(len(s.paths))]
	img, err := s.image(path, frame.Descriptor.Width, frame.Descriptor.Height)
	if err != nil {
		return err
	}
	return rawimage.Write(frame, img)
}

// image returns path decoded and scaled to w x h, caching both steps.
func (s *Source) image(path string, w, h int) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scaledKey{path, w, h}
	if img, ok := s.scaled[key]; ok {
		return img, nil
	}

	src, ok := s.decoded[path]
	if !ok {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		src, err = s.renderer.DecodeImage(data, formatOf(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.decoded[path] = src
	}

	img := s.renderer.ResizeImage(src, w, h)
	s.scaled[key] = img
	return img, nil
}

func formatOf(path string) ports.ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ports.FormatPNG
	case ".jpg", ".jpeg":
		return ports.FormatJPEG
	}
	return ports.FormatAuto
}

// Ensure Source implements ports.FrameSource
var _ ports.FrameSource = (*Source)(nil)
