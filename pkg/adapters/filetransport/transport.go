// Package filetransport provides a transport that writes every frame to a
// file, one directory per streaming session.
package filetransport

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
)

// ManifestName is the file written into each session directory on Close.
const ManifestName = "session.yaml"

// Manifest describes a recorded session.
type Manifest struct {
	Session   string    `yaml:"session"`
	Format    string    `yaml:"format"`
	Width     int       `yaml:"width"`
	Height    int       `yaml:"height"`
	FourCC    string    `yaml:"fourcc"`
	FrameRate string    `yaml:"frame_rate"`
	Encoding  string    `yaml:"encoding"`
	Frames    int       `yaml:"frames"`
	Started   time.Time `yaml:"started"`
	Finished  time.Time `yaml:"finished"`
}

// Transport implements ports.Transport on a ports.FileSystem.
type Transport struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
	encode   bool
	logger   ports.Logger

	mu       sync.Mutex
	dir      string
	desc     ports.FrameDescriptor
	manifest Manifest
}

// New creates a transport writing raw frames under baseDir.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger) *Transport {
	return &Transport{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("file"),
	}
}

// WithPNG makes the transport encode frames as PNG instead of raw bytes.
func (t *Transport) WithPNG() *Transport {
	t.encode = true
	return t
}

// Name returns "file".
func (t *Transport) Name() string {
	return "file"
}

// Supports accepts any valid format for raw output, and the convertible
// formats when encoding.
func (t *Transport) Supports(desc ports.FrameDescriptor) error {
	if t.encode && !rawimage.Supported(desc.Format) {
		return fmt.Errorf("%w: cannot encode %s as PNG", ports.ErrUnsupportedFormat, desc.Format)
	}
	return nil
}

// Open creates the session directory.
func (t *Transport) Open(ctx context.Context, desc ports.FrameDescriptor, session string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir := filepath.Join(t.baseDir, session)
	if err := t.fs.MkdirAll(dir); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	t.dir = dir
	t.desc = desc
	t.manifest = Manifest{
		Session:   session,
		Format:    desc.String(),
		Width:     desc.Width,
		Height:    desc.Height,
		FourCC:    desc.Format.String(),
		FrameRate: desc.FrameRate.String(),
		Encoding:  t.encoding(),
		Started:   time.Now().UTC(),
	}

	t.logger.Info("Writing frames to %s", dir)
	return nil
}

func (t *Transport) encoding() string {
	if t.encode {
		return "png"
	}
	return "raw"
}

// FrameName returns the file name of the n-th frame (0-based).
func FrameName(n int, desc ports.FrameDescriptor, encoded bool) string {
	ext := desc.Format.String()
	if encoded {
		ext = ports.FormatPNG.Extension()
	}
	return fmt.Sprintf("frame-%06d.%s", n, ext)
}

// Transmit writes one frame file.
func (t *Transport) Transmit(ctx context.Context, frame *ports.RawFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dir == "" {
		return fmt.Errorf("file transport is not open")
	}

	data := frame.Bytes()
	if t.encode {
		img, err := rawimage.ToImage(frame)
		if err != nil {
			return err
		}
		if data, err = t.renderer.EncodeImage(img, ports.FormatPNG, 0); err != nil {
			return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
		}
	}

	path := filepath.Join(t.dir, FrameName(t.manifest.Frames, t.desc, t.encode))
	if err := t.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	t.manifest.Frames++
	return nil
}

// Close writes the session manifest.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dir == "" {
		return nil
	}
	dir := t.dir
	t.dir = ""

	t.manifest.Finished = time.Now().UTC()
	data, err := yaml.Marshal(&t.manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return t.fs.WriteFile(filepath.Join(dir, ManifestName), data)
}

// ReadManifest loads the manifest of a session directory.
func ReadManifest(fs ports.FileSystem, dir string) (Manifest, error) {
	var m Manifest
	data, err := fs.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Ensure Transport implements ports.Transport
var _ ports.Transport = (*Transport)(nil)
