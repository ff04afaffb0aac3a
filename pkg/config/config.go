// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidout/pkg/adapters/devicesink"
	"github.com/user/vidout/pkg/adapters/testcard"
	"github.com/user/vidout/pkg/engine"
	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/steprange"
)

// Backend names.
const (
	BackendNull  = "null"
	BackendFile  = "file"
	BackendMJPEG = "mjpeg"
)

// Source kinds.
const (
	SourceTestCard = "testcard"
	SourceImage    = "image"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("vidout: invalid configuration")

// Config represents the full configuration for vidout.
type Config struct {
	// Stream
	Backend string `yaml:"backend"`
	Format  string `yaml:"format"` // e.g. "YUYV 640x480 @ 30"
	Frames  int    `yaml:"frames"` // 0 streams until interrupted
	Pace    bool   `yaml:"pace"`

	// Buffering
	Buffers        int           `yaml:"buffers"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	Limits         LimitsConfig  `yaml:"limits"`

	Source SourceConfig `yaml:"source"`
	File   FileConfig   `yaml:"file"`
	MJPEG  MJPEGConfig  `yaml:"mjpeg"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// LimitsConfig restricts the formats the device sink accepts, as
// "min...step...max" ranges. An omitted or empty range is not checked.
type LimitsConfig struct {
	Width  steprange.StepRange[int]     `yaml:"width"`
	Height steprange.StepRange[int]     `yaml:"height"`
	FPS    steprange.StepRange[float64] `yaml:"fps"`
}

// SourceConfig selects and configures the frame source.
type SourceConfig struct {
	Kind      string `yaml:"kind"`
	Path      string `yaml:"path"` // image file or directory
	Hold      int    `yaml:"hold"` // frames per image
	Label     string `yaml:"label"`
	FontPath  string `yaml:"font_path"`
	TextColor string `yaml:"text_color"`
	BandColor string `yaml:"band_color"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Dir string `yaml:"dir"`
	PNG bool   `yaml:"png"`
}

// MJPEGConfig configures the MJPEG backend.
type MJPEGConfig struct {
	Addr         string `yaml:"addr"`
	Quality      int    `yaml:"quality"`
	ClientBuffer int    `yaml:"client_buffer"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend: BackendNull,
		Format:  "YUYV 640x480 @ 30",
		Pace:    true,

		Buffers: devicesink.DefaultBufferCount,
		Limits: LimitsConfig{
			Width:  steprange.MustNew(2, 2, 7680),
			Height: steprange.MustNew(2, 2, 4320),
		},

		Source: SourceConfig{
			Kind:      SourceTestCard,
			Hold:      1,
			Label:     "vidout",
			TextColor: "#ffffff",
			BandColor: "#101010",
		},
		File: FileConfig{
			Dir: "./frames",
		},
		MJPEG: MJPEGConfig{
			Addr:         ":8080",
			Quality:      85,
			ClientBuffer: 2,
		},

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// YAML returns the configuration as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Descriptor parses the configured format.
func (c Config) Descriptor() (ports.FrameDescriptor, error) {
	return ports.ParseFrameDescriptor(c.Format)
}

// SinkLimits returns the limits for the device sink.
func (c Config) SinkLimits() devicesink.Limits {
	return devicesink.Limits{
		Width:  c.Limits.Width,
		Height: c.Limits.Height,
		FPS:    c.Limits.FPS,
	}
}

// FitFormat snaps the width and height of the configured format onto the
// size limits and rewrites Format when either changed. A format that does
// not parse is left for Validate to report.
func (c *Config) FitFormat() (ports.FrameDescriptor, bool) {
	desc, err := c.Descriptor()
	if err != nil {
		return desc, false
	}

	fitted := desc
	if c.Limits.Width != (steprange.StepRange[int]{}) && !c.Limits.Width.IsValueValid(desc.Width) {
		fitted.Width = c.Limits.Width.Clamp(desc.Width)
	}
	if c.Limits.Height != (steprange.StepRange[int]{}) && !c.Limits.Height.IsValueValid(desc.Height) {
		fitted.Height = c.Limits.Height.Clamp(desc.Height)
	}
	if fitted == desc {
		return desc, false
	}

	c.Format = fitted.String()
	if fitted.FrameRate.IsZero() {
		c.Format = fmt.Sprintf("%s %dx%d", fitted.Format, fitted.Width, fitted.Height)
	}
	return fitted, true
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	switch c.Backend {
	case BackendNull, BackendFile, BackendMJPEG:
	default:
		add("unknown backend %q", c.Backend)
	}

	desc, err := c.Descriptor()
	if err != nil {
		add("format: %w", err)
	} else if err := c.SinkLimits().Check(desc); err != nil {
		add("format: %w", err)
	}

	if c.Frames < 0 {
		add("frames must not be negative")
	}
	if c.Buffers < 1 {
		add("buffers must be at least 1")
	}
	if c.AcquireTimeout < 0 {
		add("acquire_timeout must not be negative")
	}

	switch c.Source.Kind {
	case SourceTestCard:
	case SourceImage:
		if c.Source.Path == "" {
			add("source.path is required for image sources")
		}
	default:
		add("unknown source kind %q", c.Source.Kind)
	}

	if c.Backend == BackendFile && c.File.Dir == "" {
		add("file.dir is required for the file backend")
	}
	if c.Backend == BackendMJPEG {
		if c.MJPEG.Addr == "" {
			add("mjpeg.addr is required for the mjpeg backend")
		}
		if c.MJPEG.Quality < 1 || c.MJPEG.Quality > 100 {
			add("mjpeg.quality must be within 1...100, got %d", c.MJPEG.Quality)
		}
	}

	if _, err := ports.ParseLogLevel(c.LogLevel); err != nil {
		add("log_level: %v", err)
	}

	return errors.Join(errs...)
}

// ToEngineConfig converts Config to engine.Config.
func (c Config) ToEngineConfig() (engine.Config, error) {
	desc, err := c.Descriptor()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Descriptor: desc,
		MaxFrames:  c.Frames,
		Pace:       c.Pace,
	}, nil
}

// TestCardTheme returns the test card overlay described by the source section.
func (c Config) TestCardTheme() testcard.Theme {
	theme := testcard.DefaultTheme()
	theme.Label = c.Source.Label
	theme.FontPath = c.Source.FontPath
	if c.Source.TextColor != "" {
		theme.TextColor = ParseColor(c.Source.TextColor)
		theme.Marker = theme.TextColor
	}
	if c.Source.BandColor != "" {
		theme.BandColor = ParseColor(c.Source.BandColor)
	}
	return theme
}

// ParseColor parses a "#rrggbb" hex color. Malformed input yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[i*2])<<4 | hexValue(hex[i*2+1])
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
