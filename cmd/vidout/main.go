// Package main provides the CLI entry point for vidout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidout/pkg/adapters/devicesink"
	"github.com/user/vidout/pkg/adapters/filetransport"
	"github.com/user/vidout/pkg/adapters/ggrenderer"
	"github.com/user/vidout/pkg/adapters/imagesource"
	"github.com/user/vidout/pkg/adapters/logger"
	"github.com/user/vidout/pkg/adapters/mjpegtransport"
	"github.com/user/vidout/pkg/adapters/nullsink"
	"github.com/user/vidout/pkg/adapters/osfilesystem"
	"github.com/user/vidout/pkg/adapters/testcard"
	"github.com/user/vidout/pkg/config"
	"github.com/user/vidout/pkg/engine"
	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/rawimage"
	"github.com/user/vidout/pkg/summarizer"
)

var version = "dev"

// Flag categories
const (
	catStream  = "Stream"
	catSource  = "Source"
	catOutput  = "Output"
	catLogging = "Logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vidout",
		Usage:   l10n.T("Stream generated video frames to an output device"),
		Version: version,
		Commands: []*cli.Command{
			runCommand(),
			formatsCommand(),
			configCommand(),
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:        "run",
		Usage:       l10n.T("Stream frames to the configured backend"),
		Description: l10n.T("Negotiate a format, then fill and send frames until the frame limit is reached or the stream is interrupted."),
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},

			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Category: l10n.T(catStream), Usage: l10n.T("Output backend (null, file, mjpeg)")},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Category: l10n.T(catStream), Usage: l10n.T("Frame format, e.g. \"YUYV 640x480 @ 30\"")},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Category: l10n.T(catStream), Usage: l10n.T("Number of frames to send (0 = until interrupted)")},
			&cli.BoolFlag{Name: "no-pace", Category: l10n.T(catStream), Usage: l10n.T("Send frames as fast as the sink accepts them")},
			&cli.IntFlag{Name: "buffers", Category: l10n.T(catStream), Usage: l10n.T("Number of device buffers")},
			&cli.DurationFlag{Name: "acquire-timeout", Category: l10n.T(catStream), Usage: l10n.T("Maximum wait for a free buffer (0 = no limit)")},

			&cli.StringFlag{Name: "source", Category: l10n.T(catSource), Usage: l10n.T("Frame source (testcard, image)")},
			&cli.PathFlag{Name: "image", Aliases: []string{"i"}, Category: l10n.T(catSource), Usage: l10n.T("Image file or directory to play (implies --source image)")},
			&cli.IntFlag{Name: "hold", Category: l10n.T(catSource), Usage: l10n.T("Frames to show each image")},
			&cli.StringFlag{Name: "label", Category: l10n.T(catSource), Usage: l10n.T("Text shown on the test card")},
			&cli.PathFlag{Name: "font", Category: l10n.T(catSource), Usage: l10n.T("TrueType font for the test card label")},

			&cli.PathFlag{Name: "out-dir", Aliases: []string{"o"}, Category: l10n.T(catOutput), Usage: l10n.T("Directory for the file backend")},
			&cli.BoolFlag{Name: "png", Category: l10n.T(catOutput), Usage: l10n.T("Write PNG files instead of raw frames")},
			&cli.StringFlag{Name: "addr", Category: l10n.T(catOutput), Usage: l10n.T("Listen address for the mjpeg backend")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Category: l10n.T(catOutput), Usage: l10n.T("JPEG quality for the mjpeg backend (1-100)")},
			&cli.PathFlag{Name: "summary", Aliases: []string{"s"}, Category: l10n.T(catOutput), Usage: l10n.T("Write a session summary (.md or .yaml)")},

			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: l10n.T(catLogging), Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Category: l10n.T(catLogging), Usage: l10n.T("Suppress all log output")},
			&cli.BoolFlag{Name: "timestamps", Category: l10n.T(catLogging), Usage: l10n.T("Prefix log lines with the time")},
		},
		Action: runAction,
	}
}

func formatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: l10n.T("List supported pixel formats"),
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "%-6s %-6s %s\n", "FOURCC", l10n.T("BYTES"), l10n.T("IMAGE"))
			for _, pf := range ports.PixelFormats() {
				convertible := l10n.T("no")
				if rawimage.Supported(pf) {
					convertible = l10n.T("yes")
				}
				fmt.Fprintf(w, "%-6s %-6d %s\n", pf, pf.BytesPerPixel(), convertible)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: l10n.T("Print the effective configuration as YAML"),
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(data)
			return err
		},
	}
}

// loadConfig reads --config when given, otherwise the defaults.
func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.Path("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Defaults(), nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("frames") {
		cfg.Frames = c.Int("frames")
	}
	if c.Bool("no-pace") {
		cfg.Pace = false
	}
	if c.IsSet("buffers") {
		cfg.Buffers = c.Int("buffers")
	}
	if c.IsSet("acquire-timeout") {
		cfg.AcquireTimeout = c.Duration("acquire-timeout")
	}

	if c.IsSet("source") {
		cfg.Source.Kind = c.String("source")
	}
	if c.IsSet("image") {
		cfg.Source.Kind = config.SourceImage
		cfg.Source.Path = c.Path("image")
	}
	if c.IsSet("hold") {
		cfg.Source.Hold = c.Int("hold")
	}
	if c.IsSet("label") {
		cfg.Source.Label = c.String("label")
	}
	if c.IsSet("font") {
		cfg.Source.FontPath = c.Path("font")
	}

	if c.IsSet("out-dir") {
		cfg.File.Dir = c.Path("out-dir")
	}
	if c.Bool("png") {
		cfg.File.PNG = true
	}
	if c.IsSet("addr") {
		cfg.MJPEG.Addr = c.String("addr")
	}
	if c.IsSet("quality") {
		cfg.MJPEG.Quality = c.Int("quality")
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
}

// outputs holds the sink chosen for a run and the concrete adapters behind it.
type outputs struct {
	sink   ports.OutputSink
	device *devicesink.Sink          // nil for the null backend
	server *mjpegtransport.Transport // non-nil for the mjpeg backend
}

func newOutputs(cfg config.Config, fs ports.FileSystem, renderer ports.Renderer, log ports.Logger) outputs {
	var transport ports.Transport
	var out outputs

	switch cfg.Backend {
	case config.BackendFile:
		ft := filetransport.New(cfg.File.Dir, fs, renderer, log)
		if cfg.File.PNG {
			ft.WithPNG()
		}
		transport = ft
	case config.BackendMJPEG:
		out.server = mjpegtransport.New(renderer, log,
			mjpegtransport.WithQuality(cfg.MJPEG.Quality),
			mjpegtransport.WithClientBuffer(cfg.MJPEG.ClientBuffer),
		)
		transport = out.server
	default:
		out.sink = nullsink.New(log)
		return out
	}

	out.device = devicesink.New(transport, log,
		devicesink.WithBufferCount(cfg.Buffers),
		devicesink.WithAcquireTimeout(cfg.AcquireTimeout),
		devicesink.WithLimits(cfg.SinkLimits()),
	)
	out.sink = out.device
	return out
}

func newSource(cfg config.Config, fs ports.FileSystem, renderer ports.Renderer, log ports.Logger) (ports.FrameSource, error) {
	if cfg.Source.Kind == config.SourceImage {
		return imagesource.New(fs, renderer, log, cfg.Source.Path, imagesource.WithHold(cfg.Source.Hold))
	}
	return testcard.New(renderer, cfg.TestCardTheme()), nil
}

func describeSource(cfg config.Config) string {
	if cfg.Source.Kind == config.SourceImage {
		return cfg.Source.Kind + ":" + cfg.Source.Path
	}
	return cfg.Source.Kind
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)
	requested := cfg.Format
	_, adjusted := cfg.FitFormat()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create logger
	level, _ := ports.ParseLogLevel(cfg.LogLevel)
	if c.Bool("quiet") {
		level = ports.LevelQuiet
	}
	var log ports.Logger
	if level == ports.LevelQuiet {
		log = logger.NewNoop()
	} else {
		console := logger.NewConsole(level)
		if c.Bool("timestamps") {
			console = console.WithTimestamps()
		}
		log = console
	}
	if adjusted {
		log.Warn("Format %s adjusted to %s to fit the size limits", requested, cfg.Format)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, aborting stream...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	source, err := newSource(cfg, fs, renderer, log)
	if err != nil {
		return err
	}
	out := newOutputs(cfg, fs, renderer, log)

	serveErr := make(chan error, 1)
	serveCtx, stopServe := context.WithCancel(ctx)
	if out.server != nil {
		go func() {
			serveErr <- out.server.ListenAndServe(serveCtx, cfg.MJPEG.Addr)
			// The stream is pointless without the server.
			cancel()
		}()
	}

	engineConfig, err := cfg.ToEngineConfig()
	if err != nil {
		stopServe()
		return err
	}

	res, runErr := engine.New(out.sink, source, log).Run(ctx, engineConfig)

	stopServe()
	if out.server != nil {
		if err := <-serveErr; err != nil && runErr == nil {
			runErr = fmt.Errorf("mjpeg server: %w", err)
		}
	}

	if path := c.Path("summary"); path != "" {
		if err := writeSummary(path, fs, cfg, out, res, runErr); err != nil {
			log.Error("Failed to write summary: %v", err)
		} else {
			log.Info("Summary saved to %s", path)
		}
	}

	return runErr
}

func writeSummary(path string, fs ports.FileSystem, cfg config.Config, out outputs, res engine.RunResult, runErr error) error {
	settings := summarizer.Settings{
		Backend:    cfg.Backend,
		Source:     describeSource(cfg),
		FrameLimit: cfg.Frames,
		Pace:       cfg.Pace,
	}
	b := summarizer.NewBuilder().WithResult(res, runErr)
	if out.device != nil {
		settings.Buffers = cfg.Buffers
		b.WithSession(out.device.LastSession()).WithBufferStats(out.device.Stats())
	}
	b.WithSettings(settings)
	return summarizer.NewWriter(summarizer.ForPath(path), fs).Write(path, b.Build())
}
