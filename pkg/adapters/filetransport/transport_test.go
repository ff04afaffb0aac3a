package filetransport

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/vidout/pkg/adapters/devicesink"
	"github.com/user/vidout/pkg/adapters/ggrenderer"
	"github.com/user/vidout/pkg/adapters/logger"
	"github.com/user/vidout/pkg/mocks"
	"github.com/user/vidout/pkg/ports"
)

var testBaseDir = filepath.Join("out")

var greyDesc = ports.FrameDescriptor{Width: 4, Height: 2, Format: ports.PixelGrey, FrameRate: ports.FPS(25)}

func TestTransport_RawFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	tr := New(testBaseDir, fs, &mocks.Renderer{}, logger.NewNoop())

	if err := tr.Open(context.Background(), greyDesc, "s1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		frame := &ports.RawFrame{Descriptor: greyDesc, Pix: bytes.Repeat([]byte{byte(i)}, 8), Len: 8}
		if err := tr.Transmit(context.Background(), frame); err != nil {
			t.Fatalf("Transmit failed: %v", err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		path := filepath.Join(testBaseDir, "s1", FrameName(i, greyDesc, false))
		data, ok := fs.File(path)
		if !ok {
			t.Fatalf("expected %s to be written", path)
		}
		if !bytes.Equal(data, bytes.Repeat([]byte{byte(i)}, 8)) {
			t.Errorf("%s: unexpected contents %v", path, data)
		}
	}

	m, err := ReadManifest(fs, filepath.Join(testBaseDir, "s1"))
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if m.Session != "s1" || m.Frames != 3 || m.FourCC != "GREY" || m.Encoding != "raw" || m.FrameRate != "25" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if m.Finished.Before(m.Started) {
		t.Errorf("finished %v before started %v", m.Finished, m.Started)
	}
}

func TestTransport_FrameNames(t *testing.T) {
	if got := FrameName(7, greyDesc, false); got != "frame-000007.GREY" {
		t.Errorf("unexpected raw name %s", got)
	}
	if got := FrameName(7, greyDesc, true); got != "frame-000007.png" {
		t.Errorf("unexpected png name %s", got)
	}
}

func TestTransport_PNG(t *testing.T) {
	fs := mocks.NewFileSystem()
	r := ggrenderer.New()
	tr := New(testBaseDir, fs, r, logger.NewNoop()).WithPNG()

	desc := ports.FrameDescriptor{Width: 4, Height: 2, Format: ports.PixelRGB24}
	if err := tr.Supports(desc); err != nil {
		t.Fatalf("expected RGB3 to be supported, got %v", err)
	}
	if err := tr.Supports(ports.FrameDescriptor{Width: 4, Height: 2, Format: ports.PixelBayer}); !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for BA81, got %v", err)
	}

	tr.Open(context.Background(), desc, "s2")
	frame := &ports.RawFrame{Descriptor: desc, Pix: bytes.Repeat([]byte{255, 0, 0}, 8), Len: 24}
	if err := tr.Transmit(context.Background(), frame); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}
	tr.Close()

	data, ok := fs.File(filepath.Join(testBaseDir, "s2", "frame-000000.png"))
	if !ok {
		t.Fatal("expected PNG frame to be written")
	}
	img, err := r.DecodeImage(data, ports.FormatPNG)
	if err != nil {
		t.Fatalf("decode written PNG: %v", err)
	}
	if red, _, _, _ := img.At(1, 1).RGBA(); red>>8 != 255 {
		t.Errorf("expected red pixel, got %v", img.At(1, 1))
	}
}

func TestTransport_TransmitBeforeOpen(t *testing.T) {
	tr := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{}, logger.NewNoop())
	frame := &ports.RawFrame{Descriptor: greyDesc, Pix: make([]byte, 8), Len: 8}
	if err := tr.Transmit(context.Background(), frame); err == nil {
		t.Error("expected error before Open")
	}
	if err := tr.Close(); err != nil {
		t.Errorf("expected Close without Open to be a no-op, got %v", err)
	}
}

func TestTransport_WriteFailureFaultsSink(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.FailWrites(errors.New("disk full"), 2)
	sink := devicesink.New(New(testBaseDir, fs, &mocks.Renderer{}, logger.NewNoop()), logger.NewNoop())

	if err := sink.SetFormat(greyDesc); err != nil {
		t.Fatal(err)
	}
	if err := sink.StreamOn(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		frame, err := sink.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		sink.Send(frame)
	}

	if err := sink.Drain(context.Background()); !errors.Is(err, ports.ErrDevice) {
		t.Errorf("expected ErrDevice, got %v", err)
	}
	sink.StreamOff()
	if fs.Writes() != 2 {
		t.Errorf("expected two frames written before the fault, got %d", fs.Writes())
	}
}

func TestTransport_WithDeviceSink(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := devicesink.New(New(testBaseDir, fs, &mocks.Renderer{}, logger.NewNoop()), logger.NewNoop(),
		devicesink.WithBufferCount(2))

	sink.SetFormat(greyDesc)
	if err := sink.StreamOn(); err != nil {
		t.Fatal(err)
	}
	session := sink.Session()
	for i := 0; i < 5; i++ {
		frame, err := sink.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		frame.Pix[0] = byte(i)
		sink.Send(frame)
	}
	if err := sink.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := sink.StreamOff(); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(fs, filepath.Join(testBaseDir, session))
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if m.Frames != 5 {
		t.Errorf("expected 5 frames in manifest, got %d", m.Frames)
	}
	data, _ := fs.File(filepath.Join(testBaseDir, session, FrameName(4, greyDesc, false)))
	if len(data) == 0 || data[0] != 4 {
		t.Errorf("expected last frame to start with 4, got %v", data)
	}
}
