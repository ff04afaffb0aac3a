package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/vidout/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewWriter(ports.LevelInfo, &out, &errOut)

	log.Debug("hidden %d", 1)
	log.Info("frames sent: %d", 42)
	log.Warn("slow client %s", "a")
	log.Error("device failed")

	if strings.Contains(out.String(), "hidden") {
		t.Error("expected debug message to be filtered")
	}
	if !strings.Contains(out.String(), "frames sent: 42") {
		t.Errorf("expected info on stdout, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "slow client a") || !strings.Contains(errOut.String(), "device failed") {
		t.Errorf("expected warn and error on stderr, got %q", errOut.String())
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	log := NewWriter(ports.LevelDebug, &out, &out).WithComponent("devicesink")

	log.Debug("buffer %d recycled", 3)

	if got := out.String(); got != "[devicesink] buffer 3 recycled\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out bytes.Buffer
	log := NewWriter(ports.LevelQuiet, &out, &out)

	log.Error("nothing")
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}

	if _, ok := New(ports.LevelQuiet).(*NoopLogger); !ok {
		t.Error("expected New to return a NoopLogger for LevelQuiet")
	}
}
