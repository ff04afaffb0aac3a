package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidout/pkg/adapters/devicesink"
	"github.com/user/vidout/pkg/engine"
	"github.com/user/vidout/pkg/mocks"
)

func testSummary() *Summary {
	s := NewBuilder().
		WithResult(engine.RunResult{
			FramesSent: 150,
			Duration:   5 * time.Second,
			Sink:       "device",
			Format:     "YUYV 640x480 @ 30",
		}, nil).
		WithSession("abc").
		WithSettings(Settings{Backend: "file", Source: "testcard", FrameLimit: 150, Pace: true, Buffers: 4}).
		WithBufferStats(devicesink.Stats{Acquired: 150, Sent: 150, Transmitted: 150, Waits: 12}).
		Build()
	s.GeneratedAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return s
}

func TestBuilder(t *testing.T) {
	s := testSummary()

	if s.Result.FPS != 30 {
		t.Errorf("expected 30 fps, got %v", s.Result.FPS)
	}
	// Sink and format come from the result when settings leave them empty.
	if s.Settings.Sink != "device" || s.Settings.Format != "YUYV 640x480 @ 30" {
		t.Errorf("unexpected settings %+v", s.Settings)
	}
	if s.Buffers == nil || s.Buffers.Waits != 12 {
		t.Errorf("unexpected buffers %+v", s.Buffers)
	}
}

func TestBuilder_Error(t *testing.T) {
	s := NewBuilder().WithResult(engine.RunResult{Aborted: true}, errors.New("device failed")).Build()
	if s.Result.Error != "device failed" || !s.Result.Aborted || s.Result.FPS != 0 {
		t.Errorf("unexpected result %+v", s.Result)
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	result := NewMarkdownFormatter().Format(testSummary())

	checks := []string{
		"# Streaming Summary",
		"2024-01-15T10:30:00Z",
		"| Session | abc |",
		"| Frames Sent | 150 |",
		"| Duration | 5.00 s |",
		"30.00 fps",
		"| Aborted | No |",
		"| Format | YUYV 640x480 @ 30 |",
		"| Frame Limit | 150 |",
		"## Buffer Traffic",
		"| Blocked Gets | 12 |",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q\n%s", check, result)
		}
	}
	if strings.Contains(result, "| Error |") {
		t.Error("expected no error row")
	}
}

func TestMarkdownFormatter_NoBuffers(t *testing.T) {
	s := NewBuilder().
		WithResult(engine.RunResult{Duration: 20 * time.Millisecond, Aborted: true}, errors.New("a|b")).
		Build()
	result := NewMarkdownFormatter().Format(s)

	if strings.Contains(result, "Buffer Traffic") {
		t.Error("expected buffer section to be omitted")
	}
	for _, check := range []string{"| Duration | 20 ms |", "| Frame Limit | Unlimited |", "| Error | a\\|b |", "| Aborted | Yes |"} {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestYAMLFormatter(t *testing.T) {
	out := YAMLFormatter.Format(testSummary())

	var decoded Summary
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if decoded.Result.FramesSent != 150 || decoded.Settings.Backend != "file" || decoded.Buffers.Transmitted != 150 {
		t.Errorf("unexpected decoded summary %+v", decoded)
	}
}

func TestForPath(t *testing.T) {
	if _, ok := ForPath("out/run.YML").(FormatFunc); !ok {
		t.Error("expected YAML formatter for .YML")
	}
	if _, ok := ForPath("run.md").(*MarkdownFormatter); !ok {
		t.Error("expected Markdown formatter for .md")
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(NewMarkdownFormatter(), fs)

	if err := w.Write("reports/run.md", testSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.File("reports/run.md")
	if !ok || !strings.HasPrefix(string(data), "# Streaming Summary") {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestWriter_Errors(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.FailWrites(errors.New("read-only"), 0)

	if err := NewWriter(NewMarkdownFormatter(), fs).Write("run.md", testSummary()); err == nil {
		t.Error("expected write error")
	}
	empty := FormatFunc(func(*Summary) string { return "" })
	if err := NewWriter(empty, mocks.NewFileSystem()).Write("run.md", testSummary()); err == nil {
		t.Error("expected error for empty output")
	}
}
