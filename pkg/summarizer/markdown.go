package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// MarkdownFormatter renders a summary as Markdown tables. Labels are
// translated through go-l10n.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Streaming Summary"))
	fmt.Fprintf(&b, "%s: %s\n", l10n.T("Generated"), s.GeneratedAt.Format(time.RFC3339))

	section(&b, l10n.T("Results"))
	if s.Result.Session != "" {
		row(&b, l10n.T("Session"), s.Result.Session)
	}
	row(&b, l10n.T("Frames Sent"), fmt.Sprintf("%d", s.Result.FramesSent))
	row(&b, l10n.T("Duration"), formatDuration(s.Result.Duration))
	row(&b, l10n.T("Average Frame Rate"), fmt.Sprintf("%.2f fps", s.Result.FPS))
	row(&b, l10n.T("Aborted"), yesNo(s.Result.Aborted))
	if s.Result.Error != "" {
		row(&b, l10n.T("Error"), s.Result.Error)
	}

	section(&b, l10n.T("Settings"))
	row(&b, l10n.T("Backend"), s.Settings.Backend)
	row(&b, l10n.T("Sink"), s.Settings.Sink)
	row(&b, l10n.T("Format"), s.Settings.Format)
	row(&b, l10n.T("Source"), s.Settings.Source)
	limit := l10n.T("Unlimited")
	if s.Settings.FrameLimit > 0 {
		limit = fmt.Sprintf("%d", s.Settings.FrameLimit)
	}
	row(&b, l10n.T("Frame Limit"), limit)
	row(&b, l10n.T("Paced"), yesNo(s.Settings.Pace))
	if s.Settings.Buffers > 0 {
		row(&b, l10n.T("Buffers"), fmt.Sprintf("%d", s.Settings.Buffers))
	}

	if s.Buffers != nil {
		section(&b, l10n.T("Buffer Traffic"))
		row(&b, l10n.T("Acquired"), fmt.Sprintf("%d", s.Buffers.Acquired))
		row(&b, l10n.T("Sent"), fmt.Sprintf("%d", s.Buffers.Sent))
		row(&b, l10n.T("Transmitted"), fmt.Sprintf("%d", s.Buffers.Transmitted))
		row(&b, l10n.T("Dropped"), fmt.Sprintf("%d", s.Buffers.Dropped))
		row(&b, l10n.T("Blocked Gets"), fmt.Sprintf("%d", s.Buffers.Waits))
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "%s vidout\n", l10n.T("Generated by"))
	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	fmt.Fprintf(b, "| %s | %s |\n", l10n.T("Item"), l10n.T("Value"))
	b.WriteString("|------|-------|\n")
}

func row(b *strings.Builder, item, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", item, strings.ReplaceAll(value, "|", "\\|"))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}

func yesNo(v bool) string {
	if v {
		return l10n.T("Yes")
	}
	return l10n.T("No")
}

// Ensure MarkdownFormatter implements Formatter
var _ Formatter = (*MarkdownFormatter)(nil)
