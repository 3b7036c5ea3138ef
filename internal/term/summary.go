package term

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

// Field is one labelled line of a summary block.
type Field struct {
	Label string
	Value string
}

// Summary writes a titled block of fields to stderr, for example the
// description of a call that is waiting for approval. Empty values are
// skipped and multi-line values are indented under their label.
func Summary(title, badge string, fields []Field) {
	std.stderr(RenderSummary(title, badge, fields))
}

// RenderSummary formats a summary block without writing it.
func RenderSummary(title, badge string, fields []Field) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	if badge != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Render("[" + badge + "]"))
	}
	b.WriteString("\n")

	width := 0
	for _, f := range fields {
		if f.Value != "" && len(f.Label) > width {
			width = len(f.Label)
		}
	}

	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		label := labelStyle.Render(fmt.Sprintf("  %-*s", width+1, f.Label+":"))
		lines := strings.Split(strings.TrimRight(f.Value, "\n"), "\n")
		b.WriteString(label + " " + lines[0] + "\n")
		pad := strings.Repeat(" ", width+4)
		for _, line := range lines[1:] {
			b.WriteString(pad + line + "\n")
		}
	}

	return b.String()
}
