package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/classify"
)

// maxFieldLines caps how many api fields are listed in one notice.
const maxFieldLines = 20

// RenderHTML formats a notice for Telegram's HTML parse mode. All values
// coming from the command line are escaped.
func RenderHTML(n approval.Notice) string {
	var b strings.Builder
	ctx := n.Context

	switch ctx.Action {
	case classify.ActionPullRequest:
		renderPullRequest(&b, ctx)
	default:
		renderAPI(&b, ctx)
	}

	if ctx.Command != "" {
		fmt.Fprintf(&b, "\n<b>Command:</b>\n<code>%s</code>\n", esc(ctx.Command))
	}
	if !n.Expires.IsZero() {
		fmt.Fprintf(&b, "\n⏱ Expires at %s", n.Expires.Format("15:04:05 MST"))
	}
	return b.String()
}

func renderPullRequest(b *strings.Builder, ctx classify.ApprovalContext) {
	b.WriteString("🔀 <b>Pull request approval</b>")
	if ctx.Draft {
		b.WriteString("  📝 <i>draft</i>")
	}
	b.WriteString("\n\n")

	switch {
	case ctx.Title != "":
		fmt.Fprintf(b, "<b>Title:</b> %s\n", esc(ctx.Title))
	case ctx.Fill:
		b.WriteString("<b>Title:</b> <i>filled from commits</i>\n")
	}
	fmt.Fprintf(b, "<b>Branch:</b> <code>%s</code>\n", esc(BranchLine(ctx)))
	if ctx.Repo != "" {
		fmt.Fprintf(b, "<b>Repo:</b> <code>%s</code>\n", esc(ctx.Repo))
	}

	switch {
	case ctx.Body != "":
		fmt.Fprintf(b, "\n<b>Description:</b>\n<pre>%s</pre>\n", esc(ctx.Body))
	case ctx.BodyFile != "":
		fmt.Fprintf(b, "\n<b>Description:</b> <i>from %s</i>\n", esc(ctx.BodyFile))
	}
}

func renderAPI(b *strings.Builder, ctx classify.ApprovalContext) {
	b.WriteString("🔧 <b>API mutation approval</b>\n\n")
	fmt.Fprintf(b, "<code>%s %s</code>\n", esc(ctx.Method), esc(ctx.Endpoint))

	if len(ctx.Fields) > 0 {
		lines := ctx.Fields
		extra := 0
		if len(lines) > maxFieldLines {
			extra = len(lines) - maxFieldLines
			lines = lines[:maxFieldLines]
		}
		fmt.Fprintf(b, "\n<b>Fields:</b>\n<pre>%s</pre>\n", esc(strings.Join(lines, "\n")))
		if extra > 0 {
			fmt.Fprintf(b, "<i>and %d more</i>\n", extra)
		}
	}
	if ctx.InputFile != "" {
		fmt.Fprintf(b, "<b>Input:</b> <code>%s</code>\n", esc(ctx.InputFile))
	}
}

// BranchLine describes where a pull request goes, using placeholders for
// the parts gh fills in itself.
func BranchLine(ctx classify.ApprovalContext) string {
	head := ctx.Head
	if head == "" {
		head = "(current branch)"
	}
	base := ctx.Base
	if base == "" {
		base = "(default branch)"
	}
	return head + " → " + base
}

func esc(s string) string {
	return html.EscapeString(s)
}
