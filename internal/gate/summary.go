package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/xdg/gh-gate/internal/classify"
	"github.com/xdg/gh-gate/internal/term"
)

func showSummary(actx classify.ApprovalContext, timeout time.Duration) {
	term.Summary("Approval required", string(actx.Action), summaryFields(actx))
	term.Status("Waiting up to %s for a decision in Telegram...", timeout)
}

func summaryFields(actx classify.ApprovalContext) []term.Field {
	fields := []term.Field{{Label: "Command", Value: actx.Command}}

	switch actx.Action {
	case classify.ActionPullRequest:
		title := actx.Title
		if title == "" && actx.Fill {
			title = "(from commits)"
		}
		fields = append(fields,
			term.Field{Label: "Repo", Value: actx.Repo},
			term.Field{Label: "Title", Value: title},
			term.Field{Label: "Branch", Value: branchLine(actx.Head, actx.Base)},
		)
		if actx.Draft {
			fields = append(fields, term.Field{Label: "Draft", Value: "yes"})
		}
	case classify.ActionAPI:
		fields = append(fields,
			term.Field{Label: "Request", Value: fmt.Sprintf("%s %s", actx.Method, actx.Endpoint)},
			term.Field{Label: "Fields", Value: strings.Join(actx.Fields, "\n")},
			term.Field{Label: "Input", Value: actx.InputFile},
		)
	}
	return fields
}

func branchLine(head, base string) string {
	if head == "" {
		head = "(current branch)"
	}
	if base == "" {
		base = "(default branch)"
	}
	return head + " → " + base
}
