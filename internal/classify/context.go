package classify

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxBodyChars caps the pull request description shown to the approver.
	MaxBodyChars = 3000
	// MaxFieldValueChars caps each api field value shown to the approver.
	MaxFieldValueChars = 300
	// maxCommandChars caps the echoed command line.
	maxCommandChars = 400
)

// Action names what an approval is for.
type Action string

const (
	ActionPullRequest Action = "pull-request"
	ActionAPI         Action = "api"
)

// ApprovalContext is what the approver is shown. It is derived from the
// command line only and never holds credentials.
type ApprovalContext struct {
	Action  Action
	Command string

	// Pull request creation.
	Title    string
	Fill     bool
	Body     string
	BodyFile string
	Head     string
	Base     string
	Repo     string
	Draft    bool

	// API calls.
	Method    string
	Endpoint  string
	Fields    []string
	InputFile string
}

func pullRequestContext(in Intent) ApprovalContext {
	ctx := ApprovalContext{
		Action:  ActionPullRequest,
		Command: in.CommandLine(),
		Fill:    in.Has(RoleFill),
		Draft:   in.Has(RoleDraft),
	}
	ctx.Title, _ = in.Value(RoleTitle)
	ctx.Head, _ = in.Value(RoleHead)
	ctx.Base, _ = in.Value(RoleBase)
	ctx.Repo, _ = in.Value(RoleRepo)
	ctx.BodyFile, _ = in.Value(RoleBodyFile)
	if body, ok := in.Value(RoleBody); ok {
		ctx.Body = Truncate(body, MaxBodyChars)
	}
	return ctx
}

func apiContext(in Intent, method string) ApprovalContext {
	ctx := ApprovalContext{
		Action:  ActionAPI,
		Command: in.CommandLine(),
		Method:  method,
	}
	if len(in.Positionals) > 0 {
		ctx.Endpoint = in.Positionals[0]
	}
	ctx.InputFile, _ = in.Value(RoleInput)
	for _, f := range in.Values(RoleField) {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			ctx.Fields = append(ctx.Fields, Truncate(f, MaxFieldValueChars))
			continue
		}
		ctx.Fields = append(ctx.Fields, key+"="+Truncate(value, MaxFieldValueChars))
	}
	return ctx
}

// Truncate shortens s to at most n runes, marking the cut with an
// ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// CommandLine renders the invocation for display and audit, quoting
// words that a shell would split.
func (in Intent) CommandLine() string {
	words := make([]string, 0, len(in.Args)+1)
	words = append(words, in.Tool)
	for _, a := range in.Args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
			a = strconv.Quote(a)
		}
		words = append(words, a)
	}
	return Truncate(strings.Join(words, " "), maxCommandChars)
}
