// Package gate ties the pieces together for one invocation: it classifies
// the command line, gets a human decision when one is needed, and runs the
// real tool with the repository token injected.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/audit"
	"github.com/xdg/gh-gate/internal/classify"
	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/project"
	"github.com/xdg/gh-gate/internal/secret"
	"github.com/xdg/gh-gate/internal/term"
)

// ChannelFactory opens the notification channel with the stored bot
// credentials.
type ChannelFactory func(botToken, chatID string) (approval.Channel, error)

// Options holds a Gate's collaborators. Everything process-global (PATH,
// environment, stdio, the marker) is passed in so a Gate can be driven
// entirely from tests.
type Options struct {
	Config     *config.Config
	Secrets    secret.Provider
	NewChannel ChannelFactory
	Executor   executor.Executor
	Audit      *audit.Logger

	// AlreadyDelegated is true when this process was started by another
	// gh-gate; the call is delegated without classification.
	AlreadyDelegated bool
	// Self is the path of the running gh-gate binary.
	Self    string
	PathEnv string
	Environ []string
	Workdir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Replace, if set, is used for passthrough calls when the config
	// allows it. It only returns on failure.
	Replace func(path string, args, env []string) error
}

// Gate runs wrapped invocations.
type Gate struct {
	opts       Options
	classifier *classify.Classifier
}

// New returns a Gate. Options.Config must be loaded and validated.
func New(opts Options) *Gate {
	if opts.Executor == nil {
		opts.Executor = executor.NewRealExecutor()
	}
	cfg := opts.Config.Approval
	policy := classify.DefaultPolicy()
	policy.InferMethodFromFields = cfg.InferMethod()
	if len(cfg.MutatingMethods) > 0 {
		policy.MutatingMethods = cfg.MutatingMethods
	}
	return &Gate{opts: opts, classifier: classify.NewClassifier(policy)}
}

// Run handles one invocation of the wrapped tool with args (argv without
// the program name). It returns the exit code to use and, when the gate
// itself failed, the reason. A delegated command's failure is reported
// only through its exit code.
func (g *Gate) Run(ctx context.Context, args []string) (int, error) {
	code, err := g.run(ctx, args)
	if err != nil {
		return ExitCodeFor(err), err
	}
	return code, nil
}

func (g *Gate) run(ctx context.Context, args []string) (int, error) {
	if g.opts.AlreadyDelegated {
		clog.Debug("gate: nested invocation, delegating directly")
		return g.delegate(ctx, args, "", true)
	}

	in := classify.Parse(g.opts.Config.Delegate.Name, args)
	verdict := g.classifier.Classify(in)
	clog.Debug("gate: %s classified as %s", in.CommandLine(), verdict.Kind)

	switch verdict.Kind {
	case classify.Malformed:
		_ = g.opts.Audit.LogMalformed(in.CommandLine(), verdict.Reason)
		return 0, verdict.Err()

	case classify.RequiresApproval:
		return g.approveAndRun(ctx, args, *verdict.Context)

	default:
		token, err := g.opts.Secrets.Get(secret.RepoToken)
		if err != nil {
			if !errors.Is(err, secret.ErrMissing) {
				clog.Warn("gate: %v; running without an injected token", err)
			}
			token = ""
		}
		_ = g.opts.Audit.LogPassthrough(in.CommandLine())
		return g.delegate(ctx, args, token, true)
	}
}

// credentials holds the three secrets an approved call needs.
type credentials struct {
	repoToken string
	botToken  string
	chatID    string
}

func (g *Gate) loadCredentials() (credentials, error) {
	var c credentials
	for _, s := range []struct {
		key secret.Key
		dst *string
	}{
		{secret.RepoToken, &c.repoToken},
		{secret.NotifyBotToken, &c.botToken},
		{secret.NotifyChatID, &c.chatID},
	} {
		v, err := g.opts.Secrets.Get(s.key)
		if err != nil {
			if errors.Is(err, secret.ErrMissing) {
				return credentials{}, fmt.Errorf("%w (run 'gh-gate setup')", err)
			}
			return credentials{}, err
		}
		*s.dst = v
	}
	return c, nil
}

func (g *Gate) approveAndRun(ctx context.Context, args []string, actx classify.ApprovalContext) (int, error) {
	creds, err := g.loadCredentials()
	if err != nil {
		return 0, err
	}

	g.enrich(ctx, &actx)

	ch, err := g.opts.NewChannel(creds.botToken, creds.chatID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", approval.ErrChannelUnreachable, err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			clog.Debug("gate: close channel: %v", err)
		}
	}()

	cfg := g.opts.Config.Approval
	action, cmd := string(actx.Action), actx.Command
	gw := approval.NewGateway(ch, approval.Options{
		Timeout:      cfg.TimeoutDuration(),
		PollWait:     cfg.PollWaitDuration(),
		SendAttempts: cfg.SendAttempts,
		Published: func(req *approval.Request) {
			_ = g.opts.Audit.LogRequest(req.ID, action, cmd)
		},
	})

	showSummary(actx, cfg.TimeoutDuration())

	req, err := gw.Resolve(ctx, actx)
	switch {
	case err == nil:
		_ = g.opts.Audit.LogApprove(req.ID, action, cmd, req.DecidedBy())
		term.Status("Approved. Running %s.", g.opts.Config.Delegate.Name)
	case errors.Is(err, approval.ErrRejected):
		_ = g.opts.Audit.LogDeny(req.ID, action, cmd, req.DecidedBy(), "rejected")
		return 0, fmt.Errorf("%w by %s", err, nameOr(req.DecidedBy(), "approver"))
	case errors.Is(err, approval.ErrExpired):
		_ = g.opts.Audit.LogTimeout(req.ID, action, cmd, "no decision within "+cfg.TimeoutDuration().String())
		return 0, err
	case errors.Is(err, approval.ErrChannelUnreachable):
		_ = g.opts.Audit.LogUnreachable(req.ID, action, cmd, err.Error())
		return 0, err
	default:
		_ = g.opts.Audit.LogTimeout(req.ID, action, cmd, "interrupted")
		return 0, err
	}

	start := time.Now()
	code, err := g.delegate(ctx, args, creds.repoToken, false)
	if err == nil {
		_ = g.opts.Audit.LogComplete(req.ID, action, cmd, code, time.Since(start))
	}
	return code, err
}

// delegate runs the real tool. Passthrough calls may replace this process
// entirely; approved calls always run as a child so completion is audited.
func (g *Gate) delegate(ctx context.Context, args []string, token string, mayReplace bool) (int, error) {
	dcfg := g.opts.Config.Delegate
	path, err := executor.LocateDelegate(dcfg.Name, g.opts.PathEnv, g.opts.Self)
	if err != nil {
		return 0, err
	}
	env := executor.BuildEnv(g.opts.Environ, dcfg.TokenEnv, token)

	if mayReplace && dcfg.UseExec() && g.opts.Replace != nil {
		clog.Debug("gate: replacing process with %s", path)
		err := g.opts.Replace(path, args, env)
		if !errors.Is(err, executor.ErrReplaceUnsupported) {
			return 0, err
		}
	}

	clog.Debug("gate: running %s", path)
	return g.opts.Executor.Run(ctx, executor.Invocation{
		Path:   path,
		Args:   args,
		Env:    env,
		Stdin:  g.opts.Stdin,
		Stdout: g.opts.Stdout,
		Stderr: g.opts.Stderr,
	})
}

// enrich fills in what the command line leaves implicit: the branch a pull
// request is opened from and the text of a body file.
func (g *Gate) enrich(ctx context.Context, actx *classify.ApprovalContext) {
	if actx.Action != classify.ActionPullRequest {
		return
	}
	if actx.Head == "" {
		actx.Head = g.currentBranch(ctx)
	}
	if actx.Body == "" && actx.BodyFile != "" && actx.BodyFile != "-" {
		data, err := os.ReadFile(actx.BodyFile)
		if err != nil {
			clog.Warn("gate: read body file: %v", err)
			return
		}
		actx.Body = classify.Truncate(string(data), classify.MaxBodyChars)
	}
}

func (g *Gate) currentBranch(ctx context.Context) string {
	branch, err := project.Git{Exec: g.opts.Executor, Dir: g.opts.Workdir}.Branch(ctx)
	if err != nil {
		clog.Debug("gate: no current branch: %v", err)
		return ""
	}
	return branch
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
