package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xdg/gh-gate/internal/classify"
	"github.com/xdg/gh-gate/internal/clog"
)

var (
	// ErrRejected is returned when the approver rejects the request.
	ErrRejected = errors.New("approval rejected")
	// ErrExpired is returned when no decision arrives before the timeout.
	ErrExpired = errors.New("approval timed out")
	// ErrChannelUnreachable is returned when the notice cannot be sent.
	ErrChannelUnreachable = errors.New("approval channel unreachable")
)

const (
	// DefaultTimeout bounds the wait for a decision.
	DefaultTimeout = 5 * time.Minute
	// DefaultPollWait bounds one Fetch.
	DefaultPollWait = 30 * time.Second
	// DefaultSendAttempts is how many times Publish is tried.
	DefaultSendAttempts = 3

	settleTimeout = 5 * time.Second
)

// Button acknowledgements and the labels that replace the buttons.
const (
	AckApproving = "✅ Approving…"
	AckRejecting = "❌ Rejecting…"
	AckStale     = "This request is no longer pending"

	LabelApproved = "✅ Approved"
	LabelRejected = "❌ Rejected"
	LabelExpired  = "⏱ Expired"
)

// Options configures a Gateway. Zero fields take the defaults.
type Options struct {
	Timeout      time.Duration
	PollWait     time.Duration
	SendAttempts int
	// RetryInitial and RetryMax bound the backoff between failed sends
	// and failed polls.
	RetryInitial time.Duration
	RetryMax     time.Duration
	// Published, if set, is called once the notice has been delivered
	// and the request is waiting for a decision.
	Published func(req *Request)
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollWait <= 0 {
		o.PollWait = DefaultPollWait
	}
	if o.SendAttempts <= 0 {
		o.SendAttempts = DefaultSendAttempts
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 5 * time.Second
	}
	return o
}

// Gateway collects one decision per gated command over a Channel.
type Gateway struct {
	channel Channel
	opts    Options
}

// NewGateway returns a Gateway that talks to ch.
func NewGateway(ch Channel, opts Options) *Gateway {
	return &Gateway{channel: ch, opts: opts.withDefaults()}
}

// Resolve publishes a notice for ctx and waits for its decision.
//
// It returns nil only when the request was approved. Otherwise the error
// wraps ErrChannelUnreachable, ErrRejected, or ErrExpired, or is the
// parent context's error if it was cancelled. The returned Request is
// never nil.
func (g *Gateway) Resolve(ctx context.Context, actx classify.ApprovalContext) (*Request, error) {
	req := NewRequest(actx)

	ref, err := g.publish(ctx, req)
	if err != nil {
		return req, err
	}
	clog.Info("approval %s: notice published, waiting up to %s", req.ID, g.opts.Timeout)
	if g.opts.Published != nil {
		g.opts.Published(req)
	}

	return req, g.await(ctx, req, ref)
}

func (g *Gateway) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.RetryInitial
	b.MaxInterval = g.opts.RetryMax
	return b
}

// publish sends the notice, retrying with backoff. The timeout clock
// starts once publishing has succeeded.
func (g *Gateway) publish(ctx context.Context, req *Request) (MessageRef, error) {
	notice := Notice{
		RequestID: req.ID,
		Context:   req.Context,
		Expires:   time.Now().Add(g.opts.Timeout),
	}

	ref, err := backoff.Retry(ctx,
		func() (MessageRef, error) {
			return g.channel.Publish(ctx, notice)
		},
		backoff.WithBackOff(g.newBackOff()),
		backoff.WithMaxTries(uint(g.opts.SendAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			clog.Warn("approval %s: send failed, retrying in %s: %v", req.ID, next, err)
		}),
	)
	if err != nil {
		// Nobody can decide a request that was never delivered.
		_ = req.Expire()
		if ctx.Err() != nil {
			return MessageRef{}, ctx.Err()
		}
		return MessageRef{}, fmt.Errorf("%w: %v", ErrChannelUnreachable, err)
	}
	return ref, nil
}

func (g *Gateway) await(ctx context.Context, req *Request, ref MessageRef) error {
	deadline := time.Now().Add(g.opts.Timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	pollBackoff := g.newBackOff()

	for waitCtx.Err() == nil {
		wait := min(g.opts.PollWait, time.Until(deadline))
		if wait <= 0 {
			break
		}

		callbacks, err := g.channel.Fetch(waitCtx, wait)
		if err != nil {
			if waitCtx.Err() != nil {
				break
			}
			delay := pollBackoff.NextBackOff()
			clog.Warn("approval %s: poll failed, retrying in %s: %v", req.ID, delay, err)
			sleep(waitCtx, delay)
			continue
		}
		pollBackoff.Reset()

		for _, cb := range callbacks {
			if g.handle(ctx, req, ref, cb) {
				if req.Status() == StatusApproved {
					return nil
				}
				return ErrRejected
			}
		}
	}

	if err := ctx.Err(); err != nil {
		_ = req.Expire()
		clog.Info("approval %s: cancelled", req.ID)
		return err
	}

	_ = req.Expire()
	clog.Info("approval %s: expired after %s", req.ID, g.opts.Timeout)
	g.settle(ctx, req, ref, LabelExpired)
	return ErrExpired
}

// handle applies one callback and reports whether it decided req.
// Callbacks for other requests, or left over from earlier runs, are
// acknowledged and dropped.
func (g *Gateway) handle(ctx context.Context, req *Request, ref MessageRef, cb Callback) bool {
	id, decision, ok := ParseCallback(cb.Data)
	if !ok || id != req.ID {
		clog.Debug("approval %s: ignoring callback %q", req.ID, cb.Data)
		g.acknowledge(ctx, cb, AckStale)
		return false
	}

	ack, label := AckApproving, LabelApproved
	transition := req.Approve
	if decision == Reject {
		ack, label = AckRejecting, LabelRejected
		transition = req.Reject
	}
	if err := transition(); err != nil {
		g.acknowledge(ctx, cb, AckStale)
		return false
	}

	req.setDecidedBy(cb.From)
	clog.Info("approval %s: %s by %q", req.ID, req.Status(), cb.From)
	g.acknowledge(ctx, cb, ack)
	g.settle(ctx, req, ref, label)
	return true
}

func (g *Gateway) acknowledge(ctx context.Context, cb Callback, text string) {
	if err := g.channel.Acknowledge(ctx, cb, text); err != nil {
		clog.Debug("approval: acknowledge callback %s: %v", cb.ID, err)
	}
}

// settle replaces the decision buttons. It runs on a short context of its
// own so it still happens after the wait deadline has passed.
func (g *Gateway) settle(ctx context.Context, req *Request, ref MessageRef, label string) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if err := g.channel.Settle(sctx, ref, label); err != nil {
		clog.Warn("approval %s: update notice: %v", req.ID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
