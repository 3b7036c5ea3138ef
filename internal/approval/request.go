// Package approval runs the out-of-band approval round trip for a single
// gated command: publish a notice on a Channel, wait for the matching
// decision, and fail closed on anything else.
package approval

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xdg/gh-gate/internal/classify"
)

// ErrAlreadyResolved is returned when a request that already left Pending
// is asked to change status again.
var ErrAlreadyResolved = errors.New("approval request already resolved")

// Status is the lifecycle state of a Request.
type Status int

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Request is one approval round trip. Pending is the only non-terminal
// status; once a request is approved, rejected, or expired it stays so.
type Request struct {
	ID        string
	Context   classify.ApprovalContext
	CreatedAt time.Time

	mu         sync.Mutex
	status     Status
	resolvedAt time.Time
	decidedBy  string
}

// NewRequest creates a pending request with a fresh random ID.
func NewRequest(ctx classify.ApprovalContext) *Request {
	return &Request{
		ID:        uuid.NewString(),
		Context:   ctx,
		CreatedAt: time.Now(),
	}
}

// Status returns the current status.
func (r *Request) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ResolvedAt returns when the request left Pending, or the zero time.
func (r *Request) ResolvedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolvedAt
}

// DecidedBy returns who approved or rejected the request, if known.
func (r *Request) DecidedBy() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decidedBy
}

func (r *Request) setDecidedBy(who string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decidedBy = who
}

// Approve moves a pending request to Approved.
func (r *Request) Approve() error { return r.transition(StatusApproved) }

// Reject moves a pending request to Rejected.
func (r *Request) Reject() error { return r.transition(StatusRejected) }

// Expire moves a pending request to Expired.
func (r *Request) Expire() error { return r.transition(StatusExpired) }

func (r *Request) transition(to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return ErrAlreadyResolved
	}
	r.status = to
	r.resolvedAt = time.Now()
	return nil
}
