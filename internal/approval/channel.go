package approval

import (
	"context"
	"strings"
	"time"

	"github.com/xdg/gh-gate/internal/classify"
)

// Decision is what the approver chose.
type Decision int

const (
	Approve Decision = iota + 1
	Reject
)

const (
	approvePrefix = "approve:"
	rejectPrefix  = "reject:"
)

// EncodeCallback returns the callback payload attached to a decision
// button for request id.
func EncodeCallback(d Decision, id string) string {
	if d == Approve {
		return approvePrefix + id
	}
	return rejectPrefix + id
}

// ParseCallback decodes a callback payload. ok is false for payloads that
// do not carry a decision, such as the inert label left after settling.
func ParseCallback(data string) (id string, d Decision, ok bool) {
	switch {
	case strings.HasPrefix(data, approvePrefix):
		id, d = data[len(approvePrefix):], Approve
	case strings.HasPrefix(data, rejectPrefix):
		id, d = data[len(rejectPrefix):], Reject
	default:
		return "", 0, false
	}
	if id == "" {
		return "", 0, false
	}
	return id, d, true
}

// Notice is what gets published for a request.
type Notice struct {
	RequestID string
	Context   classify.ApprovalContext
	Expires   time.Time
}

// MessageRef identifies a published notice so it can be settled later.
type MessageRef struct {
	ID int
}

// Callback is one button press delivered by the channel.
type Callback struct {
	ID   string // channel-assigned, used to acknowledge
	Data string // payload from EncodeCallback
	From string // display name of the person who pressed, if known
}

// Channel is the transport between gh-gate and the approver.
type Channel interface {
	// Publish sends a notice with approve and reject buttons.
	Publish(ctx context.Context, n Notice) (MessageRef, error)
	// Fetch returns callbacks received since the previous Fetch, waiting up
	// to wait for at least one. An empty result is not an error.
	Fetch(ctx context.Context, wait time.Duration) ([]Callback, error)
	// Acknowledge stops the client-side spinner for cb, showing text.
	Acknowledge(ctx context.Context, cb Callback, text string) error
	// Settle replaces the buttons on a published notice with label.
	Settle(ctx context.Context, ref MessageRef, label string) error
	// Close releases the channel's resources.
	Close() error
}
