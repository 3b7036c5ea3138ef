// Package audit records every gate decision as one key=value line.
// Entries carry the command and the decision, never credentials.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of gate event.
type EventType string

// Event types.
const (
	EventPassthrough EventType = "PASSTHROUGH"
	EventMalformed   EventType = "MALFORMED"
	EventRequest     EventType = "REQUEST"
	EventApprove     EventType = "APPROVE"
	EventDeny        EventType = "DENY"
	EventTimeout     EventType = "TIMEOUT"
	EventUnreachable EventType = "UNREACHABLE"
	EventComplete    EventType = "COMPLETE"
)

// Event is a single audit log entry.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Type is the event type (REQUEST, APPROVE, etc.)
	Type EventType

	// ID is the approval request id; empty for events with no request.
	ID string

	// Action is the gated action kind ("pull-request", "api").
	Action string

	// Cmd is the wrapped command line.
	Cmd string

	// User is who approved or rejected (for APPROVE and DENY events).
	User string

	// Reason explains a DENY, MALFORMED or UNREACHABLE event.
	Reason string

	// ExitCode is the delegate exit code (for COMPLETE events).
	ExitCode int

	// Duration is the delegate run time (for COMPLETE events).
	Duration time.Duration
}

// Format returns the log entry as a formatted string.
// Format: 2024-01-15T14:32:05Z GATE REQUEST id=... action=api cmd="gh api -X DELETE ..."
func (e *Event) Format() string {
	var b strings.Builder

	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" GATE ")
	b.WriteString(string(e.Type))

	writeField(&b, "id", e.ID)
	writeField(&b, "action", e.Action)
	b.WriteString(" cmd=")
	b.WriteString(quoteValue(e.Cmd))

	switch e.Type {
	case EventApprove:
		writeOptionalField(&b, "user", e.User)
	case EventDeny:
		writeOptionalField(&b, "user", e.User)
		writeOptionalField(&b, "reason", e.Reason)
	case EventMalformed, EventUnreachable, EventTimeout:
		writeOptionalField(&b, "reason", e.Reason)
	case EventComplete:
		b.WriteString(" exit=")
		b.WriteString(strconv.Itoa(e.ExitCode))
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	}

	return b.String()
}

// writeField appends an unquoted " key=value" when value is non-empty.
func writeField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(value)
}

// writeOptionalField appends " key=quoted_value" to the builder if value is non-empty.
func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteValue(value))
}

// quoteValue returns a quoted string value.
func quoteValue(s string) string {
	return strconv.Quote(s)
}

// formatDuration formats a duration as a human-readable string (e.g., "2.3s", "1m30s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Logger writes audit events to an io.Writer. A nil Logger discards.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Open appends to the audit file at path, creating it and its directory
// with owner-only permissions.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

// Close closes the underlying file when the Logger came from Open.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.closer.Close()
	l.closer = nil
	l.w = nil
	return err
}

// Log writes an event to the audit log. A zero Timestamp is filled in.
func (l *Logger) Log(e *Event) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		if l.now != nil {
			e.Timestamp = l.now()
		} else {
			e.Timestamp = time.Now()
		}
	}

	if _, err := io.WriteString(l.w, e.Format()+"\n"); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogPassthrough logs a PASSTHROUGH event.
func (l *Logger) LogPassthrough(cmd string) error {
	return l.Log(&Event{Type: EventPassthrough, Cmd: cmd})
}

// LogMalformed logs a MALFORMED event.
func (l *Logger) LogMalformed(cmd, reason string) error {
	return l.Log(&Event{Type: EventMalformed, Cmd: cmd, Reason: reason})
}

// LogRequest logs a REQUEST event.
func (l *Logger) LogRequest(id, action, cmd string) error {
	return l.Log(&Event{Type: EventRequest, ID: id, Action: action, Cmd: cmd})
}

// LogApprove logs an APPROVE event.
func (l *Logger) LogApprove(id, action, cmd, user string) error {
	return l.Log(&Event{Type: EventApprove, ID: id, Action: action, Cmd: cmd, User: user})
}

// LogDeny logs a DENY event.
func (l *Logger) LogDeny(id, action, cmd, user, reason string) error {
	return l.Log(&Event{Type: EventDeny, ID: id, Action: action, Cmd: cmd, User: user, Reason: reason})
}

// LogTimeout logs a TIMEOUT event.
func (l *Logger) LogTimeout(id, action, cmd, reason string) error {
	return l.Log(&Event{Type: EventTimeout, ID: id, Action: action, Cmd: cmd, Reason: reason})
}

// LogUnreachable logs an UNREACHABLE event.
func (l *Logger) LogUnreachable(id, action, cmd, reason string) error {
	return l.Log(&Event{Type: EventUnreachable, ID: id, Action: action, Cmd: cmd, Reason: reason})
}

// LogComplete logs a COMPLETE event.
func (l *Logger) LogComplete(id, action, cmd string, exitCode int, duration time.Duration) error {
	return l.Log(&Event{
		Type:     EventComplete,
		ID:       id,
		Action:   action,
		Cmd:      cmd,
		ExitCode: exitCode,
		Duration: duration,
	})
}
