// Package term writes gh-gate's own messages to the user. It is distinct
// from operational logging (see internal/clog).
//
// Stdout belongs to the wrapped command. Only the setup and config
// commands print there; gate progress, summaries, warnings and errors
// all go to stderr.
package term

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// console holds the two destinations. Writes are serialized so a status
// line and a warning from different goroutines never interleave.
type console struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

var std = &console{out: os.Stdout, err: os.Stderr}

func (c *console) stdout(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, s)
}

func (c *console) stderr(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.err, s)
}

// SetOutput redirects stdout output. nil restores os.Stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	std.mu.Lock()
	std.out = w
	std.mu.Unlock()
}

// SetErrOutput redirects stderr output. nil restores os.Stderr.
func SetErrOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.mu.Lock()
	std.err = w
	std.mu.Unlock()
}

// Print writes command output to stdout.
func Print(a ...any) { std.stdout(fmt.Sprint(a...)) }

// Printf writes formatted command output to stdout.
func Printf(format string, a ...any) { std.stdout(fmt.Sprintf(format, a...)) }

// Println writes command output to stdout with a trailing newline.
func Println(a ...any) { std.stdout(fmt.Sprintln(a...)) }

// Status writes a progress line to stderr, leaving stdout to the
// delegated command.
func Status(format string, a ...any) {
	std.stderr(fmt.Sprintf(format, a...) + "\n")
}

// Warn writes "Warning: msg" to stderr.
func Warn(format string, a ...any) {
	std.stderr("Warning: " + fmt.Sprintf(format, a...) + "\n")
}

// Error writes "Error: msg" to stderr.
func Error(format string, a ...any) {
	std.stderr("Error: " + fmt.Sprintf(format, a...) + "\n")
}

// Reset restores os.Stdout and os.Stderr.
func Reset() {
	SetOutput(nil)
	SetErrOutput(nil)
}

// Discard drops all output. Tests use it to keep runs quiet.
func Discard() {
	SetOutput(io.Discard)
	SetErrOutput(io.Discard)
}
