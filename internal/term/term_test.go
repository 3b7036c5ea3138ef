package term

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture points both destinations at fresh buffers for one test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	SetOutput(out)
	SetErrOutput(errOut)
	t.Cleanup(Reset)
	return out, errOut
}

func TestSetupOutputGoesToStdout(t *testing.T) {
	tests := []struct {
		name  string
		write func()
		want  string
	}{
		{"print", func() { Print("token stored") }, "token stored"},
		{"printf", func() { Printf("chat %s detected", "42") }, "chat 42 detected"},
		{"println", func() { Println("repo-token:", "ghp_…abcd") }, "repo-token: ghp_…abcd\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := capture(t)
			tt.write()
			if out.String() != tt.want {
				t.Errorf("stdout = %q, want %q", out.String(), tt.want)
			}
			if errOut.Len() != 0 {
				t.Errorf("stderr = %q, want empty", errOut.String())
			}
		})
	}
}

// While a call is gated, stdout is reserved for the delegate.
func TestGateOutputLeavesStdoutAlone(t *testing.T) {
	tests := []struct {
		name  string
		write func()
		want  string
	}{
		{"status", func() { Status("Waiting up to %s", "10m0s") }, "Waiting up to 10m0s\n"},
		{"warn", func() { Warn("audit log disabled: %v", "read-only") }, "Warning: audit log disabled: read-only\n"},
		{"error", func() { Error("gh-gate: %v", "rejected") }, "Error: gh-gate: rejected\n"},
		{"summary", func() { Summary("Approval required", "api", []Field{{Label: "Request", Value: "POST x"}}) }, "POST x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := capture(t)
			tt.write()
			if out.Len() != 0 {
				t.Errorf("stdout = %q, want empty", out.String())
			}
			if !strings.Contains(errOut.String(), tt.want) {
				t.Errorf("stderr = %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestSetOutput_NilRestoresDefaults(t *testing.T) {
	capture(t)

	SetOutput(nil)
	SetErrOutput(nil)

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.out != os.Stdout {
		t.Error("SetOutput(nil) did not restore os.Stdout")
	}
	if std.err != os.Stderr {
		t.Error("SetErrOutput(nil) did not restore os.Stderr")
	}
}

func TestDiscard(t *testing.T) {
	t.Cleanup(Reset)
	Discard()

	Println("dropped")
	Error("dropped")

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.out != io.Discard || std.err != io.Discard {
		t.Error("Discard() left a live writer")
	}
}

func TestConcurrentLinesStayWhole(t *testing.T) {
	_, errOut := capture(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Status("status line %02d", i)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(errOut.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20:\n%s", len(lines), errOut.String())
	}
	for _, line := range lines {
		var n int
		if _, err := fmt.Sscanf(line, "status line %d", &n); err != nil {
			t.Errorf("mangled line %q", line)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	got := RenderSummary("Pull request", "DRAFT", []Field{
		{Label: "Title", Value: "Fix parser"},
		{Label: "Branch", Value: "feature -> main"},
		{Label: "Repo", Value: ""},
		{Label: "Body", Value: "line one\nline two"},
	})

	for _, want := range []string{"Pull request", "DRAFT", "Fix parser", "feature -> main", "line one", "line two"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderSummary() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Repo") {
		t.Errorf("RenderSummary() should skip empty fields, got:\n%s", got)
	}
}

func TestRenderSummary_IndentsContinuationLines(t *testing.T) {
	got := RenderSummary("Approval required", "", []Field{
		{Label: "Fields", Value: "title=x\nbody=y"},
	})

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[2], "    ") || strings.TrimSpace(lines[2]) != "body=y" {
		t.Errorf("continuation line = %q, want indented body=y", lines[2])
	}
}
