// Package prompt reads interactive input for gh-gate setup: hidden
// credentials and yes/no confirmations. Mocks stand in for a terminal in
// tests.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// CredentialReader reads a secret value from the user.
type CredentialReader interface {
	// ReadCredential displays prompt and reads one value without echo.
	ReadCredential(prompt string) (string, error)
}

// TerminalCredentialReader reads credentials from a terminal with echo
// disabled. When In is not a terminal (a pipe in scripted setup), it
// reads one line instead.
type TerminalCredentialReader struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalCredentialReader creates a TerminalCredentialReader that reads
// from in (typically os.Stdin) and writes prompts to out.
func NewTerminalCredentialReader(in *os.File, out io.Writer) *TerminalCredentialReader {
	return &TerminalCredentialReader{In: in, Out: out}
}

// ReadCredential displays the prompt and reads input with echoing disabled.
func (r *TerminalCredentialReader) ReadCredential(prompt string) (string, error) {
	_, _ = fmt.Fprint(r.Out, prompt)

	fd := int(r.In.Fd())
	if !term.IsTerminal(fd) {
		line, err := readLine(r.In)
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return line, nil
	}

	credential, err := term.ReadPassword(fd)
	// ReadPassword swallows the newline.
	_, _ = fmt.Fprintln(r.Out)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(string(credential)), nil
}

// YesNoPrompter asks a yes/no question.
type YesNoPrompter interface {
	// PromptYesNo returns defaultYes on empty input.
	PromptYesNo(prompt string, defaultYes bool) (bool, error)
}

// StdinYesNoPrompter implements YesNoPrompter over plain streams.
type StdinYesNoPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewStdinYesNoPrompter creates a StdinYesNoPrompter that reads from r and writes to w.
func NewStdinYesNoPrompter(r io.Reader, w io.Writer) *StdinYesNoPrompter {
	return &StdinYesNoPrompter{In: r, Out: w}
}

// PromptYesNo accepts y/yes and n/no in any case.
func (p *StdinYesNoPrompter) PromptYesNo(prompt string, defaultYes bool) (bool, error) {
	_, _ = fmt.Fprint(p.Out, prompt)

	line, err := readLine(p.In)
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}

	switch strings.ToLower(line) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid input %q: expected y/n", line)
	}
}

// readLine reads up to a newline. EOF after partial input is not an error.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// MockCredentialReader returns queued credentials and records prompts.
type MockCredentialReader struct {
	// Credentials is a queue of credentials to return for successive calls.
	Credentials []string
	// Errors, when the entry for a call is non-nil, replaces the credential.
	Errors []error
	// Calls records all prompts passed to ReadCredential.
	Calls []string
}

// NewMockCredentialReader creates a MockCredentialReader with the given credentials.
func NewMockCredentialReader(credentials ...string) *MockCredentialReader {
	return &MockCredentialReader{Credentials: credentials}
}

// ReadCredential returns the next queued credential, or "" once exhausted.
func (m *MockCredentialReader) ReadCredential(prompt string) (string, error) {
	i := len(m.Calls)
	m.Calls = append(m.Calls, prompt)
	if i < len(m.Errors) && m.Errors[i] != nil {
		return "", m.Errors[i]
	}
	if i < len(m.Credentials) {
		return m.Credentials[i], nil
	}
	return "", nil
}

// MockYesNoPrompter returns queued answers and records prompts.
type MockYesNoPrompter struct {
	Responses []bool
	Errors    []error
	Calls     []MockYesNoCall
}

// MockYesNoCall records a single call to PromptYesNo.
type MockYesNoCall struct {
	Prompt     string
	DefaultYes bool
}

// NewMockYesNoPrompter creates a MockYesNoPrompter with the given responses.
func NewMockYesNoPrompter(responses ...bool) *MockYesNoPrompter {
	return &MockYesNoPrompter{Responses: responses}
}

// PromptYesNo returns the next queued answer, or defaultYes once exhausted.
func (m *MockYesNoPrompter) PromptYesNo(prompt string, defaultYes bool) (bool, error) {
	i := len(m.Calls)
	m.Calls = append(m.Calls, MockYesNoCall{Prompt: prompt, DefaultYes: defaultYes})
	if i < len(m.Errors) && m.Errors[i] != nil {
		return false, m.Errors[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return defaultYes, nil
}
