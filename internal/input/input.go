// Package input reads and validates user input: flag values from stdin or
// @file, interactive prompts, and the local checks made before any request.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ValidationError is a local input problem caught before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation messages.
const (
	MsgRequiredFields = "Please fill in all required fields"
	MsgNameRequired   = "Please enter your name"
	MsgTitleRequired  = "Task title is required"
)

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(msg string) error { return &ValidationError{Message: msg} }

// ValidateLogin checks that email and password are present.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return invalid(MsgRequiredFields)
	}
	return nil
}

// ValidateRegister checks the registration fields. The name is checked after
// email and password, matching the order the form shows errors in.
func ValidateRegister(name, email, password string) error {
	if err := ValidateLogin(email, password); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return invalid(MsgNameRequired)
	}
	return nil
}

// ValidateTitle checks that a task title is not blank.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid(MsgTitleRequired)
	}
	return nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prompter reads answers for missing values. Line reads come from In; secret
// reads use the terminal without echo when In is a TTY.
type Prompter struct {
	In  *os.File
	Out io.Writer

	reader     *bufio.Reader
	readSecret func(fd int) ([]byte, error)
}

// NewPrompter returns a prompter on stdin/stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompter) lineReader() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	return p.reader
}

// Line prints label and reads one trimmed line.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.Out, label)
	line, err := p.lineReader().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// Secret reads a value without echo on a terminal, or as a plain line
// otherwise.
func (p *Prompter) Secret(label string) (string, error) {
	if !IsTerminal(p.In) {
		return p.Line(label)
	}
	fmt.Fprint(p.Out, label)
	read := p.readSecret
	if read == nil {
		read = term.ReadPassword
	}
	b, err := read(int(p.In.Fd()))
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// ExpandValue expands "-" to all of stdin and "@path" to the file's contents.
// Other values are returned unchanged.
func ExpandValue(v string, stdin io.Reader) (string, error) {
	switch {
	case v == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	case strings.HasPrefix(v, "@"):
		path := strings.TrimPrefix(v, "@")
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
	return v, nil
}

// ParseAssignments parses "key=value" pairs. Values stay strings.
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}
