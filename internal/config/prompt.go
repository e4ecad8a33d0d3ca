package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// maxPromptAttempts caps re-prompting on blank answers for fields without a default
const maxPromptAttempts = 3

// PromptSource asks the user for values interactively
type PromptSource struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // terminal file descriptor for hidden input, -1 if not a terminal
}

// NewPromptSource reads answers from in and writes questions to out
func NewPromptSource(in io.Reader, out io.Writer) *PromptSource {
	return &PromptSource{in: bufio.NewReader(in), out: out, fd: -1}
}

// StdinPrompt prompts on stderr and reads stdin, hiding secrets when stdin is a terminal
func StdinPrompt() *PromptSource {
	p := NewPromptSource(os.Stdin, os.Stderr)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		p.fd = fd
	}
	return p
}

// Name implements Source
func (*PromptSource) Name() string { return "prompt" }

// Lookup implements Source
func (p *PromptSource) Lookup(f Field) (string, error) {
	label := f.Prompt
	if label == "" {
		label = f.Key
	}
	if f.Default != "" {
		label = fmt.Sprintf("%s [%s]", label, f.Default)
	}

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		fmt.Fprintf(p.out, "%s: ", label)

		answer, err := p.read(f.Secret)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			answer = f.Default
		}
		if answer != "" {
			return answer, nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no value entered for %s", f.Key)
		}
	}
	return "", fmt.Errorf("no value entered for %s", f.Key)
}

func (p *PromptSource) read(secret bool) (string, error) {
	if secret && p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		return string(b), err
	}
	return p.in.ReadString('\n')
}
