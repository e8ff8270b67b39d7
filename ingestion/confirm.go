package ingestion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompt describes what the operator is asked to approve.
type Prompt struct {
	Candidates  int
	Destination string
}

// Confirmer gates destination-mutating work behind operator approval.
type Confirmer interface {
	// Confirm returns true to proceed. ErrNonInteractive means no answer
	// could be obtained.
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// AutoConfirm approves without asking.
type AutoConfirm struct{}

// Confirm implements Confirmer.
func (AutoConfirm) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return true, nil
}

// PromptConfirmer asks on out and reads a yes/no answer from in.
type PromptConfirmer struct {
	in  io.Reader
	out io.Writer
}

// NewPromptConfirmer creates a confirmer reading from in and writing to out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	if out == nil {
		out = io.Discard
	}
	return &PromptConfirmer{in: in, out: out}
}

// Confirm implements Confirmer. Only "yes" and "y" (any case) approve.
func (c *PromptConfirmer) Confirm(ctx context.Context, p Prompt) (bool, error) {
	dest := p.Destination
	if dest == "" {
		dest = "the destination"
	}
	fmt.Fprintf(c.out, "Import %d documents into %s? (yes/no): ", p.Candidates, dest)

	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		fmt.Fprintln(c.out)
		if errors.Is(err, io.EOF) {
			return false, ErrNonInteractive
		}
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true, nil
	default:
		return false, nil
	}
}

// NewTerminalConfirmer prompts on stdin when it is a terminal. When it is
// not, the returned confirmer refuses with ErrNonInteractive without reading.
func NewTerminalConfirmer(out io.Writer) Confirmer {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nonInteractive{}
	}
	return NewPromptConfirmer(os.Stdin, out)
}

type nonInteractive struct{}

func (nonInteractive) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return false, ErrNonInteractive
}
