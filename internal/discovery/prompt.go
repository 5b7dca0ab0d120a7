package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// ErrPromptTimeout is returned when the operator does not answer within the
// configured window. The session treats it as skip.
var ErrPromptTimeout = errors.New("prompt timed out")

// TerminalDecider asks the operator about unknown parts on a line-oriented
// terminal. Timeout zero means wait forever.
type TerminalDecider struct {
	in      *bufio.Reader
	out     io.Writer
	Timeout time.Duration
}

// NewTerminalDecider creates a decider reading answers from in.
func NewTerminalDecider(in io.Reader, out io.Writer) *TerminalDecider {
	return &TerminalDecider{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// StdinIsTerminal reports whether stdin is an interactive terminal. Batch
// callers use this to fall back to a policy decider.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// AskUnknownPart prompts for an add/skip/defer decision.
func (d *TerminalDecider) AskUnknownPart(ctx context.Context, part UnknownPartContext) (Decision, error) {
	fmt.Fprintf(d.out, "\nUnknown part %s\n", part.PartNumber)
	if part.Description != "" {
		fmt.Fprintf(d.out, "  description:  %s\n", part.Description)
	}
	fmt.Fprintf(d.out, "  seen on:      invoice %s (%s)\n", part.InvoiceNumber, part.InvoiceDate.Format("2006-01-02"))
	fmt.Fprintf(d.out, "  billed price: %.2f\n", part.FirstSeenPrice)
	if part.Occurrences > 1 {
		fmt.Fprintf(d.out, "  occurrences:  %d\n", part.Occurrences)
	}

	answer, err := d.ask(ctx, "[a]dd to price list, [s]kip, or [d]efer for review? ")
	if err != nil {
		return Decision{}, err
	}

	switch strings.ToLower(answer) {
	case "a", "add":
		return d.askAddDetails(ctx, part)
	case "d", "defer":
		return Decision{Action: ActionDefer}, nil
	default:
		return Decision{Action: ActionSkip}, nil
	}
}

func (d *TerminalDecider) askAddDetails(ctx context.Context, part UnknownPartContext) (Decision, error) {
	decision := Decision{Action: ActionAdd}

	prompt := fmt.Sprintf("authorized price [%.2f]: ", part.FirstSeenPrice)
	for {
		answer, err := d.ask(ctx, prompt)
		if err != nil {
			return Decision{}, err
		}
		if answer == "" {
			decision.AuthorizedPrice = part.FirstSeenPrice
			break
		}
		price, err := strconv.ParseFloat(strings.TrimPrefix(answer, "$"), 64)
		if err != nil || price <= 0 {
			fmt.Fprintln(d.out, "enter a positive dollar amount")
			continue
		}
		decision.AuthorizedPrice = price
		break
	}

	description, err := d.ask(ctx, fmt.Sprintf("description [%s]: ", part.Description))
	if err != nil {
		return Decision{}, err
	}
	decision.Description = description
	if description == "" {
		decision.Description = part.Description
	}

	category, err := d.ask(ctx, "category []: ")
	if err != nil {
		return Decision{}, err
	}
	decision.Category = category

	return decision, nil
}

// ask prints the prompt and reads one trimmed line, honoring the timeout and
// the run context. A read left pending after a timeout is abandoned; the
// next prompt starts a fresh read.
func (d *TerminalDecider) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(d.out, prompt)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := d.in.ReadString('\n')
		ch <- answer{line: strings.TrimSpace(line), err: err}
	}()

	var timeout <-chan time.Time
	if d.Timeout > 0 {
		timeout = time.After(d.Timeout)
	}

	select {
	case a := <-ch:
		if a.err != nil && a.line == "" {
			return "", fmt.Errorf("reading answer: %w", a.err)
		}
		return a.line, nil
	case <-timeout:
		return "", ErrPromptTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
