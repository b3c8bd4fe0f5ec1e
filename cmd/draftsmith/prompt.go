package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/style"
)

var errDeclined = errors.New("declined")

// prompter asks questions on a terminal. Typing "q" declines; end of input
// declines too.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// stdinIsTerminal is swapped in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errDeclined
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "q") {
		return "", errDeclined
	}
	return line, nil
}

// Ask implements intent.Asker.
func (p *prompter) Ask(ctx context.Context, q intent.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintln(p.out, colorize(styleBold, q.Prompt))
	for i, o := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o.Label)
	}
	fmt.Fprint(p.out, colorize(styleFaint, "choice (q to skip): "))
	return p.readLine()
}

// setup walks the interactive style questionnaire.
func (p *prompter) setup(ctx context.Context) style.SetupState {
	s := style.BeginSetup()
	for !s.Done() {
		if ctx.Err() != nil {
			return style.StepSetup(s, style.SetupAnswer{Declined: true})
		}
		q, _ := s.Question()
		fmt.Fprintln(p.out, colorize(styleBold, q.Prompt))
		for i, o := range q.Options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, o.Label)
		}
		fmt.Fprint(p.out, colorize(styleFaint, "answer (enter to skip, q to stop): "))

		text, err := p.readLine()
		if err != nil {
			s = style.StepSetup(s, style.SetupAnswer{Declined: true})
			continue
		}
		s = style.StepSetup(s, style.SetupAnswer{Text: text})
	}
	return s
}
