package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrAborted is returned when the operator explicitly quits at a prompt.
var ErrAborted = errors.New("aborted by user request")

// errNoMoreAnswers is returned by the scripted implementation when its answer
// queue runs dry, which always indicates a broken test expectation.
var errNoMoreAnswers = errors.New("scripted prompt: no more answers")

// Confirmer asks the operator questions.
type Confirmer interface {
	// Confirm asks a yes/no question and reports the answer.
	Confirm(question string) (bool, error)
	// Ask asks a free-text question and returns the entered line.
	// Entering "q" aborts with ErrAborted.
	Ask(question string) (string, error)
}

// Terminal reads answers from an input stream, normally stdin.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Confirmer reading from in and prompting on out.
// Nil arguments default to stdin/stdout.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}

	if out == nil {
		out = os.Stdout
	}

	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question, re-prompting until 'y' or 'n' is entered.
func (t *Terminal) Confirm(question string) (bool, error) {
	fmt.Fprintln(t.out, question)

	for {
		fmt.Fprint(t.out, "Please enter 'y' or 'n': ")

		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			return false, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

// Ask asks a free-text question; "q" aborts.
func (t *Terminal) Ask(question string) (string, error) {
	fmt.Fprint(t.out, question)

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read answer: %w", err)
	}

	answer := strings.TrimSpace(line)
	if answer == "q" {
		return "", ErrAborted
	}

	return answer, nil
}

// Unattended answers yes to every confirmation and aborts on free-text
// questions, since there is no operator to type an override.
type Unattended struct{}

// Confirm always reports yes.
func (Unattended) Confirm(string) (bool, error) { return true, nil }

// Ask aborts: free-text input is unavailable in unattended mode.
func (Unattended) Ask(string) (string, error) { return "", ErrAborted }

// Scripted replays a fixed sequence of answers; used by tests.
type Scripted struct {
	// Answers are consumed front to back by both Confirm and Ask.
	// For Confirm, "y" means yes and anything else means no.
	Answers []string
	// Questions records every question asked, in order.
	Questions []string
}

// Confirm consumes the next scripted answer as a yes/no reply.
func (s *Scripted) Confirm(question string) (bool, error) {
	answer, err := s.next(question)
	if err != nil {
		return false, err
	}

	return answer == "y", nil
}

// Ask consumes the next scripted answer as free text; "q" aborts.
func (s *Scripted) Ask(question string) (string, error) {
	answer, err := s.next(question)
	if err != nil {
		return "", err
	}

	if answer == "q" {
		return "", ErrAborted
	}

	return answer, nil
}

func (s *Scripted) next(question string) (string, error) {
	s.Questions = append(s.Questions, question)

	if len(s.Answers) == 0 {
		return "", errNoMoreAnswers
	}

	answer := s.Answers[0]
	s.Answers = s.Answers[1:]

	return answer, nil
}
