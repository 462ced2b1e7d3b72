package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// consoleInput reads one utterance per line.
type consoleInput struct {
	scanner *bufio.Scanner
	prompt  io.Writer
}

func newConsoleInput(r io.Reader, prompt io.Writer) *consoleInput {
	return &consoleInput{scanner: bufio.NewScanner(r), prompt: prompt}
}

func (c *consoleInput) CaptureUtterance(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.prompt, "User: ")
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.scanner.Text()), nil
}

// consoleOutput prints replies prefixed with the assistant's name.
type consoleOutput struct {
	w io.Writer
}

func (c consoleOutput) RenderSpeech(ctx context.Context, text string) error {
	_, err := fmt.Fprintf(c.w, "Zero: %s\n", text)
	return err
}

var (
	_ ports.SpeechInput  = (*consoleInput)(nil)
	_ ports.SpeechOutput = consoleOutput{}
)
