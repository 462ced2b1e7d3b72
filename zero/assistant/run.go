package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

const farewell = "Goodbye! Talk to you soon."

// IsFarewell reports whether the utterance ends the session.
func IsFarewell(utterance string) bool {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(utterance), ".!?,")) {
	case "goodbye", "bye":
		return true
	}
	return false
}

// Run greets the user and then loops capture, handle and render until the user
// says goodbye, input ends, or ctx is cancelled. Background notices are spoken
// between turns.
func (a *Assistant) Run(ctx context.Context, in ports.SpeechInput, out ports.SpeechOutput) error {
	if err := out.RenderSpeech(ctx, Greeting); err != nil {
		return fmt.Errorf("failed to render greeting: %w", err)
	}

	for {
		if err := a.flushNotices(ctx, out); err != nil {
			return err
		}

		utterance, err := in.CaptureUtterance(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to capture utterance: %w", err)
		}
		if strings.TrimSpace(utterance) == "" {
			continue
		}
		if IsFarewell(utterance) {
			return out.RenderSpeech(ctx, farewell)
		}

		reply := a.Handle(ctx, utterance)
		if err := out.RenderSpeech(ctx, reply.Text); err != nil {
			return fmt.Errorf("failed to render reply: %w", err)
		}
	}
}

func (a *Assistant) flushNotices(ctx context.Context, out ports.SpeechOutput) error {
	if a.dispatcher == nil {
		return nil
	}
	for {
		select {
		case notice := <-a.dispatcher.Notices():
			if err := out.RenderSpeech(ctx, notice); err != nil {
				return fmt.Errorf("failed to render notice: %w", err)
			}
		default:
			return nil
		}
	}
}
