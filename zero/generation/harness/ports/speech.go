package harnessports

import "context"

// SpeechInput captures one utterance from the user (microphone or keyboard).
type SpeechInput interface {
	CaptureUtterance(ctx context.Context) (string, error)
}

// SpeechOutput renders assistant text to the user.
type SpeechOutput interface {
	RenderSpeech(ctx context.Context, text string) error
}
