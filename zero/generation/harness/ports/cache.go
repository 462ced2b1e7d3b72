package harnessports

import "context"

// AnswerCache remembers extracted answers to one-shot prompts.
// Entries expire after a TTL fixed by the implementation.
type AnswerCache interface {
	Lookup(ctx context.Context, key string) (answer string, ok bool)
	Store(ctx context.Context, key, answer string)
	Forget(ctx context.Context, key string)
}
