package adapters

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// AnswerLRU keeps the most recent one-shot answers for a fixed TTL.
type AnswerLRU struct {
	lru *expirable.LRU[string, string]
}

// NewAnswerLRU holds at most capacity answers, each for ttl.
func NewAnswerLRU(capacity int, ttl time.Duration) *AnswerLRU {
	if capacity < 1 {
		capacity = 1
	}
	return &AnswerLRU{lru: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func (c *AnswerLRU) Lookup(ctx context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *AnswerLRU) Store(ctx context.Context, key, answer string) {
	c.lru.Add(key, answer)
}

func (c *AnswerLRU) Forget(ctx context.Context, key string) {
	c.lru.Remove(key)
}

// Len counts unexpired answers.
func (c *AnswerLRU) Len() int {
	return c.lru.Len()
}

var _ ports.AnswerCache = (*AnswerLRU)(nil)
