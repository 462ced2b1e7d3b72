package harness

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
	"github.com/sethvargo/go-retry"
)

// WarmupUtterance is sent once at startup so the endpoint loads the model.
const WarmupUtterance = "Welcome"

// Policy bounds the cold-start retry loop.
type Policy struct {
	MaxAttempts        int           // total endpoint calls per turn, including the first
	MaxElapsed         time.Duration // total time budget for one turn
	DefaultLoadingWait time.Duration // used when the endpoint gives no estimate
	MaxLoadingWait     time.Duration // cap for a single estimated wait
	CacheTTL           time.Duration // one-shot completions only
}

// DefaultPolicy returns sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:        5,
		MaxElapsed:         5 * time.Minute,
		DefaultLoadingWait: 20 * time.Second,
		MaxLoadingWait:     2 * time.Minute,
		CacheTTL:           time.Hour,
	}
}

// Endpoint is the host configuration of the remote model.
type Endpoint struct {
	URL       string
	AuthToken string
	Options   ports.Options
}

// SessionManager turns a user utterance plus a context into a reply plus a new context.
//
// It holds no conversation state of its own; concurrent sessions only need
// distinct ConversationContext values.
type SessionManager struct {
	provider   ports.Provider
	endpoint   Endpoint
	builder    *PromptBuilder
	parser     *OutputParser
	guardrails *Guardrails
	cache      ports.AnswerCache
	throttle   ports.Throttle
	tracer     ports.Tracer
	policy     *Policy
}

// NewSessionManager creates a new session manager with dependencies.
func NewSessionManager(
	provider ports.Provider,
	endpoint Endpoint,
	builder *PromptBuilder,
	guardrails *Guardrails,
	cache ports.AnswerCache,
	throttle ports.Throttle,
	tracer ports.Tracer,
	policy *Policy,
) *SessionManager {
	if builder == nil {
		builder = NewPromptBuilder(nil)
	}
	if cache == nil {
		cache = noOpCache{}
	}
	if throttle == nil {
		throttle = noOpThrottle{}
	}
	if tracer == nil {
		tracer = noOpTracer{}
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &SessionManager{
		provider:   provider,
		endpoint:   endpoint,
		builder:    builder,
		parser:     NewOutputParser(builder.Template()),
		guardrails: guardrails,
		cache:      cache,
		throttle:   throttle,
		tracer:     tracer,
		policy:     policy,
	}
}

// SendTurn sends one user utterance with the whole context.
//
// On success the returned result carries the extracted answer and the returned
// context has exactly one user and one assistant turn more than conv. On any
// other outcome conv is returned unchanged. SendTurn never panics on endpoint
// errors; callers decide whether to show the failure text.
func (m *SessionManager) SendTurn(ctx context.Context, conv ConversationContext, userText string) (ports.InferenceResult, ConversationContext) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return ports.Failure(ports.ReasonInvalid, 0, "empty utterance"), conv
	}

	ctx, finish := m.tracer.StartSpan(ctx, "send_turn", map[string]any{
		"turns":    conv.Len(),
		"template": m.builder.Template().Name(),
	})

	prompt, err := m.builder.Build(conv, userText)
	if err != nil {
		finish(err)
		return ports.Failure(ports.ReasonInvalid, 0, err.Error()), conv
	}

	result := m.call(ctx, "session", prompt)
	if !result.IsSuccess() {
		finish(ResultError(result))
		return result, conv
	}

	answer := m.parser.ExtractAnswer(result.Text)
	if answer == "" {
		result = ports.Failure(ports.ReasonInvalid, 200, "the model returned an empty answer")
		finish(ResultError(result))
		return result, conv
	}
	if m.guardrails != nil {
		answer = m.guardrails.SanitizeOutput(answer)
	}

	finish(nil)
	return ports.Success(answer), conv.WithExchange(userText, answer)
}

// Complete runs a stateless one-shot prompt and returns the extracted answer.
// Successful answers are cached by prompt.
func (m *SessionManager) Complete(ctx context.Context, preamble, userText string) ports.InferenceResult {
	return m.complete(ctx, preamble, userText, true)
}

// CompleteFresh is Complete without the cache, for prompts that depend on the current time.
func (m *SessionManager) CompleteFresh(ctx context.Context, preamble, userText string) ports.InferenceResult {
	return m.complete(ctx, preamble, userText, false)
}

func (m *SessionManager) complete(ctx context.Context, preamble, userText string, cached bool) ports.InferenceResult {
	prompt, err := m.builder.BuildSingle(preamble, userText)
	if err != nil {
		return ports.Failure(ports.ReasonInvalid, 0, err.Error())
	}

	cacheKey := buildCacheKey(m.endpoint.URL, prompt)
	if cached {
		if answer, ok := m.cache.Lookup(ctx, cacheKey); ok {
			m.tracer.Event(ctx, "cache_hit", map[string]any{"key": cacheKey})
			return ports.Success(answer)
		}
	}

	ctx, finish := m.tracer.StartSpan(ctx, "complete", map[string]any{"cached": cached})
	result := m.call(ctx, "complete", prompt)
	if !result.IsSuccess() {
		finish(ResultError(result))
		return result
	}

	answer := m.parser.ExtractAnswer(result.Text)
	if answer == "" {
		result = ports.Failure(ports.ReasonInvalid, 200, "the model returned an empty answer")
		finish(ResultError(result))
		return result
	}
	finish(nil)

	if cached {
		m.cache.Store(ctx, cacheKey, answer)
	}
	return ports.Success(answer)
}

// Warmup sends a throwaway turn so a cold model starts loading before the user speaks.
func (m *SessionManager) Warmup(ctx context.Context) ports.InferenceResult {
	result, _ := m.SendTurn(ctx, NewConversation(""), WarmupUtterance)
	return result
}

// call passes the throttle for route and runs the cold-start retry loop.
func (m *SessionManager) call(ctx context.Context, route, prompt string) ports.InferenceResult {
	if err := m.throttle.Admit(ctx, route); err != nil {
		return ports.Failure(ports.ReasonRateLimited, 0, fmt.Sprintf("rate limit exceeded: %v", err))
	}

	req := ports.InferenceRequest{
		Endpoint:  m.endpoint.URL,
		Prompt:    prompt,
		AuthToken: m.endpoint.AuthToken,
		Options:   m.endpoint.Options,
	}
	return m.inferWithRetry(ctx, req)
}

var errModelLoading = errors.New("model is loading")

// inferWithRetry resubmits the same request while the endpoint reports a cold model.
// Each Loading result sleeps once for its estimate (clamped) before the next attempt.
// The loop stops after MaxAttempts calls or MaxElapsed, whichever comes first.
func (m *SessionManager) inferWithRetry(ctx context.Context, req ports.InferenceRequest) ports.InferenceResult {
	var (
		last     ports.InferenceResult
		wait     time.Duration
		attempts int
	)

	var backoff retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) { return wait, false })
	attemptsLeft := m.policy.MaxAttempts - 1
	if attemptsLeft < 0 {
		attemptsLeft = 0
	}
	backoff = retry.WithMaxRetries(uint64(attemptsLeft), backoff)
	if m.policy.MaxElapsed > 0 {
		backoff = retry.WithMaxDuration(m.policy.MaxElapsed, backoff)
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		res, err := m.provider.Infer(ctx, req)
		if err != nil {
			last = transportFailure(ctx, err)
			return err
		}

		last = res
		if res.IsLoading() {
			wait = m.loadingWait(res.RetryAfter)
			m.tracer.Event(ctx, "cold_start", map[string]any{
				"attempt": attempts,
				"wait":    wait.String(),
			})
			return retry.RetryableError(errModelLoading)
		}
		return nil
	})

	switch {
	case err == nil:
		return last
	case ctx.Err() != nil:
		return ports.Failure(ports.ReasonCanceled, 0, ctx.Err().Error())
	case last.IsLoading():
		return ports.Failure(ports.ReasonTimeout, 503,
			fmt.Sprintf("the model was still loading after %d attempts", attempts))
	default:
		return last
	}
}

func (m *SessionManager) loadingWait(estimate time.Duration) time.Duration {
	if estimate <= 0 {
		estimate = m.policy.DefaultLoadingWait
	}
	if m.policy.MaxLoadingWait > 0 && estimate > m.policy.MaxLoadingWait {
		estimate = m.policy.MaxLoadingWait
	}
	return estimate
}

func transportFailure(ctx context.Context, err error) ports.InferenceResult {
	if ctx.Err() != nil {
		return ports.Failure(ports.ReasonCanceled, 0, err.Error())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ports.Failure(ports.ReasonTimeout, 0, err.Error())
	}
	return ports.Failure(ports.ReasonNetwork, 0, err.Error())
}

// buildCacheKey creates a deterministic key for caching.
func buildCacheKey(endpoint, prompt string) string {
	sum := sha256.Sum256([]byte(endpoint + "\x00" + prompt))
	return "complete:" + hex.EncodeToString(sum[:])
}
