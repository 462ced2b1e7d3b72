package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

func TestAnswerLRU_EvictsLeastRecent(t *testing.T) {
	cache := NewAnswerLRU(2, time.Hour)
	ctx := context.Background()

	cache.Store(ctx, "open google", `open_page("google")`)
	answer, ok := cache.Lookup(ctx, "open google")
	assert.True(t, ok)
	assert.Equal(t, `open_page("google")`, answer)

	cache.Store(ctx, "what time is it", "get_time()")
	cache.Store(ctx, "empty the bin", "empty_recycle_bin()")

	_, ok = cache.Lookup(ctx, "open google")
	assert.False(t, ok)
	_, ok = cache.Lookup(ctx, "what time is it")
	assert.True(t, ok)

	cache.Forget(ctx, "what time is it")
	_, ok = cache.Lookup(ctx, "what time is it")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestAnswerLRU_Expiry(t *testing.T) {
	cache := NewAnswerLRU(4, 20*time.Millisecond)
	ctx := context.Background()

	cache.Store(ctx, "k", "v")
	assert.Eventually(t, func() bool {
		_, ok := cache.Lookup(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRouteThrottle_RejectsOverRate(t *testing.T) {
	throttle := NewRouteThrottle(2, time.Second)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	throttle.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, throttle.Admit(ctx, "send_turn"))
	require.NoError(t, throttle.Admit(ctx, "send_turn"))

	err := throttle.Admit(ctx, "send_turn")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThrottled))
	var te *ThrottledError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "send_turn", te.Route)
	assert.Equal(t, time.Second, te.RetryAfter)

	// routes are independent
	assert.NoError(t, throttle.Admit(ctx, "complete"))

	now = now.Add(time.Second)
	assert.NoError(t, throttle.Admit(ctx, "send_turn"))
}

func TestRouteThrottle_CanceledContext(t *testing.T) {
	throttle := NewRouteThrottle(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, throttle.Admit(ctx, "send_turn"), context.Canceled)
}

func TestLogTracer_SpanAndEvent(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewLogTracer(zerolog.New(&buf).Level(zerolog.DebugLevel))

	ctx, finish := tracer.StartSpan(context.Background(), "send_turn", map[string]any{"turns": 2})
	tracer.Event(ctx, "cold_start", map[string]any{"attempt": 1})
	finish(errors.New("boom"))
	tracer.Event(context.Background(), "outside", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"span":"send_turn"`)
	assert.Contains(t, lines[1], `"event":"cold_start"`)
	assert.Contains(t, lines[1], `"span":"send_turn"`)
	assert.Contains(t, lines[2], `"error":"boom"`)
	assert.NotContains(t, lines[3], `"span"`)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*HTTPProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProviderWithClient(srv.Client(), zerolog.Nop()), srv
}

func TestHTTPProvider_Success(t *testing.T) {
	var got map[string]any
	provider, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"generated_text": "prompt<|im_start|>assistant\nHello"}]`)
	})

	result, err := provider.Infer(context.Background(), ports.InferenceRequest{
		Endpoint:  srv.URL,
		Prompt:    "prompt",
		AuthToken: "hf_token",
		Options:   ports.Options{MaxNewTokens: 64},
	})

	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "prompt<|im_start|>assistant\nHello", result.Text)
	assert.Equal(t, "prompt", got["inputs"])
	params, ok := got["parameters"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 64, params["max_new_tokens"])
}

func TestHTTPProvider_PlainInputsWhenNoOptions(t *testing.T) {
	var got map[string]any
	provider, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		fmt.Fprint(w, `{"generated_text": "ok"}`)
	})

	result, err := provider.Infer(context.Background(), ports.InferenceRequest{Endpoint: srv.URL, Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, ports.Success("ok"), result)
	assert.Equal(t, map[string]any{"inputs": "p"}, got)
}

func TestHTTPProvider_Loading(t *testing.T) {
	provider, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error": "Model Qwen/Qwen2.5 is currently loading", "estimated_time": 3.5}`)
	})

	result, err := provider.Infer(context.Background(), ports.InferenceRequest{Endpoint: srv.URL, Prompt: "p"})

	require.NoError(t, err)
	require.True(t, result.IsLoading())
	assert.Equal(t, 3500*time.Millisecond, result.RetryAfter)
}

func TestHTTPProvider_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason ports.FailureReason
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`, ports.ReasonStatus},
		{"unauthorized", http.StatusUnauthorized, `{"error": "Invalid token"}`, ports.ReasonStatus},
		{"rate limited", http.StatusTooManyRequests, `slow down`, ports.ReasonRateLimited},
		{"garbage 200", http.StatusOK, `<html>`, ports.ReasonInvalid},
		{"empty list", http.StatusOK, `[]`, ports.ReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, srv := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			result, err := provider.Infer(context.Background(), ports.InferenceRequest{Endpoint: srv.URL, Prompt: "p"})

			require.NoError(t, err)
			require.True(t, result.IsFailure())
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestHTTPProvider_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	provider := NewHTTPProvider(HTTPProviderConfig{Timeout: time.Second}, zerolog.Nop())
	_, err := provider.Infer(context.Background(), ports.InferenceRequest{Endpoint: url, Prompt: "p"})
	assert.Error(t, err)

	_, err = provider.Infer(context.Background(), ports.InferenceRequest{Prompt: "p"})
	assert.Error(t, err)
}
