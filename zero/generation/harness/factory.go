package harness

import (
	"context"
	"errors"
	"time"

	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
	"github.com/rs/zerolog"
)

// Factory creates and wires harness components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewFactory creates a new harness factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSessionManager creates a fully wired SessionManager from config.
// The provider owns the transport. guardrails may be nil and is shared with
// whoever registered argument schemas on it.
func (f *Factory) CreateSessionManager(provider ports.Provider, guardrails *Guardrails) (*SessionManager, error) {
	if provider == nil {
		return nil, errors.New("harness: provider is required")
	}

	inference := f.cfg.Inference
	endpoint := Endpoint{
		URL:       inference.Endpoint,
		AuthToken: inference.AuthToken,
		Options: ports.Options{
			MaxNewTokens: inference.MaxNewTokens,
			Temperature:  inference.Temperature,
		},
	}
	if endpoint.URL == "" {
		return nil, errors.New("harness: inference endpoint is not configured")
	}

	template := GetChatTemplate(inference.Model)
	f.logger.Debug().
		Str("template", template.Name()).
		Str("model", inference.Model).
		Msg("Selected chat template")

	policy := f.CreatePolicy()
	return NewSessionManager(
		provider,
		endpoint,
		NewPromptBuilder(template),
		guardrails,
		f.createCache(policy.CacheTTL),
		f.createThrottle(),
		f.createTracer(),
		policy,
	), nil
}

func (f *Factory) createCache(ttl time.Duration) ports.AnswerCache {
	if !f.cfg.Harness.CacheEnabled {
		return noOpCache{}
	}
	return adapters.NewAnswerLRU(f.cfg.Harness.CacheCapacity, ttl)
}

func (f *Factory) createThrottle() ports.Throttle {
	if !f.cfg.Harness.RateLimitEnabled {
		return noOpThrottle{}
	}
	return adapters.NewRouteThrottle(f.cfg.Harness.RateLimitCapacity, f.cfg.Harness.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return noOpTracer{}
	}
	return adapters.NewLogTracer(f.logger)
}

// CreateGuardrails creates guardrails from config. It returns nil when guardrails are disabled.
func (f *Factory) CreateGuardrails() (*Guardrails, error) {
	if !f.cfg.Harness.EnableGuardrails {
		return nil, nil
	}

	guardrails := NewGuardrails()
	for _, pattern := range f.cfg.Harness.RedactPatterns {
		if err := guardrails.AddOutputFilter(pattern); err != nil {
			return nil, err
		}
	}
	return guardrails, nil
}

// CreatePolicy creates a policy from config with validation.
func (f *Factory) CreatePolicy() *Policy {
	session := f.cfg.Session
	policy := &Policy{
		MaxAttempts:        session.MaxAttempts,
		MaxElapsed:         session.MaxElapsed,
		DefaultLoadingWait: session.DefaultLoadingWait,
		MaxLoadingWait:     session.MaxLoadingWait,
		CacheTTL:           time.Duration(f.cfg.Harness.CacheTTLSeconds) * time.Second,
	}

	// Validate and clamp policy values
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
		f.logger.Warn().Int("max_attempts", session.MaxAttempts).Msg("MaxAttempts clamped to minimum of 1")
	}
	if policy.MaxAttempts > 20 {
		policy.MaxAttempts = 20
		f.logger.Warn().Int("max_attempts", session.MaxAttempts).Msg("MaxAttempts clamped to maximum of 20")
	}

	if policy.MaxElapsed <= 0 {
		policy.MaxElapsed = DefaultPolicy().MaxElapsed
		f.logger.Warn().Dur("max_elapsed", session.MaxElapsed).Msg("MaxElapsed reset to default")
	}

	if policy.MaxLoadingWait <= 0 || policy.MaxLoadingWait > policy.MaxElapsed {
		policy.MaxLoadingWait = policy.MaxElapsed
		f.logger.Warn().Dur("max_loading_wait", session.MaxLoadingWait).Msg("MaxLoadingWait clamped to MaxElapsed")
	}
	if policy.DefaultLoadingWait <= 0 || policy.DefaultLoadingWait > policy.MaxLoadingWait {
		policy.DefaultLoadingWait = policy.MaxLoadingWait
		f.logger.Warn().Dur("default_loading_wait", session.DefaultLoadingWait).Msg("DefaultLoadingWait clamped to MaxLoadingWait")
	}

	if policy.CacheTTL <= 0 {
		policy.CacheTTL = DefaultPolicy().CacheTTL
	}

	return policy
}

type noOpCache struct{}

func (noOpCache) Lookup(context.Context, string) (string, bool) { return "", false }
func (noOpCache) Store(context.Context, string, string)          {}
func (noOpCache) Forget(context.Context, string)                 {}

type noOpThrottle struct{}

func (noOpThrottle) Admit(context.Context, string) error { return nil }

type noOpTracer struct{}

func (noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

func (noOpTracer) Event(context.Context, string, map[string]any) {}
