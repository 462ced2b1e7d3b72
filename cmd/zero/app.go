package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/ZanzyTHEbar/zero-assistant/zero/assistant"
	"github.com/ZanzyTHEbar/zero-assistant/zero/command"
	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor/calendar"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/adapters"
)

// app is the fully wired assistant plus the resources it owns.
type app struct {
	session    *harness.SessionManager
	resolver   command.Resolver
	system     *executor.System
	dispatcher *assistant.Dispatcher
	assistant  *assistant.Assistant

	stopWatch context.CancelFunc
	watchers  conc.WaitGroup
	logger    zerolog.Logger
}

// engine is the model-facing half of the app: one session manager and the
// resolver built on it, sharing one Guardrails.
type engine struct {
	session    *harness.SessionManager
	resolver   command.Resolver
	guardrails *harness.Guardrails
}

func newEngine(cfg *config.Config, logger zerolog.Logger) (*engine, error) {
	factory := harness.NewFactory(cfg, logger.With().Str("component", "harness").Logger())
	guardrails, err := factory.CreateGuardrails()
	if err != nil {
		return nil, err
	}
	if guardrails != nil {
		if err := command.RegisterSchemas(guardrails); err != nil {
			return nil, fmt.Errorf("failed to register argument schemas: %w", err)
		}
	}

	provider := adapters.NewHTTPProvider(adapters.HTTPProviderConfig{
		Timeout:            cfg.Inference.Timeout,
		InsecureSkipVerify: cfg.Inference.InsecureSkipVerify,
	}, logger.With().Str("component", "provider").Logger())
	session, err := factory.CreateSessionManager(provider, guardrails)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(cfg, session, guardrails, logger)
	if err != nil {
		return nil, err
	}
	return &engine{session: session, resolver: resolver, guardrails: guardrails}, nil
}

func newResolver(cfg *config.Config, session *harness.SessionManager, guardrails *harness.Guardrails, logger zerolog.Logger) (command.Resolver, error) {
	log := logger.With().Str("component", "resolver").Logger()
	rules := command.NewRuleResolver(cfg.Resolver.WakeWord, nil, log)
	if cfg.Resolver.Strategy == "" || cfg.Resolver.Strategy == command.StrategyRules {
		return rules, nil
	}

	var validator command.ArgValidator
	if guardrails != nil {
		validator = guardrails
	}

	loc, err := calendar.Location(cfg.Calendar.TimeZone)
	if err != nil {
		return nil, err
	}
	model := command.NewModelResolver(session, validator, command.ModelConfig{
		WakeWord:        cfg.Resolver.WakeWord,
		CommandPrompt:   cfg.Resolver.CommandPrompt,
		DatePrompt:      cfg.Resolver.DatePrompt,
		DefaultReminder: cfg.Resolver.DefaultReminder,
		Location:        loc,
	}, log)

	return command.NewResolver(cfg.Resolver.Strategy, rules, model, log)
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	eng, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	system, err := executor.NewSystem(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		session:    eng.session,
		resolver:   eng.resolver,
		system:     system,
		dispatcher: assistant.NewDispatcher(cfg.Executor.Workers, 16, logger.With().Str("component", "dispatcher").Logger()),
		logger:     logger,
	}
	a.assistant = assistant.New(eng.session, eng.resolver, system.Executor, a.dispatcher, assistant.Options{
		WakeWord: cfg.Resolver.WakeWord,
		Strategy: cfg.Resolver.Strategy,
		Preamble: cfg.Session.Preamble,
	}, logger.With().Str("component", "assistant").Logger())

	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	if cfg.Media.Watch {
		a.watchers.Go(func() {
			if err := system.Library.Watch(watchCtx); err != nil {
				logger.Warn().Err(err).Msg("Music folder watch stopped")
			}
		})
	}
	return a, nil
}

// Close waits for queued actions, then releases everything the app owns.
func (a *app) Close() error {
	a.dispatcher.Wait()
	a.stopWatch()
	a.watchers.Wait()
	return a.system.Close()
}
