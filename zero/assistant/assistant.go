// Package assistant is the host that routes utterances between chat, command
// resolution and action execution while holding the conversation context.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	"github.com/ZanzyTHEbar/zero-assistant/zero/command"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness"
	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// Greeting is spoken when a session starts.
const Greeting = "Hello! My name is Zero, and I'm your personal assistant. Let's talk!"

// Chatter sends one conversational turn. *harness.SessionManager implements it.
type Chatter interface {
	SendTurn(ctx context.Context, conv harness.ConversationContext, userText string) (ports.InferenceResult, harness.ConversationContext)
}

// Executor performs a resolved action. *executor.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, a command.Action) (string, error)
}

// Route tells which path handled an utterance.
type Route string

const (
	RouteChat    Route = "chat"
	RouteCommand Route = "command"
)

// Reply is the outcome of one utterance.
type Reply struct {
	Text   string
	Route  Route
	Action command.Action // nil for chat
	// Background is set when the action was queued and Text is only the acknowledgement.
	Background bool
	Err        error
}

// Options configure routing.
type Options struct {
	WakeWord string
	Strategy string // command.StrategyRules, StrategyModel or StrategyModelFirst
	Preamble string
}

// Assistant owns the single conversation context of a session. Handle is safe
// for concurrent use; turns are applied one at a time.
type Assistant struct {
	chat       Chatter
	resolver   command.Resolver
	exec       Executor
	dispatcher *Dispatcher
	opts       Options
	logger     zerolog.Logger

	mu   sync.Mutex
	conv harness.ConversationContext
}

// New creates an assistant. dispatcher may be nil, in which case every action runs inline.
func New(chat Chatter, resolver command.Resolver, exec Executor, dispatcher *Dispatcher, opts Options, logger zerolog.Logger) *Assistant {
	if opts.WakeWord == "" {
		opts.WakeWord = zero.DefaultWakeWord
	}
	return &Assistant{
		chat:       chat,
		resolver:   resolver,
		exec:       exec,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		conv:       harness.NewConversation(opts.Preamble),
	}
}

// Conversation returns a snapshot of the current context.
func (a *Assistant) Conversation() harness.ConversationContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conv
}

// Handle routes one utterance. Prefixed utterances ("Zero, ...") are commands;
// everything else is chat, except that model_first offers every utterance to
// the resolver before chatting.
func (a *Assistant) Handle(ctx context.Context, utterance string) Reply {
	a.mu.Lock()
	defer a.mu.Unlock()

	prefixed := command.HasWakePrefix(utterance, a.opts.WakeWord)
	switch {
	case prefixed:
		res := a.resolver.Resolve(ctx, utterance)
		if !res.Recognized() {
			a.logger.Info().Err(res.Err).Str("utterance", utterance).Msg("Command not resolved")
			return Reply{Text: res.Reply, Route: RouteCommand, Action: res.Action, Err: res.Err}
		}
		return a.run(ctx, res)

	case a.opts.Strategy == command.StrategyModelFirst:
		res := a.resolver.Resolve(ctx, utterance)
		if res.Recognized() {
			return a.run(ctx, res)
		}
		if zero.KindOf(res.Err) == zero.KindExtractionFailure {
			return Reply{Text: res.Reply, Route: RouteCommand, Action: res.Action, Err: res.Err}
		}
	}

	return a.converse(ctx, utterance)
}

func (a *Assistant) converse(ctx context.Context, utterance string) Reply {
	result, next := a.chat.SendTurn(ctx, a.conv, utterance)
	if !result.IsSuccess() {
		err := harness.ResultError(result)
		a.logger.Warn().Err(err).Msg("Chat turn failed")
		return Reply{Text: harness.FailureReply(result), Route: RouteChat, Err: err}
	}
	a.conv = next
	return Reply{Text: result.Text, Route: RouteChat}
}

func (a *Assistant) run(ctx context.Context, res command.Resolution) Reply {
	action := res.Action
	kind := action.Kind().String()
	a.logger.Info().Str("kind", kind).Interface("args", action.Args()).Msg("Executing command")

	if a.dispatcher != nil && command.IsBackground(action) {
		a.dispatcher.Submit(kind, func() (string, error) {
			// The request context ends with the turn; background work must not.
			if _, err := a.exec.Execute(context.WithoutCancel(ctx), action); err != nil {
				return ActionFailureReply(err), err
			}
			return "", nil
		})
		return Reply{Text: res.Reply, Route: RouteCommand, Action: action, Background: true}
	}

	text, err := a.exec.Execute(ctx, action)
	if err != nil {
		return Reply{Text: ActionFailureReply(err), Route: RouteCommand, Action: action, Err: err}
	}
	if text == "" {
		text = res.Reply
	}
	return Reply{Text: text, Route: RouteCommand, Action: action}
}

// ActionFailureReply is the sentence spoken when an action could not be performed.
func ActionFailureReply(err error) string {
	if errors.Is(err, zero.ErrUnrecognizedCommand) {
		return command.ReplyUnrecognized
	}
	var zerr *zero.Error
	if errors.As(err, &zerr) && zerr.Err != nil {
		err = zerr.Err
	}
	return fmt.Sprintf("Sorry, I couldn't do that: %v.", err)
}
