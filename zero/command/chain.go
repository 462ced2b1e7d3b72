package command

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	"github.com/rs/zerolog"
)

// Strategy names accepted by NewResolver.
const (
	StrategyRules      = "rules"       // wake word + rules only
	StrategyModel      = "model"       // model first, rules as fallback, wake word required
	StrategyModelFirst = "model_first" // every utterance is offered to the model
)

// ChainResolver tries resolvers in order and returns the first recognized action.
//
// An extraction failure stops the chain: the command was identified but its
// arguments were not, and a later resolver guessing a different action would be worse.
type ChainResolver struct {
	resolvers []Resolver
}

func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

func (c *ChainResolver) Resolve(ctx context.Context, text string) Resolution {
	var (
		best Resolution
		seen bool
	)
	for _, r := range c.resolvers {
		res := r.Resolve(ctx, text)
		if res.Recognized() || zero.KindOf(res.Err) == zero.KindExtractionFailure {
			return res
		}
		// Prefer a real failure (endpoint down) over a plain "no match".
		if !seen || (zero.KindOf(best.Err) == zero.KindUnrecognizedCommand &&
			zero.KindOf(res.Err) != zero.KindUnrecognizedCommand) {
			best, seen = res, true
		}
	}
	if !seen {
		return unrecognized(text, zero.Errorf(zero.KindUnrecognizedCommand, "resolve", "no resolver configured"))
	}
	return best
}

var _ Resolver = (*ChainResolver)(nil)

// NewResolver builds the resolver for a strategy. model may be nil for StrategyRules.
func NewResolver(strategy string, rules *RuleResolver, model *ModelResolver, logger zerolog.Logger) (Resolver, error) {
	switch strategy {
	case "", StrategyRules:
		return rules, nil
	case StrategyModel, StrategyModelFirst:
		if model == nil {
			return nil, fmt.Errorf("strategy %q needs a model resolver", strategy)
		}
		logger.Debug().Str("strategy", strategy).Msg("Model-assisted command resolution enabled")
		return NewChainResolver(model, rules), nil
	default:
		return nil, fmt.Errorf("unknown resolver strategy %q", strategy)
	}
}
