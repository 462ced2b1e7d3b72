package command

import (
	"context"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	"github.com/rs/zerolog"
)

// Resolver maps an utterance to an action. Implementations never panic and
// report failures inside the Resolution.
type Resolver interface {
	Resolve(ctx context.Context, text string) Resolution
}

// Rule matches when any Positive pattern matches and no Negated pattern does.
type Rule struct {
	Kind     Kind
	Positive []*regexp.Regexp
	Negated  []*regexp.Regexp
	Build    func(rest string) Action
}

func (r Rule) matches(text string) bool {
	for _, neg := range r.Negated {
		if neg.MatchString(text) {
			return false
		}
	}
	for _, pos := range r.Positive {
		if pos.MatchString(text) {
			return true
		}
	}
	return false
}

const negators = `(?:not|don't|dont|do not|never)`

func positive(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + pattern)
}

func negated(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + negators + `\s+` + pattern)
}

var openTargetRe = regexp.MustCompile(`(?i)\bopen\s+(?:the\s+|up\s+)?(.*?)[\s.!?]*$`)

// DefaultRules returns the fast-path rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:     KindOpenPage,
			Positive: []*regexp.Regexp{positive(`open\b`)},
			Negated:  []*regexp.Regexp{negated(`open\b`)},
			Build: func(rest string) Action {
				target := ""
				if m := openTargetRe.FindStringSubmatch(rest); m != nil {
					target = strings.TrimSpace(m[1])
				}
				return OpenPage{Target: target}
			},
		},
		{
			Kind:     KindEmptyRecycleBin,
			Positive: []*regexp.Regexp{positive(`(?:clean|empty)\s+(?:up\s+)?(?:the\s+)?(?:recycle|trash)`)},
			Negated:  []*regexp.Regexp{negated(`(?:clean|empty)\b`)},
			Build:    func(string) Action { return EmptyRecycleBin{} },
		},
		{
			Kind:     KindGetCurrentTime,
			Positive: []*regexp.Regexp{positive(`what\s+time\b`), positive(`tell\b.*\btime\b`)},
			Negated:  []*regexp.Regexp{negated(`tell\b`)},
			Build:    func(string) Action { return GetCurrentTime{} },
		},
		{
			Kind:     KindStopPlaylist,
			Positive: []*regexp.Regexp{positive(`stop\b`)},
			Negated:  []*regexp.Regexp{negated(`stop\b`)},
			Build:    func(string) Action { return StopPlaylist{} },
		},
		{
			Kind:     KindStartPlaylist,
			Positive: []*regexp.Regexp{positive(`play\b`)},
			Negated:  []*regexp.Regexp{negated(`play\b`)},
			Build:    func(string) Action { return StartPlaylist{} },
		},
	}
}

// HasWakePrefix reports whether text starts with the wake word followed by a comma.
func HasWakePrefix(text, wakeWord string) bool {
	_, ok := StripWakePrefix(text, wakeWord)
	return ok
}

// StripWakePrefix removes "<wake word>," from the start of text.
func StripWakePrefix(text, wakeWord string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	prefix := strings.ToLower(wakeWord) + ","
	if wakeWord == "" || !strings.HasPrefix(strings.ToLower(trimmed), prefix) {
		return trimmed, false
	}
	return strings.TrimSpace(trimmed[len(prefix):]), true
}

// RuleResolver is the fast path: wake word, then the first matching rule.
type RuleResolver struct {
	wakeWord string
	rules    []Rule
	logger   zerolog.Logger
}

// NewRuleResolver creates a rule resolver. A nil rules slice uses DefaultRules.
func NewRuleResolver(wakeWord string, rules []Rule, logger zerolog.Logger) *RuleResolver {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RuleResolver{wakeWord: wakeWord, rules: rules, logger: logger}
}

// Resolve applies the rules in order; the first applicable rule wins.
func (r *RuleResolver) Resolve(ctx context.Context, text string) Resolution {
	rest, ok := StripWakePrefix(text, r.wakeWord)
	if !ok {
		return unrecognized(text, zero.Errorf(zero.KindUnrecognizedCommand, "resolve rules", "missing wake word %q", r.wakeWord))
	}

	for _, rule := range r.rules {
		if !rule.matches(rest) {
			continue
		}
		action := rule.Build(rest)
		r.logger.Debug().Str("kind", action.Kind().String()).Msg("Rule matched")
		return Resolution{Action: action, Reply: Acknowledge(action)}
	}

	return unrecognized(text, zero.Errorf(zero.KindUnrecognizedCommand, "resolve rules", "no rule matches %q", rest))
}

func unrecognized(text string, err error) Resolution {
	return Resolution{Action: Unrecognized{Text: text}, Reply: ReplyUnrecognized, Err: err}
}

var _ Resolver = (*RuleResolver)(nil)
