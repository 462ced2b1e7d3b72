package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness"
	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
	"github.com/rs/zerolog"
)

// Completer runs one-shot prompts against the model. *harness.SessionManager implements it.
type Completer interface {
	Complete(ctx context.Context, preamble, userText string) ports.InferenceResult
	CompleteFresh(ctx context.Context, preamble, userText string) ports.InferenceResult
}

// ArgValidator checks extracted arguments of a named action. *harness.Guardrails implements it.
type ArgValidator interface {
	ValidateArgs(name string, args any) error
}

// DefaultCommandPrompt lists the vocabulary as pseudo-function signatures.
const DefaultCommandPrompt = `You translate requests for Zero, a desktop assistant, into exactly one function call.
Available functions:
open_page(page)
open_app(name)
close_app(name)
open_folder(name)
empty_recycle_bin()
get_current_time()
get_next_events(period, count)
set_new_event(summary, date, duration, reminder)
start_playlist(source)
stop_playlist()
play_song(name, artist, playlist)
get_song_info()
Put every argument in double quotes and leave out optional arguments you do not know.
Answer with the function call only. If no function fits, answer none().`

// DefaultDatePrompt asks the model to normalize a relative date. %s is the current time.
const DefaultDatePrompt = `The current date and time is %s.
Convert the date the user gives into an absolute date and time.
Answer only with the date in the format YYYY-MM-DD HH:MM:SS.`

const (
	timestampLayout      = "2006-01-02 15:04:05"
	defaultEventDuration = time.Hour
)

var timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)

// ModelConfig configures a ModelResolver.
type ModelConfig struct {
	WakeWord        string
	CommandPrompt   string        // empty uses DefaultCommandPrompt
	DatePrompt      string        // empty uses DefaultDatePrompt; must contain one %s
	DefaultReminder time.Duration // SetNewEvent reminder when none is given
	Location        *time.Location
}

// extractor turns positional arguments into a typed action.
type extractor struct {
	kind    Kind
	minArgs int
	maxArgs int
	labels  []*regexp.Regexp // fallback `label: value` pairs, in argument order
	build   func(ctx context.Context, r *ModelResolver, args []string) (Action, error)
}

func labels(names ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		out[i] = regexp.MustCompile(fmt.Sprintf(labelValueTmpl, regexp.QuoteMeta(n)))
	}
	return out
}

func noArgs(a Action) func(context.Context, *ModelResolver, []string) (Action, error) {
	return func(context.Context, *ModelResolver, []string) (Action, error) { return a, nil }
}

// extractors is ordered by Priority; the first keyword found in the completion wins.
var extractors = []extractor{
	{
		kind: KindOpenPage, minArgs: 1, maxArgs: 1, labels: labels("page"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			return OpenPage{Target: args[0]}, nil
		},
	},
	{
		kind: KindOpenApp, minArgs: 1, maxArgs: 1, labels: labels("name", "app"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			return OpenApp{Name: args[0]}, nil
		},
	},
	{
		kind: KindCloseApp, minArgs: 1, maxArgs: 1, labels: labels("name", "app"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			return CloseApp{Name: args[0]}, nil
		},
	},
	{
		kind: KindOpenFolder, minArgs: 1, maxArgs: 1, labels: labels("name", "folder"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			return OpenFolder{Name: args[0]}, nil
		},
	},
	{kind: KindEmptyRecycleBin, build: noArgs(EmptyRecycleBin{})},
	{kind: KindGetCurrentTime, build: noArgs(GetCurrentTime{})},
	{
		kind: KindGetNextEvents, minArgs: 0, maxArgs: 2, labels: labels("period", "count"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			action := GetNextEvents{Period: DefaultPeriod}
			if len(args) > 0 {
				period, err := ParsePeriod(args[0])
				if err != nil {
					return nil, err
				}
				action.Period = period
			}
			if len(args) > 1 {
				digits := digitRunRe.FindString(args[1])
				n, err := strconv.Atoi(digits)
				if err != nil {
					return nil, zero.Errorf(zero.KindExtractionFailure, "parse count", "invalid count %q", args[1])
				}
				action.Count = &n
			}
			return action, nil
		},
	},
	{
		kind: KindSetNewEvent, minArgs: 2, maxArgs: 4, labels: labels("summary", "date", "duration", "reminder"),
		build: func(ctx context.Context, r *ModelResolver, args []string) (Action, error) {
			start, err := r.resolveDate(ctx, args[1])
			if err != nil {
				return nil, err
			}
			action := SetNewEvent{
				Summary:  args[0],
				Start:    start,
				Duration: defaultEventDuration,
				Reminder: r.cfg.DefaultReminder,
			}
			if len(args) > 2 {
				if action.Duration, err = ParseDuration(args[2]); err != nil {
					return nil, err
				}
			}
			if len(args) > 3 {
				if action.Reminder, err = ParseDuration(args[3]); err != nil {
					return nil, err
				}
			}
			return action, nil
		},
	},
	{
		kind: KindStartPlaylist, minArgs: 0, maxArgs: 1, labels: labels("source", "playlist"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			if len(args) == 0 {
				return StartPlaylist{}, nil
			}
			return StartPlaylist{Source: args[0]}, nil
		},
	},
	{kind: KindStopPlaylist, build: noArgs(StopPlaylist{})},
	{
		kind: KindPlaySong, minArgs: 2, maxArgs: 3, labels: labels("name", "artist", "playlist"),
		build: func(_ context.Context, _ *ModelResolver, args []string) (Action, error) {
			song := PlaySong{Name: args[0], Artist: args[1], Playlist: zero.DefaultPlaylistName}
			if len(args) > 2 {
				song.Playlist = args[2]
			}
			return song, nil
		},
	},
	{kind: KindGetSongInfo, build: noArgs(GetSongInfo{})},
}

// ModelResolver asks the model to translate the utterance into a pseudo-function call,
// then classifies and parses that call.
type ModelResolver struct {
	completer Completer
	validator ArgValidator
	cfg       ModelConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewModelResolver creates a model-assisted resolver. validator may be nil.
func NewModelResolver(completer Completer, validator ArgValidator, cfg ModelConfig, logger zerolog.Logger) *ModelResolver {
	if cfg.CommandPrompt == "" {
		cfg.CommandPrompt = DefaultCommandPrompt
	}
	if cfg.DatePrompt == "" {
		cfg.DatePrompt = DefaultDatePrompt
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DefaultReminder <= 0 {
		cfg.DefaultReminder = 10 * time.Minute
	}
	return &ModelResolver{
		completer: completer,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Resolve sends the utterance to the model and interprets the completion.
// Any panic while extracting is reported as an extraction failure.
func (r *ModelResolver) Resolve(ctx context.Context, text string) (res Resolution) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Str("text", text).Msg("Command extraction panicked")
			res = extractionFailure(text, zero.Errorf(zero.KindExtractionFailure, "resolve model", "panic: %v", p))
		}
	}()

	utterance, _ := StripWakePrefix(text, r.cfg.WakeWord)
	utterance = normalizeUtterance(utterance)
	if utterance == "" {
		return unrecognized(text, zero.Errorf(zero.KindUnrecognizedCommand, "resolve model", "empty utterance"))
	}

	result := r.completer.Complete(ctx, r.cfg.CommandPrompt, utterance)
	if !result.IsSuccess() {
		return Resolution{
			Action: Unrecognized{Text: text},
			Reply:  harness.FailureReply(result),
			Err:    harness.ResultError(result),
		}
	}

	r.logger.Debug().Str("completion", result.Text).Msg("Model command")
	return r.Interpret(ctx, text, result.Text)
}

// Interpret classifies a completion by keyword in priority order and extracts its arguments.
func (r *ModelResolver) Interpret(ctx context.Context, text, completion string) Resolution {
	lower := strings.ToLower(completion)
	for _, ex := range extractors {
		keyword := ex.kind.String()
		if !strings.Contains(lower, keyword) {
			continue
		}

		action, err := r.extract(ctx, ex, completion)
		if err != nil {
			r.logger.Warn().Err(err).Str("kind", keyword).Str("completion", completion).Msg("Argument extraction failed")
			return extractionFailure(text, err)
		}
		return Resolution{Action: action, Reply: Acknowledge(action)}
	}

	return unrecognized(text, zero.Errorf(zero.KindUnrecognizedCommand, "resolve model", "no command in %q", completion))
}

func (r *ModelResolver) extract(ctx context.Context, ex extractor, completion string) (Action, error) {
	const op = "extract arguments"
	keyword := ex.kind.String()
	if ex.maxArgs == 0 {
		if args, ok := parseCallArgs(completion, keyword); ok {
			if args = dropEmptyTrailing(args); len(args) > 0 {
				return nil, zero.Errorf(zero.KindExtractionFailure, op,
					"%s takes no arguments, got %d", keyword, len(args))
			}
		}
		return ex.build(ctx, r, nil)
	}

	args, ok := parseCallArgs(completion, keyword)
	if !ok || (len(args) == 0 && ex.minArgs > 0) {
		if labeled := parseLabeledArgs(completion, ex.labels); len(labeled) > 0 {
			args = labeled
		} else {
			args = parseTrailingClause(completion, keyword)
		}
	}
	args = dropEmptyTrailing(args)

	if len(args) < ex.minArgs || len(args) > ex.maxArgs {
		return nil, zero.Errorf(zero.KindExtractionFailure, op,
			"%s takes %d to %d arguments, got %d", keyword, ex.minArgs, ex.maxArgs, len(args))
	}

	action, err := ex.build(ctx, r, args)
	if err != nil {
		if zero.KindOf(err) == "" {
			err = zero.E(zero.KindExtractionFailure, op, err)
		}
		return nil, err
	}

	if r.validator != nil {
		if err := r.validator.ValidateArgs(keyword, action.Args()); err != nil {
			return nil, zero.E(zero.KindExtractionFailure, op, err)
		}
	}
	return action, nil
}

// resolveDate turns a date phrase into an absolute time, asking the model when the
// phrase is relative ("tomorrow at noon").
func (r *ModelResolver) resolveDate(ctx context.Context, phrase string) (time.Time, error) {
	const op = "resolve date"

	if ts := timestampRe.FindString(phrase); ts != "" {
		return r.parseTimestamp(ts)
	}

	now := r.now().In(r.cfg.Location)
	preamble := fmt.Sprintf(r.cfg.DatePrompt, now.Format(timestampLayout+" (Monday)"))
	result := r.completer.CompleteFresh(ctx, preamble, phrase)
	if !result.IsSuccess() {
		return time.Time{}, harness.ResultError(result)
	}

	ts := timestampRe.FindString(result.Text)
	if ts == "" {
		return time.Time{}, zero.Errorf(zero.KindExtractionFailure, op, "no timestamp in %q", result.Text)
	}
	return r.parseTimestamp(ts)
}

func (r *ModelResolver) parseTimestamp(ts string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, strings.Replace(ts, "T", " ", 1), r.cfg.Location)
	if err != nil {
		return time.Time{}, zero.E(zero.KindExtractionFailure, "resolve date", err)
	}
	return t, nil
}

func dropEmptyTrailing(args []string) []string {
	for len(args) > 0 {
		switch strings.ToLower(strings.TrimSpace(args[len(args)-1])) {
		case "", "none", "null", "nil":
			args = args[:len(args)-1]
		default:
			return args
		}
	}
	return args
}

func normalizeUtterance(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extractionFailure(text string, err error) Resolution {
	return Resolution{Action: Unrecognized{Text: text}, Reply: ReplyExtraction, Err: err}
}

var _ Resolver = (*ModelResolver)(nil)
