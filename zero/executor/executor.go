// Package executor performs resolved commands against the desktop, the calendar
// and the music deck.
package executor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	"github.com/ZanzyTHEbar/zero-assistant/zero/command"
	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor/calendar"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor/media"
)

// TimeReplyLayout renders the current time as "It's 15:04:05 of the day 02-01-2006".
const TimeReplyLayout = "It's 15:04:05 of the day 02-01-2006"

const defaultEventLimit = 10

// ErrNotConfigured is returned for actions whose backend was not provided.
var ErrNotConfigured = errors.New("not configured")

// Deps are the collaborators of an Executor. Nil entries disable the actions that need them.
type Deps struct {
	Opener   Opener
	Launcher Launcher
	Bin      RecycleBin
	Clock    Clock
	Calendar calendar.Calendar
	Library  *media.Library
	Deck     *media.Deck
	Location *time.Location
}

// Executor runs one action at a time in isolation; it keeps no state between actions
// apart from what its collaborators own.
type Executor struct {
	deps      Deps
	webPages  map[string]string
	pageKeys  []pageKey // longest key first
	searchURL string
	folders   map[string]string
	logger    zerolog.Logger
}

func New(cfg config.ExecutorConfig, deps Deps, logger zerolog.Logger) *Executor {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Calendar == nil {
		deps.Calendar = calendar.Disabled{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	pages := lowerKeys(cfg.WebPages)
	return &Executor{
		deps:      deps,
		webPages:  pages,
		pageKeys:  compilePageKeys(pages),
		searchURL: cfg.SearchURL,
		folders:   lowerKeys(cfg.Folders),
		logger:    logger,
	}
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

type pageKey struct {
	re  *regexp.Regexp
	url string
}

func compilePageKeys(pages map[string]string) []pageKey {
	keys := slices.Collect(maps.Keys(pages))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	out := make([]pageKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, pageKey{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`), url: pages[k]})
	}
	return out
}

// Execute performs a and returns the sentence to tell the user.
// Failures are *zero.Error values of kind ActionExecutionFailure.
func (e *Executor) Execute(ctx context.Context, a command.Action) (string, error) {
	op := "execute " + a.Kind().String()
	reply, err := e.execute(ctx, a)
	if err != nil {
		e.logger.Warn().Err(err).Str("kind", a.Kind().String()).Interface("args", a.Args()).Msg("Action failed")
		if zero.KindOf(err) == "" {
			err = zero.E(zero.KindActionExecutionFailure, op, err)
		}
		return "", err
	}
	e.logger.Debug().Str("kind", a.Kind().String()).Msg("Action done")
	return reply, nil
}

func (e *Executor) execute(ctx context.Context, a command.Action) (string, error) {
	switch a := a.(type) {
	case command.OpenPage:
		if e.deps.Opener == nil {
			return "", fmt.Errorf("opener %w", ErrNotConfigured)
		}
		target, err := e.pageURL(a.Target)
		if err != nil {
			return "", err
		}
		if err := e.deps.Opener.Open(ctx, target); err != nil {
			return "", err
		}
		return command.ReplyOpenPage, nil

	case command.OpenFolder:
		if e.deps.Opener == nil {
			return "", fmt.Errorf("opener %w", ErrNotConfigured)
		}
		dir, err := e.folderPath(a.Name)
		if err != nil {
			return "", err
		}
		if err := e.deps.Opener.Open(ctx, dir); err != nil {
			return "", err
		}
		return command.Acknowledge(a), nil

	case command.OpenApp:
		if e.deps.Launcher == nil {
			return "", fmt.Errorf("launcher %w", ErrNotConfigured)
		}
		if err := e.deps.Launcher.Launch(ctx, a.Name); err != nil {
			return "", err
		}
		return command.Acknowledge(a), nil

	case command.CloseApp:
		if e.deps.Launcher == nil {
			return "", fmt.Errorf("launcher %w", ErrNotConfigured)
		}
		if err := e.deps.Launcher.Close(ctx, a.Name); err != nil {
			return "", err
		}
		return command.Acknowledge(a), nil

	case command.EmptyRecycleBin:
		if e.deps.Bin == nil {
			return "", fmt.Errorf("recycle bin %w", ErrNotConfigured)
		}
		n, err := e.deps.Bin.Empty(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("The recycle bin is empty. I removed %d items.", n), nil

	case command.GetCurrentTime:
		return e.deps.Clock.Now().In(e.deps.Location).Format(TimeReplyLayout), nil

	case command.GetNextEvents:
		from, to := a.Period.Bounds(e.deps.Clock.Now().In(e.deps.Location))
		limit := defaultEventLimit
		if a.Count != nil {
			limit = *a.Count
		}
		events, err := e.deps.Calendar.Upcoming(ctx, from, to, limit)
		if err != nil {
			return "", err
		}
		return calendar.Describe(events, e.deps.Location), nil

	case command.SetNewEvent:
		ev, err := e.deps.Calendar.Add(ctx, calendar.Event{
			Summary:  a.Summary,
			Start:    a.Start,
			End:      a.Start.Add(a.Duration),
			Reminder: a.Reminder,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Okay, I added %s on %s.", ev.Summary,
			ev.Start.In(e.deps.Location).Format("Monday 02-01-2006 at 15:04")), nil

	case command.StartPlaylist:
		tracks, err := e.playlist(a.Source)
		if err != nil {
			return "", err
		}
		if err := e.deps.Deck.Play(tracks); err != nil {
			return "", err
		}
		return command.ReplyPlaylist, nil

	case command.StopPlaylist:
		if e.deps.Deck == nil {
			return "", fmt.Errorf("music %w", ErrNotConfigured)
		}
		e.deps.Deck.Stop()
		return command.ReplyStopPlaylist, nil

	case command.PlaySong:
		if e.deps.Library == nil || e.deps.Deck == nil {
			return "", fmt.Errorf("music %w", ErrNotConfigured)
		}
		track, ok := e.deps.Library.Find(a.Name, a.Artist, a.Playlist)
		if !ok {
			return "", fmt.Errorf("I couldn't find %s by %s", a.Name, a.Artist)
		}
		if err := e.deps.Deck.Play([]media.Track{track}); err != nil {
			return "", err
		}
		return command.Acknowledge(a), nil

	case command.GetSongInfo:
		if e.deps.Deck == nil {
			return "", fmt.Errorf("music %w", ErrNotConfigured)
		}
		track, ok := e.deps.Deck.Current()
		if !ok {
			return "Nothing is playing right now.", nil
		}
		return fmt.Sprintf("You're listening to %s.", track), nil

	case command.Unrecognized:
		return "", zero.Errorf(zero.KindUnrecognizedCommand, "execute", "cannot execute %q", a.Text)

	default:
		return "", fmt.Errorf("unsupported action %T", a)
	}
}

func (e *Executor) playlist(source string) ([]media.Track, error) {
	if e.deps.Library == nil || e.deps.Deck == nil {
		return nil, fmt.Errorf("music %w", ErrNotConfigured)
	}
	if source != "" {
		if info, err := os.Stat(source); err == nil && info.IsDir() {
			return e.deps.Library.Folder(source)
		}
	}
	tracks := e.deps.Library.Playlist(source)
	if len(tracks) == 0 {
		return nil, media.ErrEmptyPlaylist
	}
	return tracks, nil
}

var pageSuffixes = []string{" page", " website", " site", " web page"}

// pageURL maps a spoken target to a URL. In order: a configured page named
// exactly, a literal URL or domain, a configured page named anywhere in the
// target ("youtube for me"), then a web search.
func (e *Executor) pageURL(target string) (string, error) {
	t := strings.ToLower(strings.Join(strings.Fields(target), " "))
	for _, s := range pageSuffixes {
		t = strings.TrimSuffix(t, s)
	}
	if t == "" {
		return "", errors.New("no page given")
	}
	if u, ok := e.webPages[t]; ok {
		return u, nil
	}

	if u, err := url.Parse(t); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return u.String(), nil
	}
	if !strings.Contains(t, " ") && strings.Contains(t, ".") {
		return "https://" + t, nil
	}
	for _, k := range e.pageKeys {
		if k.re.MatchString(t) {
			return k.url, nil
		}
	}

	if e.searchURL == "" {
		return "", fmt.Errorf("unknown page %q", target)
	}
	return e.searchURL + "?" + url.Values{"q": {t}}.Encode(), nil
}

func (e *Executor) folderPath(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimSuffix(key, " folder")
	if dir, ok := e.folders[key]; ok {
		return dir, nil
	}
	if filepath.IsAbs(name) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown folder %q", name)
}
