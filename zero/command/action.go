package command

import (
	"fmt"
	"time"
)

// Kind identifies an action in the closed vocabulary.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindOpenPage
	KindOpenApp
	KindCloseApp
	KindOpenFolder
	KindEmptyRecycleBin
	KindGetCurrentTime
	KindGetNextEvents
	KindSetNewEvent
	KindStartPlaylist
	KindStopPlaylist
	KindPlaySong
	KindGetSongInfo
)

var kindNames = [...]string{
	KindUnrecognized:    "unrecognized",
	KindOpenPage:        "open_page",
	KindOpenApp:         "open_app",
	KindCloseApp:        "close_app",
	KindOpenFolder:      "open_folder",
	KindEmptyRecycleBin: "empty_recycle_bin",
	KindGetCurrentTime:  "get_current_time",
	KindGetNextEvents:   "get_next_events",
	KindSetNewEvent:     "set_new_event",
	KindStartPlaylist:   "start_playlist",
	KindStopPlaylist:    "stop_playlist",
	KindPlaySong:        "play_song",
	KindGetSongInfo:     "get_song_info",
}

// String returns the pseudo-function name of the kind, e.g. "play_song".
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Priority is the fixed order in which kinds are tried when classifying a completion.
var Priority = []Kind{
	KindOpenPage,
	KindOpenApp,
	KindCloseApp,
	KindOpenFolder,
	KindEmptyRecycleBin,
	KindGetCurrentTime,
	KindGetNextEvents,
	KindSetNewEvent,
	KindStartPlaylist,
	KindStopPlaylist,
	KindPlaySong,
	KindGetSongInfo,
}

// Action is a resolved command. The concrete types below are the only implementations.
type Action interface {
	Kind() Kind
	// Args returns the arguments as JSON-friendly values for validation and logging.
	Args() map[string]any
}

type (
	OpenPage struct{ Target string }
	OpenApp  struct{ Name string }
	CloseApp struct{ Name string }
	// OpenFolder names a configured folder alias or a path.
	OpenFolder      struct{ Name string }
	EmptyRecycleBin struct{}
	GetCurrentTime  struct{}
	GetNextEvents   struct {
		Period Period
		Count  *int // nil lets the calendar decide
	}
	SetNewEvent struct {
		Summary  string
		Start    time.Time
		Duration time.Duration
		Reminder time.Duration
	}
	// StartPlaylist plays a folder; an empty Source means the music directory.
	StartPlaylist struct{ Source string }
	StopPlaylist  struct{}
	PlaySong      struct {
		Name     string
		Artist   string
		Playlist string
	}
	GetSongInfo  struct{}
	Unrecognized struct{ Text string }
)

func (OpenPage) Kind() Kind        { return KindOpenPage }
func (OpenApp) Kind() Kind         { return KindOpenApp }
func (CloseApp) Kind() Kind        { return KindCloseApp }
func (OpenFolder) Kind() Kind      { return KindOpenFolder }
func (EmptyRecycleBin) Kind() Kind { return KindEmptyRecycleBin }
func (GetCurrentTime) Kind() Kind  { return KindGetCurrentTime }
func (GetNextEvents) Kind() Kind   { return KindGetNextEvents }
func (SetNewEvent) Kind() Kind     { return KindSetNewEvent }
func (StartPlaylist) Kind() Kind   { return KindStartPlaylist }
func (StopPlaylist) Kind() Kind    { return KindStopPlaylist }
func (PlaySong) Kind() Kind        { return KindPlaySong }
func (GetSongInfo) Kind() Kind     { return KindGetSongInfo }
func (Unrecognized) Kind() Kind    { return KindUnrecognized }

func (a OpenPage) Args() map[string]any   { return map[string]any{"target": a.Target} }
func (a OpenApp) Args() map[string]any    { return map[string]any{"name": a.Name} }
func (a CloseApp) Args() map[string]any   { return map[string]any{"name": a.Name} }
func (a OpenFolder) Args() map[string]any { return map[string]any{"name": a.Name} }
func (EmptyRecycleBin) Args() map[string]any {
	return map[string]any{}
}
func (GetCurrentTime) Args() map[string]any { return map[string]any{} }

func (a GetNextEvents) Args() map[string]any {
	args := map[string]any{"period": a.Period.Label}
	if a.Count != nil {
		args["count"] = *a.Count
	}
	return args
}

func (a SetNewEvent) Args() map[string]any {
	return map[string]any{
		"summary":          a.Summary,
		"start":            a.Start.Format(time.RFC3339),
		"duration_minutes": int(a.Duration / time.Minute),
		"reminder_minutes": int(a.Reminder / time.Minute),
	}
}

func (a StartPlaylist) Args() map[string]any { return map[string]any{"source": a.Source} }
func (StopPlaylist) Args() map[string]any    { return map[string]any{} }

func (a PlaySong) Args() map[string]any {
	return map[string]any{"name": a.Name, "artist": a.Artist, "playlist": a.Playlist}
}

func (GetSongInfo) Args() map[string]any    { return map[string]any{} }
func (a Unrecognized) Args() map[string]any { return map[string]any{"text": a.Text} }

// IsBackground reports whether an action only needs an acknowledgement up front
// and may run after the reply has been spoken.
func IsBackground(a Action) bool {
	switch a.Kind() {
	case KindOpenPage, KindOpenApp, KindCloseApp, KindOpenFolder,
		KindEmptyRecycleBin, KindStartPlaylist, KindStopPlaylist, KindPlaySong:
		return true
	default:
		return false
	}
}

// Resolution is the outcome of resolving one utterance.
// Err is nil for a recognized action; otherwise Action is Unrecognized and
// Reply is the text to show the user.
type Resolution struct {
	Action Action
	Reply  string
	Err    error
}

// Recognized reports whether a real action was resolved.
func (r Resolution) Recognized() bool {
	return r.Err == nil && r.Action != nil && r.Action.Kind() != KindUnrecognized
}

const (
	ReplyOpenPage     = "Right, I'm opening the page right now. If it doesn't show up, it either means the page doesn't exist or that it can't be reached."
	ReplyEmptyBin     = "Okay, I'm cleaning up the recycle bin right now. It might take a few minutes, so please be patient."
	ReplyStopPlaylist = "Stopping playlist..."
	ReplyPlaylist     = "Starting playlist..."
	ReplyUnrecognized = "Sorry, but I cannot execute this command."
	ReplyExtraction   = "Sorry, I understood the command but not its details. Could you say it again?"
)

// Acknowledge returns the sentence spoken before a background action runs.
// Actions whose answer comes from the executor return "".
func Acknowledge(a Action) string {
	switch a := a.(type) {
	case OpenPage:
		return ReplyOpenPage
	case OpenApp:
		return fmt.Sprintf("Opening %s.", a.Name)
	case CloseApp:
		return fmt.Sprintf("Closing %s.", a.Name)
	case OpenFolder:
		return fmt.Sprintf("Opening the %s folder.", a.Name)
	case EmptyRecycleBin:
		return ReplyEmptyBin
	case StartPlaylist:
		return ReplyPlaylist
	case StopPlaylist:
		return ReplyStopPlaylist
	case PlaySong:
		return fmt.Sprintf("Playing %s by %s.", a.Name, a.Artist)
	case Unrecognized:
		return ReplyUnrecognized
	default:
		return ""
	}
}
