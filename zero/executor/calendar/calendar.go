// Package calendar stores and lists the user's events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is a single calendar entry.
type Event struct {
	ID       string
	Summary  string
	Start    time.Time
	End      time.Time
	Reminder time.Duration
}

// Calendar is the backend behind GetNextEvents and SetNewEvent.
type Calendar interface {
	// Upcoming lists events starting in [from, to), earliest first. limit <= 0 means no limit.
	Upcoming(ctx context.Context, from, to time.Time, limit int) ([]Event, error)
	// Add stores ev and returns it with its ID set.
	Add(ctx context.Context, ev Event) (Event, error)
}

// ErrDisabled is returned by the "none" backend.
var ErrDisabled = errors.New("calendar is disabled")

// Disabled is a Calendar that rejects every call.
type Disabled struct{}

func (Disabled) Upcoming(context.Context, time.Time, time.Time, int) ([]Event, error) {
	return nil, ErrDisabled
}

func (Disabled) Add(context.Context, Event) (Event, error) { return Event{}, ErrDisabled }

var _ Calendar = Disabled{}

func validate(ev Event) error {
	if strings.TrimSpace(ev.Summary) == "" {
		return fmt.Errorf("event summary is empty")
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("event %q has no start time", ev.Summary)
	}
	if !ev.End.After(ev.Start) {
		return fmt.Errorf("event %q ends before it starts", ev.Summary)
	}
	if ev.Reminder < 0 {
		return fmt.Errorf("event %q has a negative reminder", ev.Summary)
	}
	return nil
}

// Describe renders events as a spoken list.
func Describe(events []Event, loc *time.Location) string {
	if len(events) == 0 {
		return "You have no upcoming events."
	}
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	if len(events) == 1 {
		b.WriteString("You have 1 upcoming event:")
	} else {
		fmt.Fprintf(&b, "You have %d upcoming events:", len(events))
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "\n- %s on %s", ev.Summary, ev.Start.In(loc).Format("Monday 02-01-2006 at 15:04"))
	}
	return b.String()
}
