package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar talks to the Google Calendar API. Authorization is supplied by
// the caller through client options (credentials file, token source or HTTP client).
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	timeZone   string
	logger     zerolog.Logger
}

// NewGoogleCalendar creates a client for calendarID ("primary" when empty).
func NewGoogleCalendar(ctx context.Context, calendarID, timeZone string, logger zerolog.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, timeZone: timeZone, logger: logger}, nil
}

func (g *GoogleCalendar) Upcoming(ctx context.Context, from, to time.Time, limit int) ([]Event, error) {
	call := g.svc.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list google events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, err := fromGoogle(item)
		if err != nil {
			g.logger.Warn().Err(err).Str("id", item.Id).Msg("Skipping unreadable event")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (g *GoogleCalendar) Add(ctx context.Context, ev Event) (Event, error) {
	if err := validate(ev); err != nil {
		return Event{}, err
	}

	item := &gcal.Event{
		Summary: ev.Summary,
		Start:   &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.timeZone},
		End:     &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: g.timeZone},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: int64(ev.Reminder / time.Minute)}},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, item).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to insert google event: %w", err)
	}
	ev.ID = created.Id
	g.logger.Info().Str("id", ev.ID).Str("summary", ev.Summary).Msg("Google event added")
	return ev, nil
}

func fromGoogle(item *gcal.Event) (Event, error) {
	start, err := googleTime(item.Start)
	if err != nil {
		return Event{}, err
	}
	end, err := googleTime(item.End)
	if err != nil {
		return Event{}, err
	}
	ev := Event{ID: item.Id, Summary: item.Summary, Start: start, End: end}
	if item.Reminders != nil && len(item.Reminders.Overrides) > 0 {
		ev.Reminder = time.Duration(item.Reminders.Overrides[0].Minutes) * time.Minute
	}
	return ev, nil
}

// googleTime handles both timed events and all-day events.
func googleTime(dt *gcal.EventDateTime) (time.Time, error) {
	switch {
	case dt == nil:
		return time.Time{}, fmt.Errorf("missing event time")
	case dt.DateTime != "":
		return time.Parse(time.RFC3339, dt.DateTime)
	case dt.Date != "":
		return time.ParseInLocation("2006-01-02", dt.Date, time.Local)
	default:
		return time.Time{}, fmt.Errorf("empty event time")
	}
}

var _ Calendar = (*GoogleCalendar)(nil)
