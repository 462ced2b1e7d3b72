package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
)

func openTestCalendar(t *testing.T) *LibSQLCalendar {
	t.Helper()
	c, err := OpenLibSQL(context.Background(), filepath.Join(t.TempDir(), "calendar.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLibSQLCalendar_AddAndUpcoming(t *testing.T) {
	c := openTestCalendar(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, summary := range []string{"Standup", "Dentist", "Dinner"} {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		ev, err := c.Add(ctx, Event{Summary: summary, Start: start, End: start.Add(time.Hour), Reminder: 10 * time.Minute})
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
	}

	events, err := c.Upcoming(ctx, base, base.Add(48*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, "Dentist", events[1].Summary)
	assert.True(t, events[1].Start.Equal(base.Add(24*time.Hour)))
	assert.Equal(t, 10*time.Minute, events[1].Reminder)

	events, err = c.Upcoming(ctx, base, base.Add(7*24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Summary)
}

func TestLibSQLCalendar_OrdersAcrossTimeZones(t *testing.T) {
	c := openTestCalendar(t)
	ctx := context.Background()
	plus2 := time.FixedZone("UTC+2", 2*60*60)

	// 10:00 at UTC+2 is 08:00 UTC, before 09:00 UTC.
	late := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	early := time.Date(2024, 5, 1, 10, 0, 0, 0, plus2)
	_, err := c.Add(ctx, Event{Summary: "late", Start: late, End: late.Add(time.Hour)})
	require.NoError(t, err)
	_, err = c.Add(ctx, Event{Summary: "early", Start: early, End: early.Add(time.Hour)})
	require.NoError(t, err)

	events, err := c.Upcoming(ctx, late.Add(-24*time.Hour), late.Add(24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].Summary)
}

func TestLibSQLCalendar_RejectsInvalidEvents(t *testing.T) {
	c := openTestCalendar(t)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := c.Add(context.Background(), Event{Summary: " ", Start: start, End: start.Add(time.Hour)})
	assert.Error(t, err)
	_, err = c.Add(context.Background(), Event{Summary: "x", Start: start, End: start})
	assert.Error(t, err)
	_, err = c.Add(context.Background(), Event{Summary: "x"})
	assert.Error(t, err)
}

func TestLibSQLCalendar_ReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calendar.db")
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	c, err := OpenLibSQL(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	_, err = c.Add(ctx, Event{Summary: "Standup", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenLibSQL(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	events, err := c.Upcoming(ctx, start, start.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGoogleCalendar(t *testing.T) {
	var inserted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/calendars/primary/events"):
			assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
			assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
			assert.Equal(t, "2", r.URL.Query().Get("maxResults"))
			_, _ = w.Write([]byte(`{"items": [
				{"id": "a", "summary": "Standup", "start": {"dateTime": "2024-05-01T09:00:00Z"}, "end": {"dateTime": "2024-05-01T09:15:00Z"},
				 "reminders": {"useDefault": false, "overrides": [{"method": "popup", "minutes": 5}]}},
				{"id": "b", "summary": "Holiday", "start": {"date": "2024-05-02"}, "end": {"date": "2024-05-03"}},
				{"id": "c", "summary": "Broken"}
			]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/calendars/primary/events"):
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
			_, _ = w.Write([]byte(`{"id": "new-id"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	g, err := NewGoogleCalendar(ctx, "", "Europe/Paris", zerolog.Nop(),
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	events, err := g.Upcoming(ctx, from, from.Add(7*24*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, 5*time.Minute, events[0].Reminder)
	assert.Equal(t, "Holiday", events[1].Summary)

	start := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	ev, err := g.Add(ctx, Event{Summary: "Dentist", Start: start, End: start.Add(time.Hour), Reminder: 10 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "new-id", ev.ID)
	require.NotNil(t, inserted)
	assert.Equal(t, "Dentist", inserted["summary"])
	startField, ok := inserted["start"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-05-02T15:00:00Z", startField["dateTime"])
	assert.Equal(t, "Europe/Paris", startField["timeZone"])
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cal, closeFn, err := Open(ctx, config.CalendarConfig{Backend: "none"}, zerolog.Nop())
	require.NoError(t, err)
	_, err = cal.Upcoming(ctx, time.Now(), time.Now(), 0)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, closeFn())

	cal, closeFn, err = Open(ctx, config.CalendarConfig{Backend: "local", DatabasePath: filepath.Join(t.TempDir(), "c.db")}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LibSQLCalendar{}, cal)
	assert.NoError(t, closeFn())

	_, closeFn, err = Open(ctx, config.CalendarConfig{Backend: "exchange"}, zerolog.Nop())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "You have no upcoming events.", Describe(nil, time.UTC))

	start := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	got := Describe([]Event{{Summary: "Dentist", Start: start}}, time.UTC)
	assert.Equal(t, "You have 1 upcoming event:\n- Dentist on Thursday 02-05-2024 at 15:00", got)

	got = Describe([]Event{{Summary: "A", Start: start}, {Summary: "B", Start: start}}, time.UTC)
	assert.True(t, strings.HasPrefix(got, "You have 2 upcoming events:"))
}

func TestLocation(t *testing.T) {
	loc, err := Location("Local")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Location("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = Location("Mars/Olympus")
	assert.Error(t, err)
}
