package calendar

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Times are stored as fixed-width UTC text so that string order is time order.
const storedTimeLayout = "2006-01-02T15:04:05Z"

// LibSQLCalendar keeps events in an embedded libsql database.
type LibSQLCalendar struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenLibSQL opens (creating if needed) the database at path and applies migrations.
func OpenLibSQL(ctx context.Context, path string, logger zerolog.Logger) (*LibSQLCalendar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create calendar directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("Calendar database ready")
	return &LibSQLCalendar{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open calendar migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectTurso, db, dir)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run calendar migrations: %w", err)
	}
	return nil
}

func (c *LibSQLCalendar) Close() error {
	return c.db.Close()
}

func (c *LibSQLCalendar) Upcoming(ctx context.Context, from, to time.Time, limit int) ([]Event, error) {
	query := `SELECT id, summary, starts_at, ends_at, reminder_minutes
		FROM events WHERE starts_at >= ? AND starts_at < ? ORDER BY starts_at, id`
	args := []any{formatTime(from), formatTime(to)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev             Event
			start, end     string
			reminderMinute int64
		)
		if err := rows.Scan(&ev.ID, &ev.Summary, &start, &end, &reminderMinute); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if ev.Start, err = time.Parse(storedTimeLayout, start); err != nil {
			return nil, fmt.Errorf("event %s has a bad start time: %w", ev.ID, err)
		}
		if ev.End, err = time.Parse(storedTimeLayout, end); err != nil {
			return nil, fmt.Errorf("event %s has a bad end time: %w", ev.ID, err)
		}
		ev.Reminder = time.Duration(reminderMinute) * time.Minute
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (c *LibSQLCalendar) Add(ctx context.Context, ev Event) (Event, error) {
	if err := validate(ev); err != nil {
		return Event{}, err
	}
	ev.ID = uuid.NewString()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO events (id, summary, starts_at, ends_at, reminder_minutes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Summary, formatTime(ev.Start), formatTime(ev.End), int64(ev.Reminder/time.Minute), formatTime(time.Now()))
	if err != nil {
		return Event{}, fmt.Errorf("failed to insert event: %w", err)
	}

	c.logger.Info().Str("id", ev.ID).Str("summary", ev.Summary).Time("start", ev.Start).Msg("Event added")
	return ev, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

var _ Calendar = (*LibSQLCalendar)(nil)
