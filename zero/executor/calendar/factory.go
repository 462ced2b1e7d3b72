package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Open builds the configured backend. The returned close function is never nil.
func Open(ctx context.Context, cfg config.CalendarConfig, logger zerolog.Logger, opts ...option.ClientOption) (Calendar, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "local":
		c, err := OpenLibSQL(ctx, cfg.DatabasePath, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case "google":
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		tz := cfg.TimeZone
		if tz == "Local" {
			tz = "" // the API wants an IANA name; offsets in the timestamps are enough
		}
		c, err := NewGoogleCalendar(ctx, cfg.GoogleCalendar, tz, logger, opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "none":
		return Disabled{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown calendar backend %q", cfg.Backend)
	}
}

// Location resolves a configured time zone name; "" and "Local" mean time.Local.
func Location(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}
