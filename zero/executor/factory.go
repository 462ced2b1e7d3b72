package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor/calendar"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor/media"
)

// System is an Executor together with the resources it owns.
type System struct {
	*Executor
	Library  *media.Library
	Deck     *media.Deck
	Launcher *ProcessLauncher

	closeCalendar func() error
}

// NewSystem wires the desktop adapters, calendar backend and music deck from cfg.
// calendarOpts are passed to the Google backend.
func NewSystem(ctx context.Context, cfg *config.Config, logger zerolog.Logger, calendarOpts ...option.ClientOption) (*System, error) {
	loc, err := calendar.Location(cfg.Calendar.TimeZone)
	if err != nil {
		return nil, err
	}

	cal, closeCal, err := calendar.Open(ctx, cfg.Calendar, logger.With().Str("component", "calendar").Logger(), calendarOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar: %w", err)
	}

	lib := media.NewLibrary(cfg.Media.MusicDir, cfg.Media.Extensions, logger.With().Str("component", "library").Logger())
	if err := lib.Scan(); err != nil {
		logger.Warn().Err(err).Msg("Music library unavailable")
	}
	deck := media.NewDeck(media.ExecPlayer{Command: cfg.Media.PlayerCommand}, logger.With().Str("component", "deck").Logger())
	launcher := NewProcessLauncher(cfg.Executor.Apps, logger.With().Str("component", "launcher").Logger())

	exec := New(cfg.Executor, Deps{
		Opener:   CommandOpener{Command: cfg.Executor.OpenerCommand},
		Launcher: launcher,
		Bin:      TrashDir{Dir: cfg.Executor.TrashDir},
		Calendar: cal,
		Library:  lib,
		Deck:     deck,
		Location: loc,
	}, logger.With().Str("component", "executor").Logger())

	return &System{
		Executor:      exec,
		Library:       lib,
		Deck:          deck,
		Launcher:      launcher,
		closeCalendar: closeCal,
	}, nil
}

// Close stops playback, detaches launched apps and closes the calendar.
func (s *System) Close() error {
	s.Deck.Stop()
	s.Launcher.Shutdown()
	return s.closeCalendar()
}
