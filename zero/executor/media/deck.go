package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Player plays one file and blocks until it ends or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, path string) error
}

// ExecPlayer runs an external command line with the file path appended.
type ExecPlayer struct {
	Command []string
}

func (p ExecPlayer) Play(ctx context.Context, path string) error {
	if len(p.Command) == 0 {
		return errors.New("no player command configured")
	}
	args := append(append([]string(nil), p.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player %s failed on %s: %w", p.Command[0], path, err)
	}
	return nil
}

var _ Player = ExecPlayer{}

// ErrEmptyPlaylist is returned when there is nothing to play.
var ErrEmptyPlaylist = errors.New("no songs to play")

// Deck owns the single playback session. Starting a new session stops the
// running one first, so at most one session plays at any time.
type Deck struct {
	player Player
	logger zerolog.Logger

	mu      sync.Mutex
	session *session
}

type session struct {
	id     string
	cancel context.CancelFunc
	wg     *conc.WaitGroup
	done   chan struct{}

	mu      sync.Mutex
	current *Track
}

func NewDeck(player Player, logger zerolog.Logger) *Deck {
	return &Deck{player: player, logger: logger}
}

// Play starts a new session over tracks and returns without waiting for playback.
func (d *Deck) Play(tracks []Track) error {
	if len(tracks) == 0 {
		return ErrEmptyPlaylist
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{id: uuid.NewString(), cancel: cancel, wg: &conc.WaitGroup{}, done: make(chan struct{})}
	queue := append([]Track(nil), tracks...)
	s.wg.Go(func() {
		defer close(s.done)
		d.run(ctx, s, queue)
	})
	d.session = s

	d.logger.Info().Str("session", s.id).Int("tracks", len(queue)).Msg("Playback started")
	return nil
}

func (d *Deck) run(ctx context.Context, s *session, queue []Track) {
	defer s.setCurrent(nil)
	for i := range queue {
		if ctx.Err() != nil {
			return
		}
		t := queue[i]
		s.setCurrent(&t)
		if err := d.player.Play(ctx, t.Path); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn().Err(err).Str("session", s.id).Str("track", t.Path).Msg("Track failed, skipping")
		}
	}
	d.logger.Debug().Str("session", s.id).Msg("Playlist finished")
}

// Stop ends the running session, if any, and waits for it to exit.
func (d *Deck) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Deck) stopLocked() {
	if d.session == nil {
		return
	}
	d.session.cancel()
	d.session.wg.Wait()
	d.logger.Info().Str("session", d.session.id).Msg("Playback stopped")
	d.session = nil
}

// Wait blocks until the running session ends, by finishing or by Stop.
func (d *Deck) Wait(ctx context.Context) error {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the track being played.
func (d *Deck) Current() (Track, bool) {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s == nil {
		return Track{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Track{}, false
	}
	return *s.current, true
}

func (s *session) setCurrent(t *Track) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}
