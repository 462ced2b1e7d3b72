package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		path := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir,
		"John Lennon - Imagine.mp3",
		"John Lennon - Jealous Guy.flac",
		"The Beatles - Yesterday.mp3",
		"oldies/The Beatles - Yesterday.mp3",
		"oldies/Elvis Presley - Hound Dog.mp3",
		"notes.txt",
		"Untitled.mp3",
	)
	lib := NewLibrary(dir, []string{".mp3", "flac"}, zerolog.Nop())
	require.NoError(t, lib.Scan())
	return lib
}

func TestLibrary_Scan(t *testing.T) {
	lib := newTestLibrary(t)
	assert.Equal(t, 6, lib.Len())

	tr, ok := lib.Find("Untitled", "", "")
	require.True(t, ok)
	assert.Equal(t, "", tr.Artist)
	assert.Equal(t, "Untitled", tr.String())
}

func TestLibrary_Find(t *testing.T) {
	lib := newTestLibrary(t)

	tr, ok := lib.Find("Imagine", "John Lennon", "default")
	require.True(t, ok)
	assert.Equal(t, "Imagine", tr.Title)
	assert.Equal(t, "John Lennon", tr.Artist)
	assert.Equal(t, "Imagine by John Lennon", tr.String())

	// Case and spacing do not matter
	tr, ok = lib.Find("  imagine", "JOHN  lennon", "")
	require.True(t, ok)
	assert.Equal(t, "Imagine", tr.Title)

	// Partial title
	tr, ok = lib.Find("jealous", "John Lennon", "")
	require.True(t, ok)
	assert.Equal(t, "Jealous Guy", tr.Title)

	// Playlist preference
	tr, ok = lib.Find("Yesterday", "The Beatles", "oldies")
	require.True(t, ok)
	assert.Equal(t, "oldies", tr.Playlist)
	tr, ok = lib.Find("Yesterday", "The Beatles", "default")
	require.True(t, ok)
	assert.Equal(t, "default", tr.Playlist)

	_, ok = lib.Find("Imagine", "Elvis Presley", "")
	assert.False(t, ok)
}

func TestLibrary_Playlist(t *testing.T) {
	lib := newTestLibrary(t)

	assert.Len(t, lib.Playlist(""), 6)
	assert.Len(t, lib.Playlist("default"), 6)
	assert.Len(t, lib.Playlist("Oldies"), 2)
	assert.Empty(t, lib.Playlist("jazz"))

	tracks, err := lib.Folder(filepath.Join(lib.Dir(), "oldies"))
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	_, err = lib.Folder(filepath.Join(lib.Dir(), "missing"))
	assert.Error(t, err)
}

func TestLibrary_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	lib := newTestLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	// Keep touching the file until the watcher has picked it up.
	path := filepath.Join(lib.Dir(), "Queen - Bohemian Rhapsody.mp3")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("x"), 0o644)
		_, ok := lib.Find("Bohemian Rhapsody", "Queen", "")
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// blockingPlayer plays until cancelled and records what was started.
type blockingPlayer struct {
	mu      sync.Mutex
	started []string
	fail    map[string]bool
}

func (p *blockingPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	p.started = append(p.started, path)
	fail := p.fail[path]
	p.mu.Unlock()
	if fail {
		return errors.New("unsupported codec")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPlayer) Started() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.started...)
}

func TestDeck_SingleSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	player := &blockingPlayer{}
	deck := NewDeck(player, zerolog.Nop())
	defer deck.Stop()

	require.NoError(t, deck.Play([]Track{{Path: "a.mp3", Title: "A"}}))
	require.Eventually(t, func() bool { return len(player.Started()) == 1 }, time.Second, 5*time.Millisecond)
	cur, ok := deck.Current()
	require.True(t, ok)
	assert.Equal(t, "A", cur.Title)

	// A new session replaces the running one.
	require.NoError(t, deck.Play([]Track{{Path: "b.mp3", Title: "B"}}))
	require.Eventually(t, func() bool {
		cur, ok := deck.Current()
		return ok && cur.Title == "B"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, player.Started())

	deck.Stop()
	_, ok = deck.Current()
	assert.False(t, ok)
}

func TestDeck_SkipsFailingTracks(t *testing.T) {
	defer goleak.VerifyNone(t)

	player := &blockingPlayer{fail: map[string]bool{"bad.mp3": true}}
	deck := NewDeck(player, zerolog.Nop())

	require.NoError(t, deck.Play([]Track{{Path: "bad.mp3"}, {Path: "good.mp3", Title: "Good"}}))
	require.Eventually(t, func() bool {
		cur, ok := deck.Current()
		return ok && cur.Title == "Good"
	}, time.Second, 5*time.Millisecond)

	deck.Stop()
	assert.Equal(t, []string{"bad.mp3", "good.mp3"}, player.Started())
}

func TestDeck_Wait(t *testing.T) {
	defer goleak.VerifyNone(t)

	deck := NewDeck(&blockingPlayer{fail: map[string]bool{"bad.mp3": true}}, zerolog.Nop())
	assert.NoError(t, deck.Wait(context.Background()))

	require.NoError(t, deck.Play([]Track{{Path: "bad.mp3"}}))
	assert.NoError(t, deck.Wait(context.Background()))
	deck.Stop()

	require.NoError(t, deck.Play([]Track{{Path: "good.mp3"}}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, deck.Wait(ctx), context.DeadlineExceeded)
	deck.Stop()
}

func TestDeck_EmptyPlaylist(t *testing.T) {
	deck := NewDeck(&blockingPlayer{}, zerolog.Nop())
	assert.ErrorIs(t, deck.Play(nil), ErrEmptyPlaylist)
	deck.Stop()
}

func TestExecPlayer(t *testing.T) {
	assert.Error(t, ExecPlayer{}.Play(context.Background(), "a.mp3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ExecPlayer{Command: []string{"sleep", "10"}}.Play(ctx, "a.mp3")
	assert.ErrorIs(t, err, context.Canceled)
}
