// Package media indexes the music folder and plays tracks from it.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
)

// Track is one audio file. Files are expected to be named "Artist - Title.ext".
type Track struct {
	Path     string
	Artist   string
	Title    string
	Playlist string // folder relative to the music directory, zero.DefaultPlaylistName for the root
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " by " + t.Artist
}

// Library is an in-memory index of the music directory keyed by "artist - title".
type Library struct {
	dir    string
	exts   map[string]bool
	logger zerolog.Logger

	mu     sync.RWMutex
	tree   *radix.Tree // key -> []Track
	tracks []Track
}

// NewLibrary creates an empty index over dir. Call Scan to fill it.
func NewLibrary(dir string, extensions []string, logger zerolog.Logger) *Library {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Library{dir: dir, exts: exts, logger: logger, tree: radix.New()}
}

func (l *Library) Dir() string { return l.dir }

func (l *Library) isAudio(path string) bool {
	return l.exts[strings.ToLower(filepath.Ext(path))]
}

// Scan rebuilds the index from disk.
func (l *Library) Scan() error {
	tree := radix.New()
	var tracks []Track

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.isAudio(path) {
			return nil
		}
		t := l.parseTrack(path)
		tracks = append(tracks, t)
		key := indexKey(t.Artist, t.Title)
		existing, _ := tree.Get(key)
		list, _ := existing.([]Track)
		tree.Insert(key, append(list, t))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan music directory %s: %w", l.dir, err)
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Path < tracks[j].Path })

	l.mu.Lock()
	l.tree, l.tracks = tree, tracks
	l.mu.Unlock()

	l.logger.Debug().Str("dir", l.dir).Int("tracks", len(tracks)).Msg("Music library scanned")
	return nil
}

func (l *Library) parseTrack(path string) Track {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t := Track{Path: path, Title: strings.TrimSpace(base), Playlist: zero.DefaultPlaylistName}
	if artist, title, ok := strings.Cut(base, " - "); ok {
		t.Artist, t.Title = strings.TrimSpace(artist), strings.TrimSpace(title)
	}
	if rel, err := filepath.Rel(l.dir, filepath.Dir(path)); err == nil && rel != "." {
		t.Playlist = filepath.ToSlash(rel)
	}
	return t
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func indexKey(artist, title string) string {
	return normalize(artist) + " - " + normalize(title)
}

// Len returns the number of indexed tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Find looks a song up by title and artist. An exact match wins; otherwise the
// first track by that artist whose title contains name. Tracks in playlist are
// preferred when several match.
func (l *Library) Find(name, artist, playlist string) (Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if v, ok := l.tree.Get(indexKey(artist, name)); ok {
		return pick(v.([]Track), playlist), true
	}

	want := normalize(name)
	prefix := ""
	if a := normalize(artist); a != "" {
		prefix = a + " - "
	}
	var candidates []Track
	l.tree.WalkPrefix(prefix, func(key string, v interface{}) bool {
		_, title, _ := strings.Cut(key, " - ")
		if strings.Contains(title, want) {
			candidates = append(candidates, v.([]Track)...)
		}
		return false
	})
	if len(candidates) == 0 {
		return Track{}, false
	}
	return pick(candidates, playlist), true
}

func pick(tracks []Track, playlist string) Track {
	for _, t := range tracks {
		if strings.EqualFold(t.Playlist, playlist) {
			return t
		}
	}
	return tracks[0]
}

// Playlist returns the tracks of a playlist folder in path order.
// "" and zero.DefaultPlaylistName mean the whole library.
func (l *Library) Playlist(name string) []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if name == "" || strings.EqualFold(name, zero.DefaultPlaylistName) {
		return append([]Track(nil), l.tracks...)
	}
	var out []Track
	for _, t := range l.tracks {
		if strings.EqualFold(t.Playlist, name) || strings.HasPrefix(strings.ToLower(t.Playlist), strings.ToLower(name)+"/") {
			out = append(out, t)
		}
	}
	return out
}

// Folder lists the audio files directly inside dir, for playlists given as a path.
func (l *Library) Folder(dir string) ([]Track, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist folder: %w", err)
	}
	var out []Track
	for _, e := range entries {
		if e.IsDir() || !l.isAudio(e.Name()) {
			continue
		}
		t := l.parseTrack(filepath.Join(dir, e.Name()))
		t.Playlist = dir
		out = append(out, t)
	}
	return out, nil
}

// Watch rescans the library whenever audio files change under the music
// directory. It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch music directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			l.handleEvent(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn().Err(err).Msg("Music watcher error")
		}
	}
}

func (l *Library) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.Add(ev.Name); err != nil {
				l.logger.Warn().Err(err).Str("dir", ev.Name).Msg("Failed to watch new folder")
			}
			l.rescan()
			return
		}
	}
	if !l.isAudio(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	l.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Music folder changed")
	l.rescan()
}

func (l *Library) rescan() {
	if err := l.Scan(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn().Err(err).Msg("Music rescan failed")
	}
}
