package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// CommandOpener runs a fixed command line (e.g. xdg-open) with the target appended.
type CommandOpener struct {
	Command []string
}

func (o CommandOpener) Open(ctx context.Context, target string) error {
	if len(o.Command) == 0 {
		return errors.New("no opener command configured")
	}
	args := append(append([]string(nil), o.Command[1:]...), target)
	out, err := exec.CommandContext(ctx, o.Command[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", o.Command[0], target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

var _ Opener = CommandOpener{}

// ProcessLauncher starts configured applications and remembers their processes
// so Close can terminate them. Apps outlive the launcher: Shutdown stops tracking
// them without killing anything.
type ProcessLauncher struct {
	apps   map[string][]string
	logger zerolog.Logger

	mu    sync.Mutex
	procs map[string]*exec.Cmd
	wg    sync.WaitGroup
}

// NewProcessLauncher maps spoken app names (case-insensitive) to command lines.
func NewProcessLauncher(apps map[string]string, logger zerolog.Logger) *ProcessLauncher {
	l := &ProcessLauncher{
		apps:   make(map[string][]string, len(apps)),
		logger: logger,
		procs:  make(map[string]*exec.Cmd),
	}
	for name, cmdline := range apps {
		if fields := strings.Fields(cmdline); len(fields) > 0 {
			l.apps[strings.ToLower(name)] = fields
		}
	}
	return l
}

func (l *ProcessLauncher) Launch(ctx context.Context, name string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	argv, ok := l.apps[key]
	if !ok {
		return fmt.Errorf("unknown app %q", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, running := l.procs[key]; running {
		return nil
	}

	// The app outlives the request, so it is not bound to ctx.
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	l.procs[key] = cmd
	l.logger.Info().Str("app", key).Int("pid", cmd.Process.Pid).Msg("App started")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := cmd.Wait()
		l.mu.Lock()
		if l.procs[key] == cmd {
			delete(l.procs, key)
		}
		l.mu.Unlock()
		l.logger.Debug().Err(err).Str("app", key).Msg("App exited")
	}()
	return nil
}

func (l *ProcessLauncher) Close(ctx context.Context, name string) error {
	key := strings.ToLower(strings.TrimSpace(name))

	l.mu.Lock()
	cmd, ok := l.procs[key]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s is not running", name)
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}

// Running reports whether an app started by this launcher is still alive.
func (l *ProcessLauncher) Running(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.procs[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Shutdown forgets every tracked app and leaves it running. Reapers still
// collect the apps when they exit on their own.
func (l *ProcessLauncher) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, cmd := range l.procs {
		l.logger.Debug().Str("app", key).Int("pid", cmd.Process.Pid).Msg("App detached")
	}
	clear(l.procs)
}

var _ Launcher = (*ProcessLauncher)(nil)

// TrashDir empties a freedesktop.org trash directory (files/ and info/).
type TrashDir struct {
	Dir string
}

func (t TrashDir) Empty(ctx context.Context) (int, error) {
	removed := 0
	for _, sub := range []string{"files", "info"} {
		dir := filepath.Join(t.Dir, sub)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to read trash: %w", err)
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return removed, fmt.Errorf("failed to remove %s from trash: %w", e.Name(), err)
			}
			if sub == "files" {
				removed++
			}
		}
	}
	return removed, nil
}

var _ RecycleBin = TrashDir{}
