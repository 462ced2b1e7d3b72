package zero

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "zero"

	// DefaultWakeWord prefixes utterances that should be treated as commands.
	DefaultWakeWord = "zero"

	DefaultPlaylistName = "default"
)

var (
	DefaultConfigPath   = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultDataDir      = filepath.Join(userDataDir(), DefaultAppName)
	DefaultCalendarPath = filepath.Join(DefaultDataDir, "calendar.db")
	DefaultMusicDir     = filepath.Join(userHomeDir(), "Music")
	DefaultTrashDir     = filepath.Join(userDataDir(), "Trash")
)

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(userHomeDir(), ".config")
	}
	return dir
}

// userDataDir follows XDG_DATA_HOME and falls back to ~/.local/share.
func userDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(userHomeDir(), ".local", "share")
}
