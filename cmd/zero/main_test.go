package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/zero-assistant/zero/command"
	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
)

func TestConsoleInput(t *testing.T) {
	var prompt bytes.Buffer
	in := newConsoleInput(strings.NewReader("  hello there \nZero, what time is it?\n"), &prompt)
	ctx := context.Background()

	got, err := in.CaptureUtterance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)

	got, err = in.CaptureUtterance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Zero, what time is it?", got)

	_, err = in.CaptureUtterance(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "User: User: User: ", prompt.String())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = in.CaptureUtterance(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, consoleOutput{w: &buf}.RenderSpeech(context.Background(), "Hi!"))
	assert.Equal(t, "Zero: Hi!\n", buf.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestSettingsSealCommand(t *testing.T) {
	dir := t.TempDir()
	key, err := config.GenerateSecretKey()
	require.NoError(t, err)

	in := filepath.Join(dir, "settings.json")
	out := filepath.Join(dir, "settings.data")
	require.NoError(t, os.WriteFile(in, []byte(`{"ai_settings": {"api_url": "https://example.org/model", "context": "You are Zero."}}`), 0o600))

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("log:\n  level: error\n"), 0o600))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"settings", "seal", "--in", in, "--out", out, "--key", key, "--config", cfgFile})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), out)

	settings, err := config.LoadSecureSettings(out, key)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/model", settings.AISettings.APIURL)
	assert.Equal(t, "You are Zero.", settings.AISettings.Context)
}

func TestNewEngineSharesGuardrails(t *testing.T) {
	c := &config.Config{}
	c.Inference.Endpoint = "https://inference.test/models/zero"
	c.Resolver.Strategy = command.StrategyModel
	c.Resolver.WakeWord = "zero"
	c.Calendar.TimeZone = "UTC"
	c.Session.MaxAttempts = 1
	c.Session.MaxElapsed = time.Second
	c.Harness.EnableGuardrails = true
	c.Harness.RedactPatterns = []string{`secret-\d+`}

	eng, err := newEngine(c, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, eng.guardrails)

	// schemas and output filters live on the same instance
	assert.Error(t, eng.guardrails.ValidateArgs("play_song", map[string]any{"name": "", "artist": "x", "playlist": "default"}))
	assert.Equal(t, "[REDACTED]", eng.guardrails.SanitizeOutput("secret-42"))

	c.Harness.EnableGuardrails = false
	eng, err = newEngine(c, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, eng.guardrails)
}

func TestResolveExecuteKeepsPlaylistPlaying(t *testing.T) {
	dir := t.TempDir()
	music := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(music, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(music, "John Lennon - Imagine.mp3"), nil, 0o600))

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`log:
  level: error
calendar:
  backend: none
media:
  music_dir: `+music+`
  player_command: ["sh", "-c", "sleep 0.3", "player"]
  watch: false
`), 0o600))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"resolve", "--execute", "--config", cfgFile, "Zero, play some music"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil); executeResolved = false })

	started := time.Now()
	require.NoError(t, rootCmd.Execute())

	assert.GreaterOrEqual(t, time.Since(started), 300*time.Millisecond)
	assert.Contains(t, stdout.String(), "action: start_playlist")
	assert.Contains(t, stdout.String(), "result: ")
}
