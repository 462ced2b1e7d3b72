package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/zero-assistant/zero/command"
	"github.com/ZanzyTHEbar/zero-assistant/zero/config"
	"github.com/ZanzyTHEbar/zero-assistant/zero/executor"
	"github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session (the default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("Shutdown incomplete")
		}
	}()

	speaker := consoleOutput{w: out}
	if cfg.Session.Warmup {
		logger.Info().Msg("Waking up the model")
		if result := a.session.Warmup(ctx); !result.IsSuccess() {
			_ = speaker.RenderSpeech(ctx, harness.FailureReply(result))
			return harness.ResultError(result)
		}
	}

	return a.assistant.Run(ctx, newConsoleInput(in, out), speaker)
}

var executeResolved bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <utterance>",
	Short: "Resolve an utterance into a command without chatting",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}

		res := eng.resolver.Resolve(ctx, strings.Join(args, " "))
		argsJSON, _ := json.Marshal(res.Action.Args())
		fmt.Fprintf(cmd.OutOrStdout(), "action: %s\nargs:   %s\nreply:  %s\n", res.Action.Kind(), argsJSON, res.Reply)
		if !res.Recognized() {
			return res.Err
		}
		if !executeResolved {
			return nil
		}

		system, err := executor.NewSystem(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer system.Close()
		text, err := system.Execute(ctx, res.Action)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "result: %s\n", text)

		// Playback belongs to this process; keep it alive until the music ends.
		switch res.Action.(type) {
		case command.StartPlaylist, command.PlaySong:
			if err := system.Deck.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}
		return nil
	},
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Send the warm-up request and wait until the model is loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}
		result := eng.session.Warmup(cmd.Context())
		if !result.IsSuccess() {
			fmt.Fprintln(cmd.OutOrStdout(), harness.FailureReply(result))
			return harness.ResultError(result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "The model is ready.")
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the encrypted settings file",
}

var (
	sealInput  string
	sealOutput string
	sealKey    string
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Encrypt a plain JSON settings file",
	Long: `Encrypt a JSON file of the form {"ai_settings": {"api_url": "...", "context": "..."}}.
The key comes from --key or the configured secret key (ZERO_SECRET_KEY).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := sealKey
		if key == "" {
			key = cfg.Inference.SecretKey
		}
		if key == "" {
			return errors.New("no secret key: pass --key or set ZERO_SECRET_KEY")
		}

		raw, err := os.ReadFile(sealInput)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", sealInput, err)
		}
		var settings config.SecureSettings
		if err := json.Unmarshal(raw, &settings); err != nil {
			return fmt.Errorf("%s is not a valid settings file: %w", sealInput, err)
		}

		out := sealOutput
		if out == "" {
			out = cfg.Inference.SettingsFile
		}
		if out == "" {
			return errors.New("no output file: pass --out or set inference.settings_file")
		}
		if err := config.SaveSecureJSON(out, settings, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sealed settings written to %s\n", out)
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a new secret key for the settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := config.GenerateSecretKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&executeResolved, "execute", false, "also perform the resolved action")

	sealCmd.Flags().StringVar(&sealInput, "in", "", "plain JSON settings file")
	sealCmd.Flags().StringVar(&sealOutput, "out", "", "encrypted output file (default: inference.settings_file)")
	sealCmd.Flags().StringVar(&sealKey, "key", "", "base64 secret key")
	_ = sealCmd.MarkFlagRequired("in")

	settingsCmd.AddCommand(sealCmd, keygenCmd)
}
