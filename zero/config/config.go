package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/zero-assistant/zero"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file, a .env file or environment variables.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Inference InferenceConfig `mapstructure:"inference"`
	Session   SessionConfig   `mapstructure:"session"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Harness   HarnessConfig   `mapstructure:"harness"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Media     MediaConfig     `mapstructure:"media"`
}

// LogConfig controls the zerolog logger built by the CLI.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Pretty bool   `mapstructure:"pretty"` // console writer instead of JSON
}

// InferenceConfig describes the remote text-generation endpoint.
type InferenceConfig struct {
	Endpoint           string        `mapstructure:"endpoint"`
	AuthToken          string        `mapstructure:"auth_token"`
	Model              string        `mapstructure:"model"`                // selects the chat template
	Timeout            time.Duration `mapstructure:"timeout"`              // per HTTP request
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"` // TLS verification policy
	MaxNewTokens       int           `mapstructure:"max_new_tokens"`
	Temperature        float32       `mapstructure:"temperature"`

	// Encrypted settings file carrying ai_settings.api_url and ai_settings.context.
	SettingsFile string `mapstructure:"settings_file"`
	SecretKey    string `mapstructure:"secret_key"`
}

// SessionConfig controls the conversational session and its cold-start retries.
type SessionConfig struct {
	Preamble           string        `mapstructure:"preamble"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	MaxElapsed         time.Duration `mapstructure:"max_elapsed"`
	DefaultLoadingWait time.Duration `mapstructure:"default_loading_wait"`
	MaxLoadingWait     time.Duration `mapstructure:"max_loading_wait"`
	Warmup             bool          `mapstructure:"warmup"`
}

// ResolverConfig selects and tunes the command resolution strategy.
type ResolverConfig struct {
	Strategy        string        `mapstructure:"strategy"` // "rules", "model", "model_first"
	WakeWord        string        `mapstructure:"wake_word"`
	CommandPrompt   string        `mapstructure:"command_prompt"` // empty uses the built-in vocabulary prompt
	DatePrompt      string        `mapstructure:"date_prompt"`
	DefaultReminder time.Duration `mapstructure:"default_reminder"`
}

// HarnessConfig stores cross-cutting harness settings.
type HarnessConfig struct {
	// Cache settings
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheCapacity   int  `mapstructure:"cache_capacity"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	// Rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"`

	// Safety and validation
	EnableGuardrails bool     `mapstructure:"enable_guardrails"`
	RedactPatterns   []string `mapstructure:"redact_patterns"` // extra regexes masked in replies

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"`
}

// ExecutorConfig maps spoken names to things the executor can open.
type ExecutorConfig struct {
	OpenerCommand []string          `mapstructure:"opener_command"` // e.g. ["xdg-open"]
	WebPages      map[string]string `mapstructure:"web_pages"`
	SearchURL     string            `mapstructure:"search_url"`
	Apps          map[string]string `mapstructure:"apps"`
	Folders       map[string]string `mapstructure:"folders"`
	TrashDir      string            `mapstructure:"trash_dir"`
	Workers       int               `mapstructure:"workers"` // background action pool size
}

// CalendarConfig selects the calendar backend.
type CalendarConfig struct {
	Backend         string `mapstructure:"backend"` // "local", "google", "none"
	DatabasePath    string `mapstructure:"database_path"`
	GoogleCalendar  string `mapstructure:"google_calendar_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	TimeZone        string `mapstructure:"time_zone"`
}

// MediaConfig controls music playback.
type MediaConfig struct {
	MusicDir      string   `mapstructure:"music_dir"`
	PlayerCommand []string `mapstructure:"player_command"` // e.g. ["mpv", "--no-video"]
	Extensions    []string `mapstructure:"extensions"`
	Watch         bool     `mapstructure:"watch"`
}

// LoadConfig reads configuration from file, .env and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// A missing .env is normal; only a malformed one is reported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. inference.auth_token becomes INFERENCE_AUTH_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Legacy .env names
	_ = v.BindEnv("inference.auth_token", "INFERENCE_AUTH_TOKEN", "HUGGINGFACE_INFERENCE_TOKEN")
	_ = v.BindEnv("inference.secret_key", "INFERENCE_SECRET_KEY", "ZERO_SECRET_KEY", "SECRET_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.Inference.SettingsFile != "" {
		if err := applySecureSettings(&cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	// Inference defaults (Hugging Face serverless inference, ChatML model)
	v.SetDefault("inference.endpoint", DefaultEndpoint)
	v.SetDefault("inference.model", "Qwen/Qwen2.5-Coder-32B-Instruct")
	v.SetDefault("inference.timeout", "60s")
	v.SetDefault("inference.insecure_skip_verify", false)
	v.SetDefault("inference.max_new_tokens", 512)
	v.SetDefault("inference.temperature", 0.7)

	// Session defaults
	v.SetDefault("session.preamble", DefaultPreamble)
	v.SetDefault("session.max_attempts", 5)
	v.SetDefault("session.max_elapsed", "5m")
	v.SetDefault("session.default_loading_wait", "20s")
	v.SetDefault("session.max_loading_wait", "2m")
	v.SetDefault("session.warmup", true)

	// Resolver defaults
	v.SetDefault("resolver.strategy", "rules")
	v.SetDefault("resolver.wake_word", internal.DefaultWakeWord)
	v.SetDefault("resolver.command_prompt", "")
	v.SetDefault("resolver.date_prompt", "")
	v.SetDefault("resolver.default_reminder", "10m")

	// Harness defaults
	v.SetDefault("harness.cache_enabled", true)
	v.SetDefault("harness.cache_capacity", 256)
	v.SetDefault("harness.cache_ttl_seconds", 3600) // 1 hour
	v.SetDefault("harness.rate_limit_enabled", true)
	v.SetDefault("harness.rate_limit_capacity", 10)
	v.SetDefault("harness.rate_limit_refill_rate", "1s")
	v.SetDefault("harness.enable_guardrails", true)
	v.SetDefault("harness.redact_patterns", []string{})
	v.SetDefault("harness.enable_tracing", true)

	// Executor defaults
	v.SetDefault("executor.opener_command", []string{"xdg-open"})
	v.SetDefault("executor.web_pages", map[string]string{
		"google":  "https://www.google.com",
		"youtube": "https://www.youtube.com",
	})
	v.SetDefault("executor.search_url", "https://www.google.com/search")
	v.SetDefault("executor.apps", map[string]string{})
	v.SetDefault("executor.folders", map[string]string{})
	v.SetDefault("executor.trash_dir", internal.DefaultTrashDir)
	v.SetDefault("executor.workers", 4)

	// Calendar defaults
	v.SetDefault("calendar.backend", "local")
	v.SetDefault("calendar.database_path", internal.DefaultCalendarPath)
	v.SetDefault("calendar.google_calendar_id", "primary")
	v.SetDefault("calendar.credentials_file", "")
	v.SetDefault("calendar.time_zone", "Local")

	// Media defaults
	v.SetDefault("media.music_dir", internal.DefaultMusicDir)
	v.SetDefault("media.player_command", []string{"mpv", "--no-video", "--really-quiet"})
	v.SetDefault("media.extensions", []string{".mp3", ".flac"})
	v.SetDefault("media.watch", true)
}

// DefaultEndpoint is the serverless inference URL of the default chat model.
const DefaultEndpoint = "https://api-inference.huggingface.co/models/Qwen/Qwen2.5-Coder-32B-Instruct"

// DefaultPreamble is the system instruction sent with every chat turn.
const DefaultPreamble = "You are Zero, a friendly personal desktop assistant. " +
	"Answer briefly and conversationally, in at most three sentences."
