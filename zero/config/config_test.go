package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	internal "github.com/ZanzyTHEbar/zero-assistant/zero"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	tempDir, err := os.MkdirTemp("", "zero-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), DefaultEndpoint, cfg.Inference.Endpoint)
	assert.Equal(suite.T(), 60*time.Second, cfg.Inference.Timeout)
	assert.Equal(suite.T(), 5, cfg.Session.MaxAttempts)
	assert.Equal(suite.T(), 5*time.Minute, cfg.Session.MaxElapsed)
	assert.Equal(suite.T(), "rules", cfg.Resolver.Strategy)
	assert.Equal(suite.T(), internal.DefaultWakeWord, cfg.Resolver.WakeWord)
	assert.Equal(suite.T(), 10*time.Minute, cfg.Resolver.DefaultReminder)
	assert.Equal(suite.T(), time.Second, cfg.Harness.RateLimitRefillRate)
	assert.Equal(suite.T(), "https://www.youtube.com", cfg.Executor.WebPages["youtube"])
	assert.Equal(suite.T(), []string{".mp3", ".flac"}, cfg.Media.Extensions)
	assert.Equal(suite.T(), internal.DefaultCalendarPath, cfg.Calendar.DatabasePath)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
inference:
  endpoint: "https://example.test/models/zero"
  timeout: 15s
session:
  max_attempts: 3
  max_loading_wait: 30s
resolver:
  strategy: model
  wake_word: hey
executor:
  web_pages:
    github: "https://github.com"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "https://example.test/models/zero", cfg.Inference.Endpoint)
	assert.Equal(suite.T(), 15*time.Second, cfg.Inference.Timeout)
	assert.Equal(suite.T(), 3, cfg.Session.MaxAttempts)
	assert.Equal(suite.T(), 30*time.Second, cfg.Session.MaxLoadingWait)
	assert.Equal(suite.T(), "model", cfg.Resolver.Strategy)
	assert.Equal(suite.T(), "hey", cfg.Resolver.WakeWord)
	assert.Equal(suite.T(), "https://github.com", cfg.Executor.WebPages["github"])
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	// An explicit path that does not exist is an error
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
inference:
  endpoint: "https://example.test"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAuthTokenFromDotEnv() {
	suite.T().Setenv("HUGGINGFACE_INFERENCE_TOKEN", "")
	os.Unsetenv("HUGGINGFACE_INFERENCE_TOKEN")

	err := os.WriteFile(filepath.Join(suite.tempDir, ".env"), []byte("HUGGINGFACE_INFERENCE_TOKEN=hf_dotenv\n"), 0o600)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "hf_dotenv", cfg.Inference.AuthToken)
}

func (suite *ConfigTestSuite) TestSecureSettingsOverrideEndpointAndPreamble() {
	key, err := GenerateSecretKey()
	require.NoError(suite.T(), err)

	settingsFile := filepath.Join(suite.tempDir, "settings.data")
	err = SaveSecureJSON(settingsFile, SecureSettings{AISettings: AISettings{
		APIURL:  "https://secure.example.test/models/zero",
		Context: "You are Zero.",
	}}, key)
	require.NoError(suite.T(), err)

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	content := "inference:\n  settings_file: \"" + settingsFile + "\"\n  secret_key: \"" + key + "\"\n"
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(content), 0o644))

	cfg, err := LoadConfig(configFile)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "https://secure.example.test/models/zero", cfg.Inference.Endpoint)
	assert.Equal(suite.T(), "You are Zero.", cfg.Session.Preamble)
}

func TestSealAndOpenSettings(t *testing.T) {
	key, err := GenerateSecretKey()
	require.NoError(t, err)

	sealed, err := SealSettings([]byte(`{"ai_settings":{"api_url":"u"}}`), key)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "api_url")

	plain, err := OpenSettings(sealed, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ai_settings":{"api_url":"u"}}`, string(plain))

	otherKey, err := GenerateSecretKey()
	require.NoError(t, err)
	_, err = OpenSettings(sealed, otherKey)
	assert.Error(t, err)
}

func TestSealSettingsRejectsBadKey(t *testing.T) {
	_, err := SealSettings([]byte("x"), "too-short")
	assert.ErrorIs(t, err, ErrInvalidSecretKey)

	_, err = SealSettings([]byte("x"), "")
	assert.ErrorIs(t, err, ErrInvalidSecretKey)
}

func TestLoadSecureSettingsMissingFile(t *testing.T) {
	key, err := GenerateSecretKey()
	require.NoError(t, err)

	settings, err := LoadSecureSettings(filepath.Join(t.TempDir(), "absent.data"), key)
	require.NoError(t, err)
	assert.Empty(t, settings.AISettings.APIURL)
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for b.Loop() {
		cfg, err := LoadConfig("")
		if err != nil {
			b.Fatal(err)
		}
		_ = cfg
	}
}
