package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretKeySize = 32
	nonceSize     = 24
)

// ErrInvalidSecretKey is returned when the settings key is missing or malformed.
var ErrInvalidSecretKey = errors.New("secret key must be 32 bytes, base64 encoded")

// SecureSettings is the decrypted content of the settings file.
type SecureSettings struct {
	AISettings AISettings `json:"ai_settings"`
}

// AISettings overrides the endpoint and the chat preamble.
type AISettings struct {
	APIURL  string `json:"api_url"`
	Context string `json:"context"`
}

// GenerateSecretKey returns a fresh base64 encoded key for SealSettings.
func GenerateSecretKey() (string, error) {
	key := make([]byte, secretKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func decodeKey(encoded string) (*[secretKeySize]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrInvalidSecretKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil || len(raw) != secretKeySize {
		return nil, ErrInvalidSecretKey
	}
	var key [secretKeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// SealSettings encrypts plaintext with the given key. The output is base64 text.
func SealSettings(plaintext []byte, encodedKey string) ([]byte, error) {
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, key)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// OpenSettings reverses SealSettings.
func OpenSettings(ciphertext []byte, encodedKey string) ([]byte, error) {
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(ciphertext)))
	if err != nil {
		return nil, fmt.Errorf("settings file is not base64: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.New("settings file is truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("settings file could not be decrypted with the given key")
	}
	return plain, nil
}

// SaveSecureJSON encrypts data as JSON into filename.
func SaveSecureJSON(filename string, data any, encodedKey string) error {
	plain, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	sealed, err := SealSettings(plain, encodedKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// LoadSecureSettings decrypts filename. A missing file yields empty settings.
func LoadSecureSettings(filename, encodedKey string) (*SecureSettings, error) {
	sealed, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return &SecureSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	plain, err := OpenSettings(sealed, encodedKey)
	if err != nil {
		return nil, err
	}

	var settings SecureSettings
	if err := json.Unmarshal(plain, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

func applySecureSettings(cfg *Config) error {
	settings, err := LoadSecureSettings(cfg.Inference.SettingsFile, cfg.Inference.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to load secure settings: %w", err)
	}
	if settings.AISettings.APIURL != "" {
		cfg.Inference.Endpoint = settings.AISettings.APIURL
	}
	if settings.AISettings.Context != "" {
		cfg.Session.Preamble = settings.AISettings.Context
	}
	return nil
}
