package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/RealChuan/hlsget/internal/fetch"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	Concurrency   int     `json:"concurrency"`
	MaxRetries    int     `json:"max_retries"`
	RetryCooldown float64 `json:"retry_cooldown"`  // seconds, first retry delay
	RetryExponent float64 `json:"retry_exponent"`  // delay multiplier per attempt
	RetryMaxDelay float64 `json:"retry_max_delay"` // seconds, delay cap
	RetryJitter   float64 `json:"retry_jitter"`    // fraction of delay, 0..1
	RetryOn429    bool    `json:"retry_on_429"`

	// HTTP settings
	HTTPTimeout float64           `json:"http_timeout"` // seconds, per request
	UserAgent   string            `json:"user_agent"`
	Headers     map[string]string `json:"headers"`

	// Playlist settings
	VariantPolicy string `json:"variant_policy"` // highest, lowest, first
	BaseURL       string `json:"base_url"`       // resolution base for local manifests

	// Failure policy: when true, a segment that exhausts its retries is
	// replaced with an empty placeholder instead of aborting the job.
	BestEffort bool `json:"best_effort"`

	// KeyOverride replaces the playlist's key declaration: either 32
	// hex characters (a literal AES-128 key) or a URL to fetch the key
	// from.
	KeyOverride string `json:"key_override"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Concurrency:   6,
		MaxRetries:    5,
		RetryCooldown: 0.5,
		RetryExponent: 2.0,
		RetryMaxDelay: 15.0,
		RetryJitter:   0.5,
		RetryOn429:    true,

		HTTPTimeout: 30.0,
		UserAgent:   "hlsget",

		VariantPolicy: "highest",
	}
}

// Load reads settings from a JSON file. A missing file is not an error:
// defaults are returned so the tool works with zero configuration.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Timeout returns the per-request HTTP timeout as a Duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.HTTPTimeout * float64(time.Second))
}

// RetryPolicy converts the retry settings to a fetch.RetryPolicy.
func (s *Settings) RetryPolicy() fetch.RetryPolicy {
	return fetch.RetryPolicy{
		MaxAttempts: s.MaxRetries,
		Backoff: fetch.Backoff{
			Base:     time.Duration(s.RetryCooldown * float64(time.Second)),
			Exponent: s.RetryExponent,
			Max:      time.Duration(s.RetryMaxDelay * float64(time.Second)),
			Jitter:   s.RetryJitter,
		},
		RetryOn429: s.RetryOn429,
	}
}
