// Package config provides configuration management for hlsget.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Conversion to the retry policy used by the fetch package
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// 6 concurrent segment downloads
//	// 5 fetch attempts with capped exponential backoff
//	// highest-bandwidth variant selection
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.Concurrency = 12
//	err := settings.Save("/path/to/config.json")
//
// # Configuration Options
//
// Settings includes options for:
//   - Segment download concurrency
//   - Retry budget and backoff curve
//   - HTTP timeout, User-Agent and extra request headers
//   - Master-playlist variant selection
//   - Best-effort mode and decryption key override
package config
