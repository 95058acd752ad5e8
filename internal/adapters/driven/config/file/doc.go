// Package file provides the file-based configuration adapter.
//
// ConfigStore persists flattened dot-notation keys to ~/.fiches/config.toml.
// LoadSettings layers the file and environment variables (including a .env
// file) over domain.DefaultSettings.
package file
