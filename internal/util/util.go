package util

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// MarshalJSON wraps Sonic for performance
func MarshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// MarshalJSONIndent wraps Sonic for human-readable output
func MarshalJSONIndent(v any) ([]byte, error) {
	return sonic.MarshalIndent(v, "", "  ")
}

// UnmarshalJSON wraps Sonic for performance
func UnmarshalJSON(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// TruncateString truncates string and adds replacement text in the middle
func TruncateString(s string, prefixLen, suffixLen int, replacement string) string {
	if len(s) > prefixLen+suffixLen {
		return s[:prefixLen] + replacement + s[len(s)-suffixLen:]
	}
	return s
}

// GetEnvWithDefault gets env var with default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration parses a Go duration env var. The bool is false when the
// variable was set but could not be used, so callers can warn.
func GetEnvDuration(key string, defaultValue time.Duration) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue, false
	}
	return d, true
}

// GetEnvPositiveInt parses a positive integer env var, same contract as GetEnvDuration.
func GetEnvPositiveInt(key string, defaultValue int) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue, false
	}
	return n, true
}

// ValidateUpstreamURL checks that raw is an absolute http(s) URL and returns it
// without a trailing slash.
func ValidateUpstreamURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("invalid upstream URL: empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid upstream URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid upstream URL %q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid upstream URL %q: missing host", raw)
	}
	return trimmed, nil
}
