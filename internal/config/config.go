package config

import (
	"fmt"
	"time"

	"sdfrontend/internal/core"
	"sdfrontend/internal/util"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port               string
	GinMode            string
	UpstreamURL        string
	RateLimit          int
	CORSAllowOrigin    string
	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface
	Logger             core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	SubmitTimeout       time.Duration
	DiscoveryTimeout    time.Duration
	HealthTimeout       time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
		SubmitTimeout:       core.SubmitTimeout,
		DiscoveryTimeout:    core.DiscoveryTimeout,
		HealthTimeout:       core.HealthTimeout,
	}
}

// Validate checks the fields the server cannot start without.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	normalized, err := util.ValidateUpstreamURL(c.UpstreamURL)
	if err != nil {
		return err
	}
	c.UpstreamURL = normalized
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit)
	}
	s := c.HTTPClientSettings
	if s.SubmitTimeout <= 0 || s.DiscoveryTimeout <= 0 || s.HealthTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}
	return nil
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	settings := DefaultHTTPClientSettings()
	settings.SubmitTimeout = durationFromEnv(logger, "SUBMIT_TIMEOUT", core.SubmitTimeout)
	settings.DiscoveryTimeout = durationFromEnv(logger, "DISCOVERY_TIMEOUT", core.DiscoveryTimeout)
	settings.HealthTimeout = durationFromEnv(logger, "HEALTH_TIMEOUT", core.HealthTimeout)

	rateLimit, ok := util.GetEnvPositiveInt("RATE_LIMIT", core.DefaultRateLimit)
	if !ok {
		logger.Warn("Invalid RATE_LIMIT value, using default %d", core.DefaultRateLimit)
	}

	config := ServerConfig{
		Port:               util.GetEnvWithDefault("PORT", core.DefaultPort),
		GinMode:            util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode),
		UpstreamURL:        util.GetEnvWithDefault("SD_API_URL", core.DefaultUpstreamURL),
		RateLimit:          rateLimit,
		CORSAllowOrigin:    util.GetEnvWithDefault("CORS_ALLOW_ORIGIN", "*"),
		HTTPClientSettings: settings,
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid server configuration: %w", err)
	}

	logger.Info("Using generation API at %s", config.UpstreamURL)
	return config, nil
}

func durationFromEnv(logger core.Logger, key string, def time.Duration) time.Duration {
	d, ok := util.GetEnvDuration(key, def)
	if !ok {
		logger.Warn("Invalid %s value, using default %s", key, def)
	}
	return d
}
