package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"sdfrontend/internal/config"
	"sdfrontend/internal/core"
	"sdfrontend/internal/util"
)

// ClientConfig configuration for Client
type ClientConfig struct {
	BaseURL    string
	Settings   config.HTTPClientSettings
	HTTPClient *http.Client
	Metrics    core.MetricsCollector
	Logger     core.Logger
}

// Client calls the Stable Diffusion WebUI API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	settings   config.HTTPClientSettings
	metrics    core.MetricsCollector
	logger     core.Logger
}

// NewClient creates a new upstream client
// Zero timeouts fall back to config.DefaultHTTPClientSettings.
func NewClient(cfg ClientConfig) *Client {
	settings := withDefaultTimeouts(cfg.Settings)
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(settings)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &core.NopMetrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		settings:   settings,
		metrics:    metrics,
		logger:     logger,
	}
}

func withDefaultTimeouts(settings config.HTTPClientSettings) config.HTTPClientSettings {
	defaults := config.DefaultHTTPClientSettings()
	if settings.SubmitTimeout <= 0 {
		settings.SubmitTimeout = defaults.SubmitTimeout
	}
	if settings.DiscoveryTimeout <= 0 {
		settings.DiscoveryTimeout = defaults.DiscoveryTimeout
	}
	if settings.HealthTimeout <= 0 {
		settings.HealthTimeout = defaults.HealthTimeout
	}
	return settings
}

// NewHTTPClient builds the shared transport. Deadlines are applied per call
// through the request context, so the client itself has no Timeout.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{Transport: transport}
}

// BaseURL returns the upstream base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListModels returns the model names offered by the upstream, or an empty slice.
func (c *Client) ListModels(ctx context.Context) []string {
	var models []core.SDModel
	if err := c.getJSON(ctx, core.SDAPIModelsPath, &models); err != nil {
		c.logger.Warn("Model discovery failed: %v", err)
		return []string{}
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		if m.ModelName != "" {
			names = append(names, m.ModelName)
		}
	}
	return names
}

// ListSamplers returns the sampler names offered by the upstream, or an empty slice.
func (c *Client) ListSamplers(ctx context.Context) []string {
	var samplers []core.SDSampler
	if err := c.getJSON(ctx, core.SDAPISamplersPath, &samplers); err != nil {
		c.logger.Warn("Sampler discovery failed: %v", err)
		return []string{}
	}

	names := make([]string, 0, len(samplers))
	for _, s := range samplers {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.settings.DiscoveryTimeout)
	defer cancel()

	start := time.Now()
	defer func() { c.metrics.RecordUpstreamCall(path, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(core.HeaderAccept, core.ContentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if err := util.UnmarshalJSON(body, out); err != nil {
		return fmt.Errorf("GET %s: decode body: %w", path, err)
	}
	return nil
}

// Submit posts a generation payload. Every HTTP status comes back as a result;
// only transport failures are errors, and those wrap core.ErrUpstreamUnreachable.
func (c *Client) Submit(ctx context.Context, endpoint string, payload any) (*core.UpstreamResult, error) {
	payloadBytes, err := util.MarshalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for %s: %w", endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.SubmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	req.Header.Set(core.HeaderAccept, core.ContentTypeJSON)

	start := time.Now()
	defer func() { c.metrics.RecordUpstreamCall(endpoint, time.Since(start)) }()

	c.logger.Debug("POST %s (%d bytes)", endpoint, len(payloadBytes))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("POST %s failed: %v", endpoint, err)
		return nil, fmt.Errorf("%w: POST %s: %w", core.ErrUpstreamUnreachable, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		c.logger.Error("Reading %s response failed: %v", endpoint, err)
		return nil, fmt.Errorf("%w: read %s response: %w", core.ErrUpstreamUnreachable, endpoint, err)
	}

	c.logger.Debug("POST %s -> %d in %s", endpoint, resp.StatusCode, time.Since(start))
	return &core.UpstreamResult{StatusCode: resp.StatusCode, Body: body}, nil
}

// HealthCheck reports whether the sampler list answers with exactly 200.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.settings.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+core.SDAPISamplersPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Health check failed: %v", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, core.MaxErrorBodyLogSize))

	return resp.StatusCode == http.StatusOK
}
