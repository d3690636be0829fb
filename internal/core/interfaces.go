package core

import (
	"context"
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// UpstreamClient talks to the image generation API.
// ListModels and ListSamplers never fail; they degrade to empty slices.
type UpstreamClient interface {
	ListModels(ctx context.Context) []string
	ListSamplers(ctx context.Context) []string
	Submit(ctx context.Context, endpoint string, payload any) (*UpstreamResult, error)
	HealthCheck(ctx context.Context) bool
}

// CapabilityProvider supplies the per-request fallback defaults.
type CapabilityProvider interface {
	AvailableModels(ctx context.Context) []string
	AvailableSamplers(ctx context.Context) []string
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordGeneration(mode string, outcome string, duration time.Duration)
	RecordUpstreamCall(endpoint string, duration time.Duration)
}

// StatsRecorder receives one record per finished generation.
type StatsRecorder interface {
	RecordRequest(success bool, responseTime int64, model, mode string)
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordGeneration(mode string, outcome string, duration time.Duration) {}
func (*NopMetrics) RecordUpstreamCall(endpoint string, duration time.Duration)           {}

// NopStats discards generation records
type NopStats struct{}

func (*NopStats) RecordRequest(success bool, responseTime int64, model, mode string) {}
