package discovery

import (
	"context"
	"fmt"

	"sdfrontend/internal/core"

	"golang.org/x/sync/errgroup"
)

// Service exposes what the upstream currently offers. Nothing is cached;
// every call goes to the upstream.
type Service struct {
	client core.UpstreamClient
}

// NewService creates a discovery service over the given upstream client
func NewService(client core.UpstreamClient) *Service {
	return &Service{client: client}
}

// AvailableModels returns the upstream model names in upstream order.
func (s *Service) AvailableModels(ctx context.Context) []string {
	return s.client.ListModels(ctx)
}

// AvailableSamplers returns the upstream sampler names in upstream order.
func (s *Service) AvailableSamplers(ctx context.Context) []string {
	return s.client.ListSamplers(ctx)
}

// Snapshot fetches models and samplers concurrently. Upstream failures
// degrade to empty lists; the only error is the caller's context ending.
func (s *Service) Snapshot(ctx context.Context) (core.Capabilities, error) {
	var caps core.Capabilities
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		caps.Models = s.AvailableModels(gctx)
		return ctx.Err()
	})
	g.Go(func() error {
		caps.Samplers = s.AvailableSamplers(gctx)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return caps, fmt.Errorf("capability snapshot: %w", err)
	}
	return caps, nil
}
