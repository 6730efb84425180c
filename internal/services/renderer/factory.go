package renderer

import (
	"context"

	"ticketline/internal/status"
)

// Noop is used in development when no renderer service is configured; every
// ticket is issued flagged for later regeneration.
type Noop struct{}

func (Noop) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	return RenderResult{}, status.ErrRenderingFailed
}

// New picks the renderer implementation for the given config. An empty base
// URL selects the noop renderer.
func New(cfg ClientConfig) Renderer {
	if cfg.BaseURL == "" {
		return Noop{}
	}
	return NewClient(cfg)
}
