package renderer

import (
	"context"
)

// RenderRequest carries everything the external compositor needs to produce
// the scannable artifacts for one ticket.
type RenderRequest struct {
	Token       string `json:"token"`
	EventName   string `json:"event_name"`
	Category    string `json:"category"`
	TemplateRef string `json:"template_ref"`
}

// RenderResult holds the stored-artifact references returned by the
// compositor. The core never touches artifact bytes, only these paths.
type RenderResult struct {
	QRRef    string `json:"qr_ref"`
	ImageRef string `json:"image_ref"`
}

// Renderer is the external artifact compositor, specified at its interface
// boundary only. A failure is non-fatal to the purchase that triggered it.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}
