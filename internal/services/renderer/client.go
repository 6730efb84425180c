package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ticketline/internal/status"
	"ticketline/utils"
)

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the artifact renderer service over HTTP, behind a circuit
// breaker so a dead renderer cannot stall the purchase path.
type Client struct {
	baseURL string
	hc      *http.Client
	breaker *utils.CircuitBreaker
}

func NewClient(c ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: c.BaseURL,
		hc:      &http.Client{Timeout: timeout},
		breaker: utils.NewCircuitBreaker("renderer", 5, 30*time.Second),
	}
}

func (c *Client) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	var out RenderResult
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(req)
		if err != nil {
			return err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("renderer returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return RenderResult{}, fmt.Errorf("%w: %v", status.ErrRenderingFailed, err)
	}
	return out, nil
}
