package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPRenderer calls a rendering sidecar over HTTP instead of spawning a
// subprocess per approval. The sidecar accepts the applicant fields as JSON
// and responds with the PDF bytes.
type HTTPRenderer struct {
	client *resty.Client
}

// NewHTTP constructs a sidecar-backed renderer. A zero timeout defaults to 30s.
func NewHTTP(baseURL string, timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &HTTPRenderer{client: client}
}

// Render posts the fields to the sidecar and returns the PDF bytes. Non-2xx
// responses and timeouts are failures; nothing is retried here.
func (r *HTTPRenderer) Render(ctx context.Context, fields Fields) ([]byte, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(fields).
		SetHeader("Accept", "application/pdf").
		Post("/render")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("render request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("render sidecar returned %s: %s", resp.Status(), resp.String())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("render sidecar returned empty body")
	}
	return body, nil
}
