package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
)

// Default HTTP timeout for model calls.
const defaultRequestTimeout = 10 * time.Second

// RemoteOption applies a configuration option to the Remote predictor.
type RemoteOption func(*Remote)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *Remote) {
		if client != nil {
			r.client = client
		}
	}
}

// Remote implements Predictor against an HTTP model server that
// accepts a frame and answers {"probability": p}.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a predictor posting frames to url.
func NewRemote(url string, opts ...RemoteOption) *Remote {
	r := &Remote{
		url:    url,
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type predictResponse struct {
	Probability float64 `json:"probability"`
}

// Predict posts the frame and parses the probability. Any transport
// error, non-200 status, or out-of-range probability fails closed.
func (r *Remote) Predict(ctx context.Context, frame capture.Frame) (float64, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(frame))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, false
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false
	}
	if math.IsNaN(out.Probability) || out.Probability < 0 || out.Probability > 1 {
		return 0, false
	}
	return out.Probability, true
}
