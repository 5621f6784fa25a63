package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// SignalSource is the external job-market demand signal: a single fallible
// call returning a demand score in [0,100] for a subject.
type SignalSource interface {
	Lookup(ctx context.Context, name, description string) (float64, error)
}

// HTTPSignalSource queries a demand-signal HTTP API (job-posting keyword
// frequency service). Calls carry a bounded timeout and are rate limited on
// the client side.
type HTTPSignalSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSignalSource builds the client. timeout bounds each lookup;
// lookupsPerSecond throttles outbound calls (<=0 disables throttling).
func NewHTTPSignalSource(baseURL string, timeout time.Duration, lookupsPerSecond float64) *HTTPSignalSource {
	limit := rate.Inf
	if lookupsPerSecond > 0 {
		limit = rate.Limit(lookupsPerSecond)
	}
	return &HTTPSignalSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type signalResponse struct {
	Score float64 `json:"score"`
}

// Lookup fetches the demand score for a subject.
func (s *HTTPSignalSource) Lookup(ctx context.Context, name, description string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("subject", name)
	q.Set("description", description)
	endpoint := fmt.Sprintf("%s/api/v1/demand?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create demand request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Elective-Recommender/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("demand request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("demand API returned status %d: %s", resp.StatusCode, string(body))
	}

	var out signalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("parse demand response: %w", err)
	}
	if out.Score < 0 || out.Score > 100 {
		return 0, fmt.Errorf("demand score %.2f outside [0,100]", out.Score)
	}
	return out.Score, nil
}
