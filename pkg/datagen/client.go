// Package datagen provides a client for the Datagen tool-execution gateway,
// which fronts the hosted Gmail search and LinkedIn lookup tools. Gateway
// responses sometimes arrive wrapped in one extra array layer; this package
// normalizes that at the boundary so callers never branch on nesting.
package datagen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-enrich/internal/resilience"
)

const defaultBaseURL = "https://api.datagen.dev/v1"

// Client performs tool executions against the Datagen gateway.
type Client interface {
	ExecuteTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
	SearchPerson(ctx context.Context, q PersonQuery) (*Person, error)
	PersonProfile(ctx context.Context, linkedinURL string) (*Person, error)
	SearchMail(ctx context.Context, query string, maxResults int) ([]EmailMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second limit on gateway calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Datagen gateway client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type executeRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type executeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

func (c *httpClient) ExecuteTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "datagen: rate limit wait")
		}
	}

	body, err := json.Marshal(executeRequest{ToolName: tool, Arguments: args})
	if err != nil {
		return nil, eris.Wrap(err, "datagen: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tools/execute", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "datagen: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "datagen: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "datagen: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("datagen: tool %s: unexpected status %d: %s", tool, resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result executeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "datagen: unmarshal response")
	}
	if result.Error != "" {
		return nil, eris.Errorf("datagen: tool %s: %s", tool, result.Error)
	}

	return unwrap(result.Result), nil
}

// unwrap strips single-element array wrapping the gateway adds around some
// tool results, e.g. [[rows]] for SQL and [{"emails": [...]}] for Gmail.
func unwrap(raw json.RawMessage) json.RawMessage {
	for {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
			return raw
		}
		raw = arr[0]
	}
}
