package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/registry"
)

// Type is the job type served by this module.
const Type = "HttpRequest"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client defaults to a pooled client with a 30s timeout.
	Client *http.Client
}

// Input defines the request to make.
type Input struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Output is the job response.
type Output struct {
	StatusCode int               `json:"status_code"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers"`
}

// NewClient builds an http.Client with a pooled transport.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// OnRunHttpRequest performs the request. Any status code is a successful
// response; only transport failures fail the job.
func (m *Module) OnRunHttpRequest(ctx context.Context, input *Input) (any, error) {
	if input.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", input.URL)

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return &Output{
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		Headers:    headers,
	}, nil
}

func (m *Module) client() *http.Client {
	if m.Client == nil {
		m.Client = NewClient(30 * time.Second)
	}
	return m.Client
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	m.client()
	r.Register(Type, registry.Typed(m.OnRunHttpRequest))
}
