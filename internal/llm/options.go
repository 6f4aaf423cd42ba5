package llm

import (
	"net/http"
	"time"

	"github.com/spherical/packing-list-extractor/internal/observability"
)

const defaultMaxTokens = 8192

// Option configures a vision client
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	logger     *observability.Logger
}

// WithBaseURL points the client at a different endpoint
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithMaxTokens caps the response length
func WithMaxTokens(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger attaches a logger
func WithLogger(l *observability.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func newClientOptions(baseURL string, opts []Option) clientOptions {
	o := clientOptions{
		baseURL:    baseURL,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{},
		logger:     observability.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.WithOperation("extract")
	return o
}
