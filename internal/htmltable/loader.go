package htmltable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"senkyo/internal/httputil"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent on every page request.
const DefaultUserAgent = "senkyo/1.0"

// Input describes where HTML should come from.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Stdin is used when URL is empty or "-". If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads HTML with a consistent timeout and retry policy.
type Loader struct {
	client     *http.Client
	timeout    time.Duration
	userAgent  string
	maxRetries int
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) LoaderOption {
	return func(l *Loader) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithMaxRetries sets the retry budget for throttled responses.
func WithMaxRetries(n int) LoaderOption {
	return func(l *Loader) { l.maxRetries = n }
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
// A timeout <= 0 means no per-load deadline.
func NewLoader(client *http.Client, timeout time.Duration, opts ...LoaderOption) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		client:    client,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the page as UTF-8 text, read from stdin when input.URL is
// empty or "-", otherwise fetched. Fetched bodies are decoded using the
// Content-Type charset or the document's meta tags.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	u := strings.TrimSpace(input.URL)
	if u == "" || u == "-" {
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := httputil.DoWithRetry(ctx, l.client, req, l.maxRetries)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}
