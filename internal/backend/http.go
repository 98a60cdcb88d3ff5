// Package backend provides concrete search and conversation clients speaking
// JSON over HTTP and, for conversations, over WebSocket.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/queryfire/queryfire/internal/tracing"
	"github.com/queryfire/queryfire/internal/workload"
)

const maxErrorBodyBytes = 1024

// HTTPError reports a non-2xx response from a backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPOptions configures an HTTP backend client.
type HTTPOptions struct {
	Target  string
	Headers map[string]string
	Timeout time.Duration

	// PropagateTrace injects W3C trace context headers into every request.
	PropagateTrace bool

	// Client overrides the default tuned client, mainly for tests.
	Client *http.Client
}

type httpBackend struct {
	target    string
	headers   http.Header
	client    *http.Client
	propagate bool
}

func newHTTPBackend(opt HTTPOptions) (*httpBackend, error) {
	target := strings.TrimSpace(opt.Target)
	if target == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	headers := http.Header{}
	for key, value := range opt.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmed)
		}
		headers.Set(http.CanonicalHeaderKey(trimmed), value)
	}

	client := opt.Client
	if client == nil {
		client = NewClient(opt.Timeout)
	}

	return &httpBackend{
		target:    target,
		headers:   headers,
		client:    client,
		propagate: opt.PropagateTrace,
	}, nil
}

// post issues the query and returns the raw response body.
func (b *httpBackend) post(ctx context.Context, query string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for key, values := range b.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if b.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// HTTPSearcher queries a search backend over HTTP. The backend is expected to
// answer with a JSON object carrying success, resultCount and errorMessage.
type HTTPSearcher struct {
	backend *httpBackend
}

func NewHTTPSearcher(opt HTTPOptions) (*HTTPSearcher, error) {
	b, err := newHTTPBackend(opt)
	if err != nil {
		return nil, err
	}
	return &HTTPSearcher{backend: b}, nil
}

func (s *HTTPSearcher) Search(ctx context.Context, query string) (workload.SearchResult, error) {
	body, err := s.backend.post(ctx, query)
	if err != nil {
		return workload.SearchResult{}, err
	}
	return workload.SearchResult{
		Success:      gjson.GetBytes(body, "success").Bool(),
		ResultCount:  int(gjson.GetBytes(body, "resultCount").Int()),
		ErrorMessage: gjson.GetBytes(body, "errorMessage").String(),
	}, nil
}

// HTTPConversationalist queries a conversational backend over HTTP. The
// backend is expected to answer with a JSON object carrying success, answer
// and errorMessage.
type HTTPConversationalist struct {
	backend *httpBackend
}

func NewHTTPConversationalist(opt HTTPOptions) (*HTTPConversationalist, error) {
	b, err := newHTTPBackend(opt)
	if err != nil {
		return nil, err
	}
	return &HTTPConversationalist{backend: b}, nil
}

func (c *HTTPConversationalist) Ask(ctx context.Context, query string) (workload.Answer, error) {
	body, err := c.backend.post(ctx, query)
	if err != nil {
		return workload.Answer{}, err
	}
	return workload.Answer{
		Success:      gjson.GetBytes(body, "success").Bool(),
		Text:         gjson.GetBytes(body, "answer").String(),
		ErrorMessage: gjson.GetBytes(body, "errorMessage").String(),
	}, nil
}

// NewClient builds an HTTP client tuned for sustained load against one host.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
