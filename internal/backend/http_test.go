package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSearcherParsesResponse(t *testing.T) {
	var gotQuery string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotQuery = body["query"]
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"resultCount":7,"errorMessage":""}`))
	}))
	defer srv.Close()

	searcher, err := NewHTTPSearcher(HTTPOptions{Target: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}

	res, err := searcher.Search(context.Background(), "golang generics")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if gotQuery != "golang generics" {
		t.Fatalf("backend received query %q", gotQuery)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if !res.Success || res.ResultCount != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPSearcherUnsuccessfulPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"errorMessage":"index rebuilding"}`))
	}))
	defer srv.Close()

	searcher, err := NewHTTPSearcher(HTTPOptions{Target: srv.URL})
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}

	res, err := searcher.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("a 200 response is not a transport error: %v", err)
	}
	if res.Success {
		t.Fatal("success flag should be false")
	}
	if res.ErrorMessage != "index rebuilding" {
		t.Fatalf("unexpected error message %q", res.ErrorMessage)
	}
}

func TestHTTPSearcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	searcher, err := NewHTTPSearcher(HTTPOptions{Target: srv.URL})
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}

	_, err = searcher.Search(context.Background(), "q")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", httpErr.StatusCode)
	}
	if httpErr.Body != "upstream exploded" {
		t.Fatalf("unexpected body %q", httpErr.Body)
	}
}

func TestHTTPConversationalistParsesAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"answer":"Go is a statically typed language."}`))
	}))
	defer srv.Close()

	conv, err := NewHTTPConversationalist(HTTPOptions{Target: srv.URL})
	if err != nil {
		t.Fatalf("new conversationalist: %v", err)
	}

	ans, err := conv.Ask(context.Background(), "what is go")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !ans.Success || ans.Text != "Go is a statically typed language." {
		t.Fatalf("unexpected answer: %+v", ans)
	}
}

func TestHTTPBackendSendsCustomHeaders(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	searcher, err := NewHTTPSearcher(HTTPOptions{
		Target:  srv.URL,
		Headers: map[string]string{"authorization": "Bearer token-123"},
	})
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}
	if _, err := searcher.Search(context.Background(), "q"); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got != "Bearer token-123" {
		t.Fatalf("authorization header not forwarded, got %q", got)
	}
}

func TestHTTPBackendHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	searcher, err := NewHTTPSearcher(HTTPOptions{Target: srv.URL})
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := searcher.Search(ctx, "q"); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestNewHTTPBackendValidation(t *testing.T) {
	if _, err := NewHTTPSearcher(HTTPOptions{Target: "  "}); err == nil {
		t.Fatal("blank target must be rejected")
	}
	if _, err := NewHTTPSearcher(HTTPOptions{
		Target:  "http://example.com",
		Headers: map[string]string{"X-Bad\r\nKey": "v"},
	}); err == nil {
		t.Fatal("header with CRLF must be rejected")
	}
	if _, err := NewHTTPConversationalist(HTTPOptions{
		Target:  "http://example.com",
		Headers: map[string]string{"X-Key": "bad\r\nvalue"},
	}); err == nil {
		t.Fatal("header value with CRLF must be rejected")
	}
}
