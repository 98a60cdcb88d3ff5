package workload

import (
	"context"
	"fmt"

	"github.com/queryfire/queryfire/internal/metrics"
)

// Operation is a single unit of synthetic work: one query issued against
// one backend capability. Immutable once created.
type Operation struct {
	Kind  metrics.Kind
	Query string
}

// Search builds a search operation for the given query text.
func Search(query string) Operation {
	return Operation{Kind: metrics.KindSearch, Query: query}
}

// Conversation builds a conversational-query operation for the given query text.
func Conversation(query string) Operation {
	return Operation{Kind: metrics.KindConversation, Query: query}
}

// SearchResult is the payload returned by a search backend.
type SearchResult struct {
	Success      bool
	ResultCount  int
	ErrorMessage string
}

// Answer is the payload returned by a conversational backend.
type Answer struct {
	Success      bool
	Text         string
	ErrorMessage string
}

// Searcher is the capability contract for the search backend.
// Implementations may block on I/O and should honor ctx cancellation.
type Searcher interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

// Conversationalist is the capability contract for the conversational backend.
type Conversationalist interface {
	Ask(ctx context.Context, query string) (Answer, error)
}

// ResultError reports a backend call that returned without a transport error
// but flagged the result itself as unsuccessful.
type ResultError struct {
	Kind    metrics.Kind
	Message string
}

func (e *ResultError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s backend reported failure", e.Kind)
	}
	return fmt.Sprintf("%s backend reported failure: %s", e.Kind, e.Message)
}
