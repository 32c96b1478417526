package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clause-extractor/internal/model"
)

// Provider tokens accepted at the call boundary.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	// ErrUnknownProvider is returned for an unrecognized provider token,
	// before any network call is made.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnavailable covers network failures, timeouts and 5xx responses.
	// It is the only retryable provider error.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrAuth covers invalid or missing credentials. Terminal, no retry.
	ErrAuth = errors.New("provider authentication failed")
	// ErrRateLimited is surfaced distinctly so callers can back off.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrMalformedResponse is returned when the provider output cannot be
	// turned into a single valid clause.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Input carries the contract text to classify. Pages preserves page
// boundaries so providers can attribute clauses to pages; Text is the full
// concatenation for providers that ignore boundaries.
type Input struct {
	Text     string
	Pages    []string
	Filename string
}

// ClauseExtractor asks an LLM provider to identify structured clauses in
// contract text. Implementations validate the provider output against the
// clause schema before returning it.
type ClauseExtractor interface {
	ExtractClauses(ctx context.Context, input Input) ([]model.Clause, error)
}

// Registry maps provider tokens to their client implementations. Built once
// at bootstrap; read-only afterwards.
type Registry struct {
	clients map[string]ClauseExtractor
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]ClauseExtractor)}
}

func (r *Registry) Register(name string, client ClauseExtractor) {
	r.clients[name] = client
}

// ForProvider resolves a provider token. Unknown tokens fail here, before
// any I/O is attempted.
func (r *Registry) ForProvider(name string) (ClauseExtractor, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return client, nil
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// withRetry runs op up to maxAttempts times with doubling backoff. Only
// ErrUnavailable is retried; every other failure is returned immediately.
func withRetry(ctx context.Context, op func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
