package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clause-extractor/internal/config"
)

func newTestOpenAIClient(baseURL string) *OpenAIClient {
	return NewOpenAIClient(config.OpenAIConfig{
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Model:   "gpt-test",
	}, 5*time.Second)
}

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestOpenAIExtractClausesSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(chatCompletionBody(
			`[{"clause_type": "Payment Terms", "content": "Net 30.", "page_number": 1}]`,
		))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	clauses, err := client.ExtractClauses(context.Background(), Input{Text: "contract text"})
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "Payment Terms", clauses[0].ClauseType)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIExtractClausesAuthErrorNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "auth errors must not be retried")
}

func TestOpenAIExtractClausesMissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{BaseURL: server.URL, Model: "gpt-test"}, time.Second)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "missing key must fail before any network call")
}

func TestOpenAIExtractClausesRateLimitedNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIExtractClausesServerErrorRetriesThenFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}

func TestOpenAIExtractClausesRecoversAfterTransientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(chatCompletionBody(
			`[{"clause_type": "Termination", "content": "30 days notice."}]`,
		))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	clauses, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIExtractClausesMalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionBody("I could not find any clauses."))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenAIExtractClausesEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.ExtractClauses(context.Background(), Input{Text: "x"})
	require.ErrorIs(t, err, ErrMalformedResponse)
}
