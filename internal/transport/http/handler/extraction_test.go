package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clause-extractor/internal/ai"
	"clause-extractor/internal/app"
	"clause-extractor/internal/model"
	"clause-extractor/internal/pkg/pdfextract"
	"clause-extractor/internal/transport/http/response"
)

type memStore struct {
	byID      map[string]*model.Extraction
	ordered   []model.Extraction
	createErr error
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*model.Extraction)}
}

func (s *memStore) Create(ctx context.Context, extraction *model.Extraction) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byID[extraction.DocumentID]; exists {
		return fmt.Errorf("%w: %s", app.ErrDuplicateDocumentID, extraction.DocumentID)
	}
	extraction.CreatedAt = time.Now()
	s.byID[extraction.DocumentID] = extraction
	// Most recent first, matching the repository's created_at DESC order.
	s.ordered = append([]model.Extraction{*extraction}, s.ordered...)
	return nil
}

func (s *memStore) GetByDocumentID(ctx context.Context, documentID string) (*model.Extraction, error) {
	return s.byID[documentID], nil
}

func (s *memStore) List(ctx context.Context, offset, limit int) ([]model.Extraction, int64, error) {
	total := int64(len(s.ordered))
	if offset >= len(s.ordered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(s.ordered) {
		end = len(s.ordered)
	}
	return s.ordered[offset:end], total, nil
}

type stubTextExtractor struct {
	doc   pdfextract.Document
	err   error
	calls int
}

func (s *stubTextExtractor) ExtractPages(data []byte) (pdfextract.Document, error) {
	s.calls++
	return s.doc, s.err
}

type stubProvider struct {
	clauses []model.Clause
	err     error
	calls   int
}

func (s *stubProvider) ExtractClauses(ctx context.Context, input ai.Input) ([]model.Clause, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.clauses, nil
}

type testEnv struct {
	router   *gin.Engine
	store    *memStore
	text     *stubTextExtractor
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	text := &stubTextExtractor{doc: pdfextract.Document{
		Pages:     []string{"page one", "page two"},
		PageCount: 2,
	}}
	provider := &stubProvider{clauses: []model.Clause{
		{ClauseType: "Payment Terms", Content: "Net 30."},
		{ClauseType: "Confidentiality", Content: "Keep it secret."},
		{ClauseType: "Termination", Content: "30 days notice."},
	}}

	registry := ai.NewRegistry()
	registry.Register(ai.ProviderOpenAI, provider)

	service := app.NewExtractionService(store, text, registry)
	h := NewExtractionHandler(service, 1<<20)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/extract", h.Extract)
	api.GET("/extractions", h.List)
	api.GET("/extractions/:document_id", h.GetByID)

	return &testEnv{router: router, store: store, text: text, provider: provider}
}

func multipartPDF(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postExtract(t *testing.T, env *testEnv, url, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartPDF(t, filename, content)
	req := httptest.NewRequest("POST", url, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestExtractSuccess(t *testing.T) {
	env := newTestEnv(t)

	w := postExtract(t, env, "/api/extract?provider=openai", "sample.pdf", []byte("%PDF-fake"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.Extraction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, "sample.pdf", result.Filename)
	assert.Len(t, result.Clauses, 3)
	assert.Equal(t, 3, model.ExtractionMetadata(result.Metadata).ClauseCount)
	assert.Equal(t, 2, model.ExtractionMetadata(result.Metadata).PageCount)
	assert.NotEmpty(t, result.DocumentID)
	assert.False(t, result.CreatedAt.IsZero())

	// Round trip through the retrieve endpoint.
	req := httptest.NewRequest("GET", "/api/extractions/"+result.DocumentID, nil)
	getW := httptest.NewRecorder()
	env.router.ServeHTTP(getW, req)
	require.Equal(t, http.StatusOK, getW.Code)

	var fetched model.Extraction
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &fetched))
	assert.Equal(t, result.DocumentID, fetched.DocumentID)
	assert.Equal(t, result.Clauses, fetched.Clauses)
}

func TestExtractDefaultsToOpenAI(t *testing.T) {
	env := newTestEnv(t)

	w := postExtract(t, env, "/api/extract", "sample.pdf", []byte("%PDF-fake"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.provider.calls)
}

func TestExtractUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	w := postExtract(t, env, "/api/extract?provider=unknown-token", "sample.pdf", []byte("%PDF-fake"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.KindUnknownProvider, decodeError(t, w).Error)
	assert.Equal(t, 0, env.provider.calls, "unknown provider must never reach a client")
}

func TestExtractMissingFile(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/api/extract", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.KindInvalidRequest, decodeError(t, w).Error)
}

func TestExtractRejectsNonPDFExtension(t *testing.T) {
	env := newTestEnv(t)

	w := postExtract(t, env, "/api/extract", "contract.docx", []byte("word doc"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.text.calls)
}

func TestExtractUnreadableDocument(t *testing.T) {
	env := newTestEnv(t)
	env.text.err = fmt.Errorf("%w: bad header", pdfextract.ErrUnreadable)

	w := postExtract(t, env, "/api/extract", "broken.pdf", []byte("not a pdf"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.KindUnreadableDocument, decodeError(t, w).Error)
	assert.Equal(t, 0, env.provider.calls)
	assert.Empty(t, env.store.byID)
}

func TestExtractProviderErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{ai.ErrUnavailable, http.StatusBadGateway, response.KindProviderUnavailable},
		{ai.ErrAuth, http.StatusUnauthorized, response.KindProviderAuthError},
		{ai.ErrRateLimited, http.StatusTooManyRequests, response.KindProviderRateLimited},
		{ai.ErrMalformedResponse, http.StatusBadGateway, response.KindMalformedProviderResponse},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			env := newTestEnv(t)
			env.provider.err = tc.err

			w := postExtract(t, env, "/api/extract", "sample.pdf", []byte("%PDF-fake"))
			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.kind, decodeError(t, w).Error)
			assert.Empty(t, env.store.byID, "failed requests must leave the store unchanged")
		})
	}
}

func TestExtractPersistenceError(t *testing.T) {
	env := newTestEnv(t)
	env.store.createErr = errors.New("connection lost")

	w := postExtract(t, env, "/api/extract", "sample.pdf", []byte("%PDF-fake"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.KindPersistenceError, decodeError(t, w).Error)
}

func TestGetExtractionNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/extractions/unknown-id", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.KindNotFound, decodeError(t, w).Error)
}

func TestListExtractionsPagination(t *testing.T) {
	env := newTestEnv(t)

	// Store five extractions through the real flow.
	for i := 0; i < 5; i++ {
		w := postExtract(t, env, "/api/extract", "sample.pdf", []byte("%PDF-fake"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest("GET", "/api/extractions?page=2&page_size=10", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result app.ExtractionList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Empty(t, result.Extractions)

	req = httptest.NewRequest("GET", "/api/extractions?page=1&page_size=3", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(5), result.Total)
	assert.Len(t, result.Extractions, 3)
}

func TestListExtractionsDefaults(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/extractions", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var result app.ExtractionList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, app.DefaultPageSize, result.PageSize)
	assert.Equal(t, int64(0), result.Total)
	assert.Empty(t, result.Extractions)
}

func TestListExtractionsRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{
		"page=0",
		"page_size=0",
		"page_size=101",
		"page=abc",
		"page_size=abc",
	} {
		req := httptest.NewRequest("GET", "/api/extractions?"+query, nil)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
		assert.Equal(t, response.KindInvalidRequest, decodeError(t, w).Error, "query %q", query)
	}
}

func TestExtractRejectsOversizedUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	env := newTestEnv(t)
	// Rebuild the route with a 16-byte cap.
	registry := ai.NewRegistry()
	registry.Register(ai.ProviderOpenAI, env.provider)
	service := app.NewExtractionService(env.store, env.text, registry)
	h := NewExtractionHandler(service, 16)

	router := gin.New()
	router.POST("/api/extract", h.Extract)
	env.router = router

	w := postExtract(t, env, "/api/extract", "big.pdf", bytes.Repeat([]byte("a"), 64))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.text.calls)
}
