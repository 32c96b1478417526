package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clause-extractor/internal/ai"
	"clause-extractor/internal/app"
	"clause-extractor/internal/pkg/pdfextract"
	"clause-extractor/internal/transport/http/response"
)

type ExtractionHandler struct {
	service        *app.ExtractionService
	maxUploadBytes int64
}

func NewExtractionHandler(service *app.ExtractionService, maxUploadBytes int64) *ExtractionHandler {
	return &ExtractionHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Extract accepts a multipart PDF under "file", runs the extraction flow
// against the provider named by the "provider" query param (default openai)
// and returns the persisted envelope.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	provider := c.DefaultQuery("provider", ai.ProviderOpenAI)

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, "missing file upload")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, "file too large")
		return
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, "only PDF files are supported")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.KindInternalError, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.KindInternalError, "failed to read upload")
		return
	}

	extraction, err := h.service.ProcessContract(c.Request.Context(), app.ProcessInput{
		Data:     data,
		Filename: file.Filename,
		Provider: provider,
	})
	if err != nil {
		h.writeProcessError(c, err)
		return
	}

	c.JSON(http.StatusOK, extraction)
}

func (h *ExtractionHandler) writeProcessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrEmptyUpload):
		response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, "uploaded file is empty")
	case errors.Is(err, ai.ErrUnknownProvider):
		response.Error(c, http.StatusBadRequest, response.KindUnknownProvider, "provider must be 'openai' or 'gemini'")
	case errors.Is(err, pdfextract.ErrUnreadable):
		response.Error(c, http.StatusBadRequest, response.KindUnreadableDocument, "file could not be parsed as a PDF")
	case errors.Is(err, ai.ErrAuth):
		response.Error(c, http.StatusUnauthorized, response.KindProviderAuthError, "provider credentials are missing or invalid")
	case errors.Is(err, ai.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, response.KindProviderRateLimited, "provider rate limit hit, back off and resubmit")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, response.KindProviderUnavailable, "provider is unavailable")
	case errors.Is(err, ai.ErrMalformedResponse):
		response.Error(c, http.StatusBadGateway, response.KindMalformedProviderResponse, "provider returned no usable clauses")
	case errors.Is(err, app.ErrDuplicateDocumentID), errors.Is(err, app.ErrPersistence):
		response.Error(c, http.StatusInternalServerError, response.KindPersistenceError, "failed to persist extraction")
	default:
		response.Error(c, http.StatusInternalServerError, response.KindInternalError, "extraction failed")
	}
}

func (h *ExtractionHandler) GetByID(c *gin.Context) {
	documentID := c.Param("document_id")

	extraction, err := h.service.GetExtraction(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, app.ErrExtractionNotFound) {
			response.Error(c, http.StatusNotFound, response.KindNotFound, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.KindPersistenceError, "failed to load extraction")
		return
	}

	c.JSON(http.StatusOK, extraction)
}

func (h *ExtractionHandler) List(c *gin.Context) {
	page, ok := parsePositiveQuery(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := parsePositiveQuery(c, "page_size", app.DefaultPageSize)
	if !ok {
		return
	}

	result, err := h.service.ListExtractions(c.Request.Context(), page, pageSize)
	if err != nil {
		if errors.Is(err, app.ErrInvalidPagination) {
			response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.KindPersistenceError, "failed to list extractions")
		return
	}

	c.JSON(http.StatusOK, result)
}

// parsePositiveQuery reads an integer query param, falling back to def when
// absent. A non-integer value writes a 400 and returns ok=false.
func parsePositiveQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.KindInvalidRequest, "invalid "+key)
		return 0, false
	}
	return value, true
}
