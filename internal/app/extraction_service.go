package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clause-extractor/internal/ai"
	"clause-extractor/internal/model"
	"clause-extractor/internal/pkg/logger"
	"clause-extractor/internal/pkg/pdfextract"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrEmptyUpload         = errors.New("uploaded file is empty")
	ErrExtractionNotFound  = errors.New("extraction not found")
	ErrDuplicateDocumentID = errors.New("document id already exists")
	ErrPersistence         = errors.New("persist extraction failed")
	ErrInvalidPagination   = errors.New("page must be >= 1 and page_size in [1,100]")
)

// ExtractionStore is the durable keyed storage for extraction results.
type ExtractionStore interface {
	Create(ctx context.Context, extraction *model.Extraction) error
	GetByDocumentID(ctx context.Context, documentID string) (*model.Extraction, error)
	List(ctx context.Context, offset, limit int) ([]model.Extraction, int64, error)
}

// TextExtractor turns raw PDF bytes into per-page plain text.
type TextExtractor interface {
	ExtractPages(data []byte) (pdfextract.Document, error)
}

// ExtractionService sequences text extraction, the provider call and
// persistence for one contract upload. All per-request state is local to the
// call; nothing is shared across concurrent requests.
type ExtractionService struct {
	store         ExtractionStore
	textExtractor TextExtractor
	providers     *ai.Registry
}

func NewExtractionService(store ExtractionStore, textExtractor TextExtractor, providers *ai.Registry) *ExtractionService {
	return &ExtractionService{
		store:         store,
		textExtractor: textExtractor,
		providers:     providers,
	}
}

type ProcessInput struct {
	Data     []byte
	Filename string
	Provider string
}

type ExtractionList struct {
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	Extractions []model.Extraction `json:"extractions"`
}

// ProcessContract runs the extraction flow strictly in order: validate
// upload, extract text, call the selected provider, assemble the envelope,
// persist. Every failure is terminal for the request and leaves the store
// unchanged; only the provider client retries internally.
func (s *ExtractionService) ProcessContract(ctx context.Context, input ProcessInput) (*model.Extraction, error) {
	if len(input.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	// Resolve the provider token first so an unknown token never costs a
	// parse or a network call.
	client, err := s.providers.ForProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	doc, err := s.textExtractor.ExtractPages(input.Data)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "text extracted",
		"filename", input.Filename,
		"pages", doc.PageCount,
		"chars", len(doc.Text()),
	)

	// A zero-text document still goes to the provider; whether "no clauses
	// found" is an outcome is the provider's call, not ours.
	clauses, err := client.ExtractClauses(ctx, ai.Input{
		Text:     doc.Text(),
		Pages:    doc.Pages,
		Filename: input.Filename,
	})
	if err != nil {
		return nil, err
	}

	extraction := &model.Extraction{
		DocumentID: uuid.New().String(),
		Filename:   input.Filename,
		Clauses:    model.ClauseList(clauses),
		Metadata: model.MetadataJSON{
			PageCount:           doc.PageCount,
			ExtractionTimestamp: time.Now().UTC(),
			ClauseCount:         len(clauses),
		},
		// CreatedAt left zero: set by the store at persistence time.
	}

	if err := s.store.Create(ctx, extraction); err != nil {
		if errors.Is(err, ErrDuplicateDocumentID) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	logger.Info(ctx, "extraction persisted",
		"document_id", extraction.DocumentID,
		"filename", extraction.Filename,
		"provider", input.Provider,
		"clauses", len(clauses),
		"pages", doc.PageCount,
	)
	return extraction, nil
}

func (s *ExtractionService) GetExtraction(ctx context.Context, documentID string) (*model.Extraction, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, ErrExtractionNotFound
	}
	extraction, err := s.store.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if extraction == nil {
		return nil, ErrExtractionNotFound
	}
	return extraction, nil
}

// ListExtractions returns one page of extractions ordered most recent first.
// A page beyond the end is an empty list with the correct total, not an error.
func (s *ExtractionService) ListExtractions(ctx context.Context, page, pageSize int) (*ExtractionList, error) {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, ErrInvalidPagination
	}

	offset := (page - 1) * pageSize
	items, total, err := s.store.List(ctx, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if items == nil {
		items = []model.Extraction{}
	}
	return &ExtractionList{
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		Extractions: items,
	}, nil
}
