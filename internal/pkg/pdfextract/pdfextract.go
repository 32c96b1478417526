package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned when the input cannot be parsed as a PDF:
// corrupt bytes, non-PDF content, or an encrypted document.
var ErrUnreadable = errors.New("document is not a readable PDF")

// Document is the plain-text view of a PDF, one entry per page.
// Pages may contain empty strings for image-only pages.
type Document struct {
	Pages     []string
	PageCount int
}

// Text returns the concatenation of all page texts, newline separated.
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractPages parses data as a PDF and extracts plain text per page.
// A valid PDF with no extractable text yields empty page strings and no error.
func (e *Extractor) ExtractPages(data []byte) (doc Document, err error) {
	// The underlying parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrUnreadable)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep the page slot so page numbering stays stable.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return Document{Pages: pages, PageCount: pageCount}, nil
}
