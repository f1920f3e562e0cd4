// Package extraction turns uploaded policy and invoice files into plain text.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var (
	// ErrNoText is returned when a document contains no extractable text
	ErrNoText = errors.New("no text could be extracted")

	// ErrUnsupportedFile is returned for uploads of the wrong kind
	ErrUnsupportedFile = errors.New("unsupported file")
)

// PDFTextExtractor reads the text layer of PDF documents with MuPDF
type PDFTextExtractor struct {
	logger *zap.Logger
}

var _ port.TextExtractor = (*PDFTextExtractor)(nil)

// NewPDFTextExtractor creates a new PDFTextExtractor
func NewPDFTextExtractor(logger *zap.Logger) *PDFTextExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFTextExtractor{logger: logger}
}

// ExtractText concatenates the text of every page. Pages that fail to
// extract are skipped; ErrNoText is returned when nothing is left.
func (e *PDFTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrNoText)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open PDF: %v", ErrUnsupportedFile, err)
	}
	defer doc.Close()

	var b strings.Builder
	pageCount := doc.NumPage()
	for page := 0; page < pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(page)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		b.WriteString(text)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}

	e.logger.Debug("Extracted PDF text",
		zap.Int("pages", pageCount),
		zap.Int("characters", len(text)))
	return text, nil
}
