package extract

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tbuckley92/eyelog/internal/common"
)

// PDFExtractor reads the text layer of a PDF and yields positioned fragments.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract opens the document and collects (text, x, y) fragments per page.
// A document that cannot be opened at all is a fatal error for the upload;
// no partial extraction is attempted.
func (e *PDFExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) ([]Page, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		e.logger.Error("failed to open pdf", "error", err)
		return nil, common.NewAppError("DOCUMENT_ERROR", "cannot open document", common.ErrDocument)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for n := 1; n <= numPages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(n)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		fragments := make([]Fragment, 0, len(content.Text))
		for _, t := range content.Text {
			text := strings.TrimSpace(t.S)
			if text == "" {
				continue
			}
			fragments = append(fragments, Fragment{Text: text, X: t.X, Y: t.Y})
		}
		pages = append(pages, Page{Number: n, Fragments: fragments})
	}

	e.logger.Debug("pdf text extracted", "pages", len(pages))
	return pages, nil
}
