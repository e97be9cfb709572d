package extract

import (
	"context"
	"io"
)

// Fragment is one positioned text run on a page, in PDF coordinate space
// (origin bottom-left).
type Fragment struct {
	Text string
	X    float64
	Y    float64
}

// Page holds the fragments extracted from one page of a document.
type Page struct {
	Number    int
	Fragments []Fragment
}

// TextExtractor is Stage 1: document bytes -> positioned text fragments.
// Any PDF text-layer reader satisfies this.
type TextExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]Page, error)
}
