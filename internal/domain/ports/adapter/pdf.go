package adapter

import "context"

// PDFInspector checks a local file before it is uploaded.
type PDFInspector interface {
	// Inspect returns the page count, or domain.ErrNotPDF when data is not a readable PDF.
	Inspect(data []byte) (int, error)
}

// LinkResolver turns a landing page URL into a direct PDF link.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}
