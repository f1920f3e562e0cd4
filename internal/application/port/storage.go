package port

import "context"

// InvoiceArchiver keeps a copy of each analysed invoice file
type InvoiceArchiver interface {
	Archive(ctx context.Context, employee, invoiceID string, content []byte) (string, error)
}

// TextExtractor pulls plain text out of an uploaded document
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
