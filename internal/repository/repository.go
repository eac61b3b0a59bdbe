package repository

import (
	"context"

	"github.com/sakif/business-cards/internal/model"
)

// ListOptions pages a conversion listing. A non-empty CardID keeps only the
// conversions of that card.
type ListOptions struct {
	Limit  int
	Offset int
	CardID string
}

// ConversionRepository stores the audit trail of PDF conversions.
type ConversionRepository interface {
	Record(ctx context.Context, c *model.Conversion) error
	List(ctx context.Context, opts ListOptions) ([]model.Conversion, error)
}
