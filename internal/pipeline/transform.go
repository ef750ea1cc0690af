package pipeline

import (
	"context"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

// RowTransformer implements Transformer using the domain archive-row parser.
// Every parameter present in the archive is kept; filtering happens at query
// time against the store.
type RowTransformer struct{}

// NewTransformer creates a RowTransformer.
func NewTransformer() *RowTransformer {
	return &RowTransformer{}
}

func (t *RowTransformer) Transform(_ context.Context, row domain.ArchiveRow) (domain.Reading, error) {
	return domain.ParseArchiveRow(row)
}
