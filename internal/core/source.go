package core

import (
	"context"
	"errors"

	"phenoqc/pkg/domain"
)

// MeasurementSource fetches the complete measurement set of a data context.
// Implementations must honour ctx cancellation.
type MeasurementSource interface {
	Measurements(ctx context.Context, dc domain.DataContext) (domain.MeasurementSet, error)
}

// ParameterSource looks up parameter catalogue metadata by parameter key.
type ParameterSource interface {
	Parameter(ctx context.Context, key string) (domain.ParameterMetadata, error)
}

// CitationSource returns the data points an issue cites.
type CitationSource interface {
	CitedDataPoints(ctx context.Context, issueID int64) ([]domain.CitedDataPoint, error)
}

// ErrStale is returned by a load or citation fetch that was superseded by a
// newer request. Its result was discarded.
var ErrStale = errors.New("visualiser: result superseded by a newer request")

// ErrNotLoaded is returned by operations that need a loaded data context.
var ErrNotLoaded = errors.New("visualiser: no data context loaded")
