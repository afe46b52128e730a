package quotes

import (
	"context"
	"errors"
	"fmt"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	applogger "ArbBoard/pkg/logger"
)

// NamedSource tags a source for logs.
type NamedSource struct {
	Name   string
	Source domrepo.QuoteSource
}

// FallbackSource asks each source in turn and returns the first success.
// An empty series from a source is a success.
type FallbackSource struct {
	sources []NamedSource
	logger  *applogger.Logger
}

func NewFallbackSource(logger *applogger.Logger, sources ...NamedSource) *FallbackSource {
	return &FallbackSource{sources: sources, logger: logger}
}

func (f *FallbackSource) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	var errs []error
	for _, s := range f.sources {
		series, err := s.Source.Fetch(ctx, symbol)
		if err == nil {
			return series, nil
		}
		if ctx.Err() != nil {
			return models.PriceSeries{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, ctx.Err())
		}
		f.logger.Warn("quote source failed, trying next",
			applogger.String("source", s.Name),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return models.PriceSeries{}, fmt.Errorf("%w: %s: no sources configured", ErrQuoteUnavailable, symbol)
	}
	return models.PriceSeries{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, errors.Join(errs...))
}

var _ domrepo.QuoteSource = (*FallbackSource)(nil)
