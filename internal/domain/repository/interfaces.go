package repository

import (
	"context"

	"ArbBoard/internal/domain/models"
)

// QuoteSource returns the daily close history of one contract.
// A failed fetch is an error; a valid but empty history is not.
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string) (models.PriceSeries, error)
}

// BarStore persists daily bars for later reads by a QuoteSource.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBars(ctx context.Context, bars []models.DailyBar) error
	Health(ctx context.Context) error // ping
	Close() error
}

// SignalPublisher fans computed signals out to live consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, key string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordZScore(pair string, z float64)
	RecordCacheLookup(hit bool)
}
