package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	"ArbBoard/internal/registry"
	"ArbBoard/internal/services/spread"
	applogger "ArbBoard/pkg/logger"

	"github.com/google/uuid"
)

type SignalParams struct {
	Pair   string
	Window int     // 0 means the pair's default
	K      float64 // 0 means the pair's default
}

// SignalService resolves a pair, loads both legs and runs the spread engine.
type SignalService struct {
	pairs     *registry.Registry
	quotes    domrepo.QuoteSource
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	timeout   time.Duration
	now       func() time.Time
}

type SignalOption func(*SignalService)

// WithPublisher enables the live signal feed.
func WithPublisher(p domrepo.SignalPublisher) SignalOption {
	return func(s *SignalService) { s.publisher = p }
}

// WithFetchTimeout bounds the time spent loading both legs.
func WithFetchTimeout(d time.Duration) SignalOption {
	return func(s *SignalService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSignalService(pairs *registry.Registry, quotes domrepo.QuoteSource, metrics domrepo.Metrics, logger *applogger.Logger, opts ...SignalOption) *SignalService {
	s := &SignalService{
		pairs:   pairs,
		quotes:  quotes,
		metrics: metrics,
		logger:  logger,
		timeout: 15 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pairs lists configured pairs in registry order.
func (s *SignalService) Pairs() []models.PairDefinition {
	return s.pairs.All()
}

// Compute produces a fresh SignalResult for p. Each call refetches (through
// whatever cache the quote source has) and recomputes from scratch.
func (s *SignalService) Compute(ctx context.Context, p SignalParams) (*models.SignalResult, error) {
	start := time.Now()
	def, err := s.pairs.Get(p.Pair)
	if err != nil {
		s.metrics.RecordError("unknown_pair")
		return nil, err
	}
	if p.Window == 0 {
		p.Window = def.DefaultWindow
	}
	if p.K == 0 {
		p.K = def.DefaultK
	}

	a, b, err := s.fetchLegs(ctx, def)
	if err != nil {
		s.metrics.RecordError("no_data")
		return nil, err
	}

	res, err := spread.Compute(a, b, def, p.Window, p.K)
	s.metrics.RecordLatency("signal_compute", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError(errorKind(err))
		s.logger.Warn("signal compute failed",
			applogger.String("pair", def.Name),
			applogger.Int("window", p.Window),
			applogger.Float64("k", p.K),
			applogger.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordZScore(def.Name, res.Snapshot.ZScore)
	s.logger.Debug("signal computed",
		applogger.String("pair", def.Name),
		applogger.Int("rows", len(res.Rows)),
		applogger.Float64("z", res.Snapshot.ZScore),
		applogger.String("class", string(res.Snapshot.Classification)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	s.publish(ctx, res)
	return res, nil
}

// fetchLegs loads both legs concurrently. Any failure or empty leg is
// reported as spread.ErrInsufficientData wrapping the cause.
func (s *SignalService) fetchLegs(ctx context.Context, def models.PairDefinition) (models.PriceSeries, models.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type item struct {
		leg    string
		series models.PriceSeries
		err    error
	}
	ch := make(chan item, 2)
	var wg sync.WaitGroup

	for _, leg := range []struct{ name, symbol string }{{"a", def.SymbolA}, {"b", def.SymbolB}} {
		wg.Add(1)
		go func(name, symbol string) {
			defer wg.Done()
			series, err := s.quotes.Fetch(ctx, symbol)
			ch <- item{name, series, err}
		}(leg.name, leg.symbol)
	}
	go func() { wg.Wait(); close(ch) }()

	var a, b models.PriceSeries
	var errs []error
	for it := range ch {
		if it.err != nil {
			s.logger.Warn("quote fetch failed", applogger.String("pair", def.Name), applogger.String("leg", it.leg), applogger.Error(it.err))
			errs = append(errs, it.err)
			continue
		}
		if it.leg == "a" {
			a = it.series
		} else {
			b = it.series
		}
	}
	if len(errs) > 0 {
		return a, b, fmt.Errorf("%w: %w", spread.ErrInsufficientData, errors.Join(errs...))
	}
	if a.Empty() || b.Empty() {
		s.logger.Warn("quote history empty",
			applogger.String("pair", def.Name),
			applogger.Int("rows_a", a.Len()),
			applogger.Int("rows_b", b.Len()),
		)
		return a, b, fmt.Errorf("%w: %s=%d rows, %s=%d rows", spread.ErrInsufficientData, def.SymbolA, a.Len(), def.SymbolB, b.Len())
	}
	a.Symbol, b.Symbol = def.SymbolA, def.SymbolB
	return a, b, nil
}

func (s *SignalService) publish(ctx context.Context, res *models.SignalResult) {
	if s.publisher == nil {
		return
	}
	ev := &models.SignalEvent{
		ID:          uuid.NewString(),
		Pair:        res.Pair.Name,
		Window:      res.Window,
		K:           res.K,
		Snapshot:    res.Snapshot,
		Sensitivity: res.Sensitivity,
		ComputedAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.RecordError("signal_publish")
		s.logger.Warn("signal publish failed", applogger.String("pair", ev.Pair), applogger.Error(err))
		return
	}
	s.metrics.RecordMessageSent("kafka", ev.Pair)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, spread.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, spread.ErrInsufficientWindow):
		return "insufficient_window"
	case errors.Is(err, spread.ErrInsufficientData):
		return "no_data"
	default:
		return "compute"
	}
}
