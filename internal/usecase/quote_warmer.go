package usecase

import (
	"context"
	"sync"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	applogger "ArbBoard/pkg/logger"
)

// RefreshableSource is a cached QuoteSource whose entries can be dropped.
type RefreshableSource interface {
	domrepo.QuoteSource
	Invalidate(ctx context.Context, symbols ...string) error
}

// QuoteWarmer periodically refetches every leg of every pair so requests
// rarely pay for an upstream round trip.
type QuoteWarmer struct {
	src      RefreshableSource
	symbols  []string
	interval time.Duration
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewQuoteWarmer(src RefreshableSource, pairs []models.PairDefinition, interval time.Duration, metrics domrepo.Metrics, logger *applogger.Logger) *QuoteWarmer {
	seen := make(map[string]bool)
	var symbols []string
	for _, p := range pairs {
		for _, s := range []string{p.SymbolA, p.SymbolB} {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	return &QuoteWarmer{
		src:      src,
		symbols:  symbols,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Symbols returns the distinct symbols the warmer refreshes.
func (w *QuoteWarmer) Symbols() []string {
	return append([]string(nil), w.symbols...)
}

// Start warms once immediately, then every interval until Stop or ctx ends.
func (w *QuoteWarmer) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			w.WarmOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
	w.logger.Info("quote warmer started",
		applogger.Strings("symbols", w.symbols),
		applogger.Duration("interval_ms", w.interval),
	)
}

// Stop waits for an in-progress round to finish.
func (w *QuoteWarmer) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()
	<-done
}

// WarmOnce refreshes every symbol and returns how many succeeded.
func (w *QuoteWarmer) WarmOnce(ctx context.Context) int {
	start := time.Now()
	ok := 0
	for _, sym := range w.symbols {
		if ctx.Err() != nil {
			break
		}
		if err := w.src.Invalidate(ctx, sym); err != nil {
			w.logger.Warn("quote cache invalidate failed", applogger.String("symbol", sym), applogger.Error(err))
		}
		series, err := w.src.Fetch(ctx, sym)
		if err != nil {
			w.metrics.RecordError("warm_fetch")
			w.logger.Warn("quote warm failed", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		if n := series.Len(); n > 0 {
			w.metrics.RecordLastPrice(sym, series.Points[n-1].Price)
		}
		ok++
	}
	w.metrics.RecordLatency("quote_warm", time.Since(start).Seconds())
	w.logger.Debug("quote warm round done",
		applogger.Int("ok", ok),
		applogger.Int("symbols", len(w.symbols)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return ok
}
