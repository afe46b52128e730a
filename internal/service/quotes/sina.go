// Package quotes provides daily close history for futures contracts.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	xhttp "ArbBoard/pkg/http"
	applogger "ArbBoard/pkg/logger"
	"ArbBoard/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const sinaMethod = "InnerFuturesNewService.getDailyKLine"

// sinaBar is one element of the daily kline payload. Every field arrives as a
// quoted decimal string.
type sinaBar struct {
	D string          `json:"d"`
	O decimal.Decimal `json:"o"`
	H decimal.Decimal `json:"h"`
	L decimal.Decimal `json:"l"`
	C decimal.Decimal `json:"c"`
	V decimal.Decimal `json:"v"`
}

type SinaOption func(*SinaSource)

// SinaSource fetches main-contract daily bars from Sina's futures kline API.
type SinaSource struct {
	baseURL string
	client  *xhttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *applogger.Logger
	metrics domrepo.Metrics
	now     func() time.Time
}

func WithSinaLimiter(rps float64, burst int) SinaOption {
	return func(s *SinaSource) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithSinaBreaker trips after failures consecutive errors and stays open for timeout.
func WithSinaBreaker(failures uint32, timeout time.Duration) SinaOption {
	return func(s *SinaSource) { s.breaker = newBreaker("sina", failures, timeout) }
}

func WithSinaClock(now func() time.Time) SinaOption {
	return func(s *SinaSource) { s.now = now }
}

func WithSinaMetrics(m domrepo.Metrics) SinaOption {
	return func(s *SinaSource) { s.metrics = m }
}

func NewSinaSource(baseURL string, client *xhttp.Client, logger *applogger.Logger, opts ...SinaOption) *SinaSource {
	s := &SinaSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		breaker: newBreaker("sina", 5, 30*time.Second),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newBreaker(name string, failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// Fetch returns the full daily close history for symbol, ascending by date.
func (s *SinaSource) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	bars, err := s.FetchBars(ctx, symbol)
	if err != nil {
		return models.PriceSeries{}, err
	}
	series := models.PriceSeries{Symbol: symbol, Points: make([]models.PricePoint, len(bars))}
	for i, b := range bars {
		series.Points[i] = models.PricePoint{Date: b.Date, Price: b.Close}
	}
	if n := len(series.Points); n > 0 && s.metrics != nil {
		s.metrics.RecordLastPrice(symbol, series.Points[n-1].Price)
	}
	return series, nil
}

// FetchBars returns full OHLCV bars for symbol, ascending by date with unique dates.
func (s *SinaSource) FetchBars(ctx context.Context, symbol string) ([]models.DailyBar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}

	start := time.Now()
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.request(ctx, symbol)
	})
	if s.metrics != nil {
		s.metrics.RecordLatency("quote_fetch_sina", time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("quote_fetch")
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("sina breaker rejected request", applogger.String("symbol", symbol))
		} else {
			s.logger.Error("sina fetch failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}

	raw := out.([]sinaBar)
	bars, skipped := toBars(symbol, raw)
	if skipped > 0 {
		s.logger.Warn("sina returned unparseable bars",
			applogger.String("symbol", symbol),
			applogger.Int("skipped", skipped),
		)
	}
	s.logger.Debug("sina bars fetched",
		applogger.String("symbol", symbol),
		applogger.Int("bars", len(bars)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return bars, nil
}

func (s *SinaSource) request(ctx context.Context, symbol string) ([]sinaBar, error) {
	today := s.now()
	varName := fmt.Sprintf("_%s%s", symbol, today.Format("20060102"))
	reqURL := fmt.Sprintf("%s/%s=/%s", s.baseURL, url.PathEscape("var "+varName), sinaMethod)

	body, err := s.client.Fetch(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    reqURL,
		Query: url.Values{
			"symbol": {symbol},
			"type":   {today.Format("2006_01_02")},
		},
	})
	if err != nil {
		return nil, err
	}
	return parseJSONP(body)
}

// parseJSONP extracts the JSON array wrapped as `var x=([...]);`. A payload
// with no array (unknown symbol) is a valid empty history.
func parseJSONP(body []byte) ([]sinaBar, error) {
	text := string(body)
	open := strings.Index(text, "([")
	if open < 0 {
		if strings.Contains(text, "(null)") || strings.Contains(text, "=([]);") || strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected payload: %.80q", text)
	}
	end := strings.LastIndex(text, "])")
	if end < open {
		return nil, fmt.Errorf("truncated payload")
	}
	var bars []sinaBar
	if err := json.Unmarshal([]byte(text[open+1:end+1]), &bars); err != nil {
		return nil, fmt.Errorf("decode kline: %w", err)
	}
	return bars, nil
}

// toBars converts raw rows, dropping rows with a bad date or a non-positive
// close. Duplicated dates keep the last row.
func toBars(symbol string, raw []sinaBar) ([]models.DailyBar, int) {
	byDay := make(map[time.Time]models.DailyBar, len(raw))
	skipped := 0
	for _, r := range raw {
		d, ok := util.ParseDate(r.D)
		if !ok || !r.C.IsPositive() {
			skipped++
			continue
		}
		byDay[d] = models.DailyBar{
			Symbol: symbol,
			Date:   d,
			Open:   r.O.InexactFloat64(),
			High:   r.H.InexactFloat64(),
			Low:    r.L.InexactFloat64(),
			Close:  r.C.InexactFloat64(),
			Volume: r.V.InexactFloat64(),
		}
	}
	out := make([]models.DailyBar, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, skipped
}

var _ domrepo.QuoteSource = (*SinaSource)(nil)
