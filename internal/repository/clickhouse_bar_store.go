package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	pkgch "ArbBoard/pkg/clickhouse"
	applogger "ArbBoard/pkg/logger"
)

const barsTable = "daily_bars"

// CHBarStore stores daily bars in ClickHouse and serves them back as close
// histories. It is both a BarStore and a QuoteSource.
type CHBarStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{db: ch.DB(), database: ch.Database(), l: l}
}

func (s *CHBarStore) table() string {
	return s.database + "." + barsTable
}

func (s *CHBarStore) schema() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol LowCardinality(String),
    d Date,
    open Float64,
    high Float64,
    low Float64,
    close Float64,
    volume Float64,
    ingested_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (symbol, d)`, s.table()),
	}
}

// Init creates the database and table if missing. Statements are idempotent.
func (s *CHBarStore) Init(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES in chunks to bound statement size.
	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, d, open, high, low, close, volume) VALUES %s",
			s.table(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_bars error",
				applogger.String("table", s.table()),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

// Fetch returns the close history of symbol. FINAL collapses rows replaced by
// later ingests of the same day.
func (s *CHBarStore) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	start := time.Now()
	q := fmt.Sprintf("SELECT d, close FROM %s FINAL WHERE symbol = ? ORDER BY d ASC", s.table())
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.l.Error("clickhouse fetch_closes query error",
			applogger.String("table", s.table()),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.PriceSeries{}, fmt.Errorf("fetch closes %s: %w", symbol, err)
	}
	defer rows.Close()

	series := models.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return models.PriceSeries{}, fmt.Errorf("scan close %s: %w", symbol, err)
		}
		p.Date = time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), 0, 0, 0, 0, time.UTC)
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, fmt.Errorf("rows %s: %w", symbol, err)
	}

	s.l.Debug("clickhouse closes fetched",
		applogger.String("symbol", symbol),
		applogger.Int("rows", series.Len()),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return series, nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHBarStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

var (
	_ domrepo.BarStore    = (*CHBarStore)(nil)
	_ domrepo.QuoteSource = (*CHBarStore)(nil)
)
