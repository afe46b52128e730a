package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ArbBoard/internal/domain/models"
	domrepo "ArbBoard/internal/domain/repository"
	pkgkafka "ArbBoard/pkg/kafka"
	"ArbBoard/pkg/util"
)

// KafkaBarsHandler consumes daily bar messages and writes them to the bar store.
type KafkaBarsHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, date, open, high, low, close, volume},
// either a single object or an array of them.
type barMessage struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	bars, err := decodeBars(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %w", pkgkafka.ErrPermanent, err)
	}

	start := time.Now()
	err = h.store.StoreBars(ctx, bars)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	for _, bar := range bars {
		h.metrics.RecordMessageSent("clickhouse", bar.Symbol)
		h.metrics.RecordLastPrice(bar.Symbol, bar.Close)
	}
	return nil
}

func decodeBars(b []byte) ([]models.DailyBar, error) {
	var msgs []barMessage
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(b, &msgs); err != nil {
			return nil, err
		}
	} else {
		var m barMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		msgs = []barMessage{m}
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("empty bar batch")
	}

	bars := make([]models.DailyBar, 0, len(msgs))
	for _, m := range msgs {
		if m.Symbol == "" {
			return nil, fmt.Errorf("bar without symbol")
		}
		d, ok := util.ParseDate(m.Date)
		if !ok {
			return nil, fmt.Errorf("bar %s: bad date %q", m.Symbol, m.Date)
		}
		if m.Close <= 0 {
			return nil, fmt.Errorf("bar %s %s: non-positive close %v", m.Symbol, m.Date, m.Close)
		}
		bars = append(bars, models.DailyBar{
			Symbol: m.Symbol,
			Date:   d,
			Open:   m.Open,
			High:   m.High,
			Low:    m.Low,
			Close:  m.Close,
			Volume: m.Volume,
		})
	}
	return bars, nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
