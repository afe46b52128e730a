package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ArbBoard/internal/domain/models"
	pkgkafka "ArbBoard/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBarStore struct {
	bars []models.DailyBar
	err  error
}

func (s *memBarStore) Init(context.Context) error { return nil }
func (s *memBarStore) Health(context.Context) error { return nil }
func (s *memBarStore) Close() error { return nil }
func (s *memBarStore) StoreBars(_ context.Context, bars []models.DailyBar) error {
	if s.err != nil {
		return s.err
	}
	s.bars = append(s.bars, bars...)
	return nil
}

func TestKafkaBarsHandlerSingle(t *testing.T) {
	store := &memBarStore{}
	m := &recMetrics{}
	h := NewKafkaBarsHandler("arbboard.bars", store, m)
	assert.Equal(t, "arbboard.bars", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"symbol":"RB0","date":"2024-03-01","open":3500,"high":3550,"low":3480,"close":3520,"volume":12000}`))
	require.NoError(t, err)
	require.Len(t, store.bars, 1)
	bar := store.bars[0]
	assert.Equal(t, "RB0", bar.Symbol)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bar.Date)
	assert.Equal(t, 3520.0, bar.Close)
	assert.Equal(t, 3520.0, m.last["RB0"])
	assert.Equal(t, 1, m.sent)
}

func TestKafkaBarsHandlerBatch(t *testing.T) {
	store := &memBarStore{}
	h := NewKafkaBarsHandler("bars", store, &recMetrics{})

	err := h.Handle(context.Background(), []byte(` [
		{"symbol":"HC0","date":"2024-03-01","close":3700},
		{"symbol":"HC0","date":"2024-03-04","close":3710}
	]`))
	require.NoError(t, err)
	assert.Len(t, store.bars, 2)
}

func TestKafkaBarsHandlerMalformedIsPermanent(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"symbol":`,
		"missing symbol": `{"date":"2024-03-01","close":1}`,
		"bad date":       `{"symbol":"RB0","date":"03/01/2024","close":1}`,
		"zero close":     `{"symbol":"RB0","date":"2024-03-01","close":0}`,
		"empty batch":    `[]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			store := &memBarStore{}
			m := &recMetrics{}
			h := NewKafkaBarsHandler("bars", store, m)
			err := h.Handle(context.Background(), []byte(payload))
			assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
			assert.Empty(t, store.bars)
			assert.Equal(t, []string{"consumer_unmarshal"}, m.errors)
		})
	}
}

func TestKafkaBarsHandlerStoreErrorIsRetryable(t *testing.T) {
	boom := errors.New("clickhouse down")
	m := &recMetrics{}
	h := NewKafkaBarsHandler("bars", &memBarStore{err: boom}, m)

	err := h.Handle(context.Background(), []byte(`{"symbol":"RB0","date":"2024-03-01","close":3520}`))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, pkgkafka.ErrPermanent)
	assert.Equal(t, []string{"consumer_store"}, m.errors)
}
