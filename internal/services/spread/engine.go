// Package spread computes the rolling spread channel, Z-score and multiplier
// sensitivity for a pair of daily close series. Everything here is pure.
package spread

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ArbBoard/internal/domain/models"
	"ArbBoard/pkg/util"
)

// SensitivityKs are the channel multipliers evaluated by Sensitivity.
var SensitivityKs = [...]float64{1.0, 1.5, 2.0, 2.5, 3.0}

// Compute aligns both legs, builds the spread channel and takes the snapshot
// at the latest aligned date. Either a complete result or an error comes back.
func Compute(a, b models.PriceSeries, def models.PairDefinition, window int, k float64) (*models.SignalResult, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: window must be >= 2, got %d", ErrInvalidParameter, window)
	}
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("%w: k must be positive, got %v", ErrInvalidParameter, k)
	}
	if a.Empty() || b.Empty() {
		return nil, fmt.Errorf("%w: %s=%d rows, %s=%d rows", ErrInsufficientData, a.Symbol, a.Len(), b.Symbol, b.Len())
	}

	aligned := Align(a, b)
	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: %s and %s share no dates", ErrInsufficientData, a.Symbol, b.Symbol)
	}
	if len(aligned) < window {
		return nil, fmt.Errorf("%s/%s: %w", a.Symbol, b.Symbol, &WindowError{Rows: len(aligned), Window: window})
	}

	spreads := SpreadSeries(aligned, def.CoeffA, def.CoeffB)
	mean, std, ready := Rolling(spreads, window)

	rows := make([]models.ChannelRow, len(aligned))
	for i, r := range aligned {
		row := models.ChannelRow{
			Date:   r.Date,
			PriceA: r.PriceA,
			PriceB: r.PriceB,
			Spread: spreads[i],
		}
		if ready[i] {
			row.Ready = true
			row.Mean = mean[i]
			row.StdDev = std[i]
			row.Upper = mean[i] + k*std[i]
			row.Lower = mean[i] - k*std[i]
		}
		rows[i] = row
	}

	last := rows[len(rows)-1]
	snap := models.SignalSnapshot{
		Date:           last.Date,
		PriceA:         last.PriceA,
		PriceB:         last.PriceB,
		Spread:         last.Spread,
		Mean:           last.Mean,
		StdDev:         last.StdDev,
		Upper:          last.Upper,
		Lower:          last.Lower,
		ZScore:         ZScore(last.Spread, last.Mean, last.StdDev),
		Classification: Classify(last.Spread, last.Lower, last.Upper),
	}

	return &models.SignalResult{
		Pair:        def,
		Window:      window,
		K:           k,
		Rows:        rows,
		Snapshot:    snap,
		Sensitivity: Sensitivity(last.Spread, last.Mean, last.StdDev),
	}, nil
}

// Align inner-joins two series on date and returns rows ascending by date.
// Inputs are not required to be sorted; a duplicated date keeps its last value.
func Align(a, b models.PriceSeries) []models.AlignedRow {
	bByDay := make(map[time.Time]float64, len(b.Points))
	for _, p := range b.Points {
		bByDay[util.DayOf(p.Date)] = p.Price
	}
	aByDay := make(map[time.Time]float64, len(a.Points))
	for _, p := range a.Points {
		aByDay[util.DayOf(p.Date)] = p.Price
	}

	out := make([]models.AlignedRow, 0, min(len(aByDay), len(bByDay)))
	for day, pa := range aByDay {
		pb, ok := bByDay[day]
		if !ok {
			continue
		}
		out = append(out, models.AlignedRow{Date: day, PriceA: pa, PriceB: pb})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SpreadSeries returns priceA*coeffA + priceB*coeffB per aligned row.
func SpreadSeries(rows []models.AlignedRow, coeffA, coeffB float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.PriceA*coeffA + r.PriceB*coeffB
	}
	return out
}

// Rolling computes the trailing mean and sample standard deviation (n-1) of
// values over exactly window points. ready[i] is false for i < window-1.
func Rolling(values []float64, window int) (mean, std []float64, ready []bool) {
	n := len(values)
	mean = make([]float64, n)
	std = make([]float64, n)
	ready = make([]bool, n)
	if window < 2 {
		return mean, std, ready
	}
	w := float64(window)
	for i := window - 1; i < n; i++ {
		win := values[i-window+1 : i+1]
		sum := 0.0
		for _, v := range win {
			sum += v
		}
		m := sum / w
		ss := 0.0
		for _, v := range win {
			d := v - m
			ss += d * d
		}
		mean[i] = m
		std[i] = math.Sqrt(ss / (w - 1))
		ready[i] = true
	}
	return mean, std, ready
}

// ZScore is (spread-mean)/stddev, defined as 0 for a flat window.
func ZScore(spread, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (spread - mean) / stddev
}

// Classify places spread against a [lower, upper] channel.
func Classify(spread, lower, upper float64) models.Classification {
	switch {
	case spread > upper:
		return models.Overbought
	case spread < lower:
		return models.Oversold
	default:
		return models.Neutral
	}
}

// Sensitivity classifies the snapshot at every multiplier in SensitivityKs.
func Sensitivity(spread, mean, stddev float64) []models.SensitivityEntry {
	out := make([]models.SensitivityEntry, 0, len(SensitivityKs))
	for _, k := range SensitivityKs {
		up := mean + k*stddev
		lo := mean - k*stddev
		out = append(out, models.SensitivityEntry{
			K:              k,
			Classification: Classify(spread, lo, up),
			Lower:          lo,
			Upper:          up,
		})
	}
	return out
}
