package spread

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"ArbBoard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(symbol string, prices map[int]float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol}
	for i := 0; i < 400; i++ {
		if p, ok := prices[i]; ok {
			s.Points = append(s.Points, models.PricePoint{Date: day(i), Price: p})
		}
	}
	return s
}

var spreadPair = models.PairDefinition{Name: "test", SymbolA: "A0", SymbolB: "B0", CoeffA: 1, CoeffB: -1}

func TestComputeWorkedExample(t *testing.T) {
	a := series("A0", map[int]float64{1: 100, 2: 102, 3: 101})
	b := series("B0", map[int]float64{1: 50, 2: 49, 3: 50})

	res, err := Compute(a, b, spreadPair, 2, 2.0)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	assert.InDelta(t, 50, res.Rows[0].Spread, 1e-9)
	assert.InDelta(t, 53, res.Rows[1].Spread, 1e-9)
	assert.InDelta(t, 51, res.Rows[2].Spread, 1e-9)

	assert.False(t, res.Rows[0].Ready)
	assert.True(t, res.Rows[1].Ready)
	assert.InDelta(t, 51.5, res.Rows[1].Mean, 1e-9)
	assert.InDelta(t, 3/math.Sqrt2, res.Rows[1].StdDev, 1e-9)
	assert.InDelta(t, 52.0, res.Rows[2].Mean, 1e-9)
	assert.InDelta(t, math.Sqrt2, res.Rows[2].StdDev, 1e-9)

	snap := res.Snapshot
	assert.Equal(t, day(3), snap.Date)
	assert.InDelta(t, 101, snap.PriceA, 1e-9)
	assert.InDelta(t, 50, snap.PriceB, 1e-9)
	assert.InDelta(t, -1/math.Sqrt2, snap.ZScore, 1e-9)
	assert.InDelta(t, 52+2*math.Sqrt2, snap.Upper, 1e-9)
	assert.InDelta(t, 52-2*math.Sqrt2, snap.Lower, 1e-9)
	assert.Equal(t, models.Neutral, snap.Classification)

	require.Len(t, res.Sensitivity, 5)
	for _, e := range res.Sensitivity {
		if e.K == 2.0 {
			assert.Equal(t, models.Neutral, e.Classification)
		}
	}
	// |z| = 0.707 < 1.0, so every multiplier is neutral.
	assert.Equal(t, models.Neutral, res.Sensitivity[0].Classification)
}

func TestComputeEmptyLeg(t *testing.T) {
	b := series("B0", map[int]float64{1: 50})
	_, err := Compute(models.PriceSeries{Symbol: "A0"}, b, spreadPair, 2, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Compute(b, models.PriceSeries{Symbol: "A0"}, spreadPair, 2, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeNoOverlap(t *testing.T) {
	a := series("A0", map[int]float64{1: 1, 2: 2})
	b := series("B0", map[int]float64{3: 1, 4: 2})
	_, err := Compute(a, b, spreadPair, 2, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeInsufficientWindow(t *testing.T) {
	a := series("A0", map[int]float64{1: 1, 2: 2, 3: 3})
	b := series("B0", map[int]float64{1: 1, 2: 2, 3: 3})
	_, err := Compute(a, b, spreadPair, 5, 2)
	require.ErrorIs(t, err, ErrInsufficientWindow)

	var we *WindowError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, 3, we.Rows)
	assert.Equal(t, 5, we.Window)
}

func TestComputeInvalidParameters(t *testing.T) {
	a := series("A0", map[int]float64{1: 1, 2: 2, 3: 3})
	cases := []struct {
		name   string
		window int
		k      float64
	}{
		{"window one", 1, 2},
		{"window zero", 0, 2},
		{"k zero", 2, 0},
		{"k negative", 2, -1},
		{"k nan", 2, math.NaN()},
		{"k inf", 2, math.Inf(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(a, a, spreadPair, tc.window, tc.k)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestInvalidParameterBeatsMissingData(t *testing.T) {
	_, err := Compute(models.PriceSeries{}, models.PriceSeries{}, spreadPair, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestZScoreFlatWindow(t *testing.T) {
	a := series("A0", map[int]float64{1: 10, 2: 10, 3: 10, 4: 10})
	b := series("B0", map[int]float64{1: 4, 2: 4, 3: 4, 4: 4})
	res, err := Compute(a, b, spreadPair, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Snapshot.StdDev)
	assert.Equal(t, 0.0, res.Snapshot.ZScore)
	assert.Equal(t, models.Neutral, res.Snapshot.Classification)
	for _, e := range res.Sensitivity {
		assert.Equal(t, models.Neutral, e.Classification)
	}
}

func TestAlignInnerJoinSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		pa := map[int]float64{}
		pb := map[int]float64{}
		for i := 0; i < 120; i++ {
			if rng.Intn(3) > 0 {
				pa[i] = rng.Float64() * 100
			}
			if rng.Intn(3) > 0 {
				pb[i] = rng.Float64() * 100
			}
		}
		a, b := series("A0", pa), series("B0", pb)
		rows := Align(a, b)

		want := 0
		for d := range pa {
			if _, ok := pb[d]; ok {
				want++
			}
		}
		require.Len(t, rows, want)
		assert.LessOrEqual(t, len(rows), min(a.Len(), b.Len()))
		for i, r := range rows {
			n := int(r.Date.Sub(day(0)).Hours() / 24)
			assert.Equal(t, pa[n], r.PriceA)
			assert.Equal(t, pb[n], r.PriceB)
			if i > 0 {
				assert.True(t, rows[i-1].Date.Before(r.Date), "dates must be strictly ascending")
			}
		}
	}
}

func TestAlignUnsortedInput(t *testing.T) {
	a := models.PriceSeries{Symbol: "A0", Points: []models.PricePoint{
		{Date: day(3), Price: 3}, {Date: day(1), Price: 1}, {Date: day(2), Price: 2},
	}}
	b := series("B0", map[int]float64{1: 10, 2: 20, 3: 30})
	rows := Align(a, b)
	require.Len(t, rows, 3)
	assert.Equal(t, 1.0, rows[0].PriceA)
	assert.Equal(t, 3.0, rows[2].PriceA)
}

func TestAlignIgnoresClockAndZone(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	a := models.PriceSeries{Points: []models.PricePoint{
		{Date: time.Date(2024, 5, 6, 0, 0, 0, 0, shanghai), Price: 1},
	}}
	b := models.PriceSeries{Points: []models.PricePoint{
		{Date: time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC), Price: 2},
	}}
	rows := Align(a, b)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), rows[0].Date)
}

func TestSpreadLinearity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pa, pb := map[int]float64{}, map[int]float64{}
	for i := 0; i < 200; i++ {
		pa[i] = 1000 + rng.Float64()*500
		pb[i] = 800 + rng.Float64()*300
	}
	def := models.PairDefinition{CoeffA: 1, CoeffB: -1.3}
	rows := Align(series("J0", pa), series("JM0", pb))
	spreads := SpreadSeries(rows, def.CoeffA, def.CoeffB)
	for i, r := range rows {
		assert.InDelta(t, r.PriceA*1-r.PriceB*1.3, spreads[i], 1e-9)
	}
}

func TestRollingWindowBound(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	for window := 2; window <= len(values)+1; window++ {
		_, _, ready := Rolling(values, window)
		for i := range values {
			assert.Equal(t, i+1 >= window, ready[i], "window=%d i=%d", window, i)
		}
	}
}

func TestRollingMatchesNaive(t *testing.T) {
	values := []float64{4, 8, 15, 16, 23, 42, 7, 3, 9}
	mean, std, _ := Rolling(values, 4)
	for i := 3; i < len(values); i++ {
		win := values[i-3 : i+1]
		m := (win[0] + win[1] + win[2] + win[3]) / 4
		ss := 0.0
		for _, v := range win {
			ss += (v - m) * (v - m)
		}
		assert.InDelta(t, m, mean[i], 1e-12)
		assert.InDelta(t, math.Sqrt(ss/3), std[i], 1e-12)
	}
}

func TestSensitivityMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rank := map[models.Classification]int{models.Overbought: 1, models.Oversold: 1, models.Neutral: 0}
	for trial := 0; trial < 500; trial++ {
		mean := rng.Float64()*200 - 100
		std := rng.Float64() * 10
		spread := mean + (rng.Float64()*8-4)*std
		entries := Sensitivity(spread, mean, std)
		require.Len(t, entries, len(SensitivityKs))
		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			assert.Greater(t, cur.K, prev.K)
			assert.GreaterOrEqual(t, cur.Upper, prev.Upper)
			assert.LessOrEqual(t, cur.Lower, prev.Lower)
			assert.LessOrEqual(t, rank[cur.Classification], rank[prev.Classification])
			if cur.Classification != models.Neutral {
				assert.Equal(t, prev.Classification, cur.Classification)
			}
		}
	}
}

func TestSensitivityClassifies(t *testing.T) {
	// z = 2.2: outside k=1..2, inside k=2.5 and 3.0
	entries := Sensitivity(122, 100, 10)
	got := make([]models.Classification, len(entries))
	for i, e := range entries {
		got[i] = e.Classification
	}
	assert.Equal(t, []models.Classification{
		models.Overbought, models.Overbought, models.Overbought, models.Neutral, models.Neutral,
	}, got)

	entries = Sensitivity(84, 100, 10)
	assert.Equal(t, models.Oversold, entries[1].Classification)
	assert.Equal(t, models.Neutral, entries[2].Classification)
	assert.InDelta(t, 80, entries[2].Lower, 1e-9)
	assert.InDelta(t, 120, entries[2].Upper, 1e-9)
}

func TestComputeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pa, pb := map[int]float64{}, map[int]float64{}
	for i := 0; i < 300; i++ {
		if rng.Intn(5) > 0 {
			pa[i] = 3000 + rng.Float64()*400
		}
		if rng.Intn(5) > 0 {
			pb[i] = 3500 + rng.Float64()*400
		}
	}
	a, b := series("HC0", pa), series("RB0", pb)
	r1, err := Compute(a, b, spreadPair, 20, 2)
	require.NoError(t, err)
	r2, err := Compute(a, b, spreadPair, 20, 2)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(r1, r2))
	assert.Equal(t, math.Float64bits(r1.Snapshot.ZScore), math.Float64bits(r2.Snapshot.ZScore))
}

func TestComputeDoesNotMutateInputs(t *testing.T) {
	a := models.PriceSeries{Symbol: "A0", Points: []models.PricePoint{
		{Date: day(2), Price: 2}, {Date: day(1), Price: 1}, {Date: day(3), Price: 3},
	}}
	b := series("B0", map[int]float64{1: 1, 2: 1, 3: 1})
	before := append([]models.PricePoint(nil), a.Points...)
	_, err := Compute(a, b, spreadPair, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, before, a.Points)
}

func TestSnapshotClassificationAtK(t *testing.T) {
	prices := map[int]float64{}
	for i := 0; i < 10; i++ {
		prices[i] = 100
	}
	prices[9] = 100
	pa := map[int]float64{}
	for i, p := range prices {
		pa[i] = p + float64(i%2)
	}
	pa[9] = 130
	res, err := Compute(series("A0", pa), series("B0", prices), spreadPair, 5, 1.0)
	require.NoError(t, err)
	assert.Equal(t, models.Overbought, res.Snapshot.Classification)
	assert.Greater(t, res.Snapshot.ZScore, 1.0)
}
