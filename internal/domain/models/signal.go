package models

import (
	"encoding/json"
	"time"
)

// Classification is where the spread sits relative to a channel.
type Classification string

const (
	Overbought Classification = "overbought"
	Oversold   Classification = "oversold"
	Neutral    Classification = "neutral"
)

// AlignedRow is one date present in both legs.
type AlignedRow struct {
	Date   time.Time
	PriceA float64
	PriceB float64
}

// ChannelRow is one aligned date with its spread and rolling channel.
// Mean, StdDev, Upper and Lower are meaningful only when Ready is true.
type ChannelRow struct {
	Date   time.Time
	PriceA float64
	PriceB float64
	Spread float64
	Mean   float64
	StdDev float64
	Upper  float64
	Lower  float64
	Ready  bool
}

type channelRowJSON struct {
	Date   string   `json:"date"`
	PriceA float64  `json:"price_a"`
	PriceB float64  `json:"price_b"`
	Spread float64  `json:"spread"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"stddev"`
	Upper  *float64 `json:"upper"`
	Lower  *float64 `json:"lower"`
}

// MarshalJSON writes warm-up rows with null channel values.
func (r ChannelRow) MarshalJSON() ([]byte, error) {
	out := channelRowJSON{
		Date:   r.Date.Format("2006-01-02"),
		PriceA: r.PriceA,
		PriceB: r.PriceB,
		Spread: r.Spread,
	}
	if r.Ready {
		mean, std, up, lo := r.Mean, r.StdDev, r.Upper, r.Lower
		out.Mean, out.StdDev, out.Upper, out.Lower = &mean, &std, &up, &lo
	}
	return json.Marshal(out)
}

// SignalSnapshot is the latest aligned row plus its Z-score.
type SignalSnapshot struct {
	Date           time.Time      `json:"date"`
	PriceA         float64        `json:"price_a"`
	PriceB         float64        `json:"price_b"`
	Spread         float64        `json:"spread"`
	Mean           float64        `json:"mean"`
	StdDev         float64        `json:"stddev"`
	Upper          float64        `json:"upper"`
	Lower          float64        `json:"lower"`
	ZScore         float64        `json:"z_score"`
	Classification Classification `json:"classification"`
}

// SensitivityEntry is the classification of the snapshot at one multiplier.
type SensitivityEntry struct {
	K              float64        `json:"k"`
	Classification Classification `json:"classification"`
	Lower          float64        `json:"lower"`
	Upper          float64        `json:"upper"`
}

// SignalResult bundles the chart series, the snapshot and the sensitivity
// sweep, all derived from the same aligned series.
type SignalResult struct {
	Pair        PairDefinition     `json:"pair"`
	Window      int                `json:"window"`
	K           float64            `json:"k"`
	Rows        []ChannelRow       `json:"rows"`
	Snapshot    SignalSnapshot     `json:"snapshot"`
	Sensitivity []SensitivityEntry `json:"sensitivity"`
}

// SignalEvent is what gets published to the live feed after each compute.
type SignalEvent struct {
	ID          string             `json:"id"`
	Pair        string             `json:"pair"`
	Window      int                `json:"window"`
	K           float64            `json:"k"`
	Snapshot    SignalSnapshot     `json:"snapshot"`
	Sensitivity []SensitivityEntry `json:"sensitivity"`
	ComputedAt  time.Time          `json:"computed_at"`
}
