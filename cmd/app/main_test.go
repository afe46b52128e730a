package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ArbBoard/internal/domain/models"
	"ArbBoard/internal/registry"
	"ArbBoard/internal/services/spread"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSignal(t *testing.T) {
	mean, std := 100.0, 10.0
	res := &models.SignalResult{
		Pair:   registry.Builtin[1],
		Window: 20,
		K:      2,
		Snapshot: models.SignalSnapshot{
			Date:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			PriceA:         3712.46,
			PriceB:         3540.04,
			Spread:         122.456,
			Mean:           mean,
			StdDev:         std,
			ZScore:         2.2456,
			Classification: models.Overbought,
		},
		Sensitivity: spread.Sensitivity(122.456, mean, std),
	}

	var buf bytes.Buffer
	require.NoError(t, renderSignal(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "3712.5")
	assert.Contains(t, out, "3540.0")
	assert.Contains(t, out, "122.46")
	assert.Contains(t, out, "2.25")
	assert.Contains(t, out, "[90, 110]")
	assert.Contains(t, out, "[70, 130]")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	grid := lines[len(lines)-5:]
	assert.Contains(t, grid[0], "overbought") // k=1.0
	assert.Contains(t, grid[2], "overbought") // k=2.0
	assert.Contains(t, grid[3], "neutral")    // k=2.5
}

func TestRenderPairs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderPairs(&buf, registry.Builtin))
	out := buf.String()
	assert.Contains(t, out, "coking-margin")
	assert.Contains(t, out, "J0/JM0")
	assert.Contains(t, out, "1*A -1.3*B")
	assert.Equal(t, len(registry.Builtin)+1, strings.Count(out, "\n"))
}

func TestSignalRequiresPair(t *testing.T) {
	rootCmd.SetArgs([]string{"signal", "--config", ""})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair")
}
