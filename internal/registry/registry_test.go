package registry

import (
	"testing"

	"ArbBoard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"coking-margin", "hc-rb", "pp-l", "olefin-margin", "soy-premium"}, r.Names())
	assert.Equal(t, "coking-margin", r.Default().Name)

	def, err := r.Get("olefin-margin")
	require.NoError(t, err)
	assert.Equal(t, "PP0", def.SymbolA)
	assert.Equal(t, "MA0", def.SymbolB)
	assert.Equal(t, -3.0, def.CoeffB)
	assert.Equal(t, 30, def.DefaultWindow)
	assert.Equal(t, 2.5, def.DefaultK)
}

func TestGetUnknown(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	_, err = r.Get("gold-silver")
	assert.ErrorIs(t, err, ErrUnknownPair)
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	names := r.Names()
	names[0] = "mutated"
	all := r.All()
	all[0].SymbolA = "XX"

	assert.Equal(t, "coking-margin", r.Names()[0])
	def, err := r.Get("coking-margin")
	require.NoError(t, err)
	assert.Equal(t, "J0", def.SymbolA)
}

func TestCustomTableReplacesBuiltin(t *testing.T) {
	r, err := New([]models.PairDefinition{
		{Name: "ag-au", SymbolA: "AG0", SymbolB: "AU0", CoeffA: 1, CoeffB: -15, DefaultWindow: 60, DefaultK: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ag-au"}, r.Names())
	_, err = r.Get("hc-rb")
	assert.ErrorIs(t, err, ErrUnknownPair)
}

func TestNewRejectsInvalid(t *testing.T) {
	valid := models.PairDefinition{Name: "x", SymbolA: "A", SymbolB: "B", CoeffA: 1, CoeffB: -1, DefaultWindow: 20, DefaultK: 2}

	cases := map[string]func(d *models.PairDefinition){
		"missing symbol": func(d *models.PairDefinition) { d.SymbolB = "" },
		"window low":     func(d *models.PairDefinition) { d.DefaultWindow = 4 },
		"window high":    func(d *models.PairDefinition) { d.DefaultWindow = 121 },
		"k low":          func(d *models.PairDefinition) { d.DefaultK = 0.5 },
		"k high":         func(d *models.PairDefinition) { d.DefaultK = 4 },
		"zero coeffs":    func(d *models.PairDefinition) { d.CoeffA, d.CoeffB = 0, 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := valid
			mutate(&d)
			_, err := New([]models.PairDefinition{d})
			assert.Error(t, err)
		})
	}

	_, err := New([]models.PairDefinition{valid, valid})
	assert.Error(t, err)
}
