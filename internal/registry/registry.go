// Package registry holds the static table of arbitrage pairs the service knows about.
package registry

import (
	"errors"
	"fmt"

	"ArbBoard/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

var ErrUnknownPair = errors.New("unknown pair")

// Builtin is the pair table used when config does not supply one.
var Builtin = []models.PairDefinition{
	{
		Name: "coking-margin", SymbolA: "J0", SymbolB: "JM0", CoeffA: 1, CoeffB: -1.3,
		NameA: "Coke", NameB: "Coking coal", DefaultWindow: 40, DefaultK: 2.0,
		Description: "Coking margin: J - 1.3*JM",
	},
	{
		Name: "hc-rb", SymbolA: "HC0", SymbolB: "RB0", CoeffA: 1, CoeffB: -1,
		NameA: "Hot-rolled coil", NameB: "Rebar", DefaultWindow: 20, DefaultK: 2.0,
		Description: "Coil over rebar: HC - RB",
	},
	{
		Name: "pp-l", SymbolA: "PP0", SymbolB: "L0", CoeffA: 1, CoeffB: -1,
		NameA: "Polypropylene", NameB: "LLDPE", DefaultWindow: 15, DefaultK: 1.8,
		Description: "Plastics spread: PP - L",
	},
	{
		Name: "olefin-margin", SymbolA: "PP0", SymbolB: "MA0", CoeffA: 1, CoeffB: -3,
		NameA: "Polypropylene", NameB: "Methanol", DefaultWindow: 30, DefaultK: 2.5,
		Description: "Methanol-to-olefin margin: PP - 3*MA",
	},
	{
		Name: "soy-premium", SymbolA: "A0", SymbolB: "B0", CoeffA: 1, CoeffB: -1,
		NameA: "Soybean No.1", NameB: "Soybean No.2", DefaultWindow: 100, DefaultK: 2.0,
		Description: "Soybean grade premium: A - B",
	},
}

// Registry is an immutable, ordered set of pair definitions.
type Registry struct {
	order []string
	byKey map[string]models.PairDefinition
}

// New validates defs and builds a registry preserving their order.
// An empty defs falls back to Builtin.
func New(defs []models.PairDefinition) (*Registry, error) {
	if len(defs) == 0 {
		defs = Builtin
	}
	v := validator.New()
	r := &Registry{
		order: make([]string, 0, len(defs)),
		byKey: make(map[string]models.PairDefinition, len(defs)),
	}
	for i, def := range defs {
		if err := v.Struct(def); err != nil {
			return nil, fmt.Errorf("pair %d (%q): %w", i, def.Name, err)
		}
		if def.CoeffA == 0 && def.CoeffB == 0 {
			return nil, fmt.Errorf("pair %q: both coefficients are zero", def.Name)
		}
		if _, dup := r.byKey[def.Name]; dup {
			return nil, fmt.Errorf("pair %q defined twice", def.Name)
		}
		r.order = append(r.order, def.Name)
		r.byKey[def.Name] = def
	}
	return r, nil
}

// Names returns pair names in configuration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get looks up a pair by name.
func (r *Registry) Get(name string) (models.PairDefinition, error) {
	def, ok := r.byKey[name]
	if !ok {
		return models.PairDefinition{}, fmt.Errorf("%w: %q", ErrUnknownPair, name)
	}
	return def, nil
}

// All returns every definition in configuration order.
func (r *Registry) All() []models.PairDefinition {
	out := make([]models.PairDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byKey[name])
	}
	return out
}

// Default is the first configured pair.
func (r *Registry) Default() models.PairDefinition {
	return r.byKey[r.order[0]]
}
