package models

// PairDefinition describes one arbitrage pair and its default channel settings.
type PairDefinition struct {
	Name          string  `json:"name" yaml:"name" validate:"required"`
	SymbolA       string  `json:"symbol_a" yaml:"symbol_a" validate:"required"`
	SymbolB       string  `json:"symbol_b" yaml:"symbol_b" validate:"required"`
	CoeffA        float64 `json:"coeff_a" yaml:"coeff_a"`
	CoeffB        float64 `json:"coeff_b" yaml:"coeff_b"`
	NameA         string  `json:"name_a" yaml:"name_a"`
	NameB         string  `json:"name_b" yaml:"name_b"`
	DefaultWindow int     `json:"default_window" yaml:"default_window" validate:"gte=5,lte=120"`
	DefaultK      float64 `json:"default_k" yaml:"default_k" validate:"gte=1,lte=3.5"`
	Description   string  `json:"description" yaml:"description"`
}
