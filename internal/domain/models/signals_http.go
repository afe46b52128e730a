package models

// Requests for the signal HTTP endpoints. Window and K are pointers so an
// absent parameter (use the pair default) differs from an explicit zero.

type SignalRequest struct {
	Pair   string   `query:"pair" json:"pair" validate:"required"`
	Window *int     `query:"window" json:"window" validate:"omitempty,gte=5,lte=120"`
	K      *float64 `query:"k" json:"k" validate:"omitempty,gte=1,lte=3.5"`
}

type StreamRequest struct {
	Pair     string   `query:"pair" json:"pair" validate:"required"`
	Window   *int     `query:"window" json:"window" validate:"omitempty,gte=5,lte=120"`
	K        *float64 `query:"k" json:"k" validate:"omitempty,gte=1,lte=3.5"`
	Interval string   `query:"interval" json:"interval"`
}
