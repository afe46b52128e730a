package quotes

import "errors"

// ErrQuoteUnavailable marks a failed fetch, as opposed to a valid empty history.
var ErrQuoteUnavailable = errors.New("quote unavailable")
