package api

import (
	"context"
	"errors"
	"net/http"

	"ArbBoard/internal/registry"
	"ArbBoard/internal/services/spread"
	xhttp "ArbBoard/pkg/http"
)

// toAppError maps domain errors onto transport errors.
func toAppError(err error) *xhttp.AppError {
	var werr *spread.WindowError
	switch {
	case errors.Is(err, registry.ErrUnknownPair):
		return xhttp.NotFoundErrorf("%s", err.Error()).WithField("pair").WithError(err)
	case errors.Is(err, spread.ErrInvalidParameter):
		return xhttp.BadRequestErrorf("%s", err.Error()).WithError(err)
	case errors.As(err, &werr):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_WINDOW", werr.Error()).
			WithParam("rows", werr.Rows).
			WithParam("window", werr.Window).
			WithError(err)
	case errors.Is(err, spread.ErrInsufficientData):
		return xhttp.UnprocessableError("ERR_NO_DATA", spread.ErrInsufficientData.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "quote fetch timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
