package api

import (
	"context"
	"net/http"
	"time"

	"ArbBoard/internal/domain/models"
	"ArbBoard/internal/service/ratelimit"
	"ArbBoard/internal/usecase"
	xhttp "ArbBoard/pkg/http"
	xlogger "ArbBoard/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// SignalComputer is the use case surface the handlers need.
type SignalComputer interface {
	Compute(ctx context.Context, p usecase.SignalParams) (*models.SignalResult, error)
	Pairs() []models.PairDefinition
}

// SignalsEchoHandler serves the pair list, one-shot signals and the live stream.
type SignalsEchoHandler struct {
	logger      *xlogger.Logger
	svc         SignalComputer
	limiter     *ratelimit.Limiter
	defInterval time.Duration
	minInterval time.Duration
	upgrader    websocket.Upgrader
}

type HandlerOption func(*SignalsEchoHandler)

// WithRateLimiter limits /api/signal and stream handshakes per client IP.
func WithRateLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *SignalsEchoHandler) { h.limiter = l }
}

// WithStreamIntervals sets the default and minimum push interval.
func WithStreamIntervals(def, minimum time.Duration) HandlerOption {
	return func(h *SignalsEchoHandler) {
		h.defInterval, h.minInterval = def, minimum
	}
}

// WithOriginCheck overrides the websocket origin policy.
func WithOriginCheck(check func(r *http.Request) bool) HandlerOption {
	return func(h *SignalsEchoHandler) { h.upgrader.CheckOrigin = check }
}

func NewSignalsEchoHandler(logger *xlogger.Logger, svc SignalComputer, opts ...HandlerOption) *SignalsEchoHandler {
	h := &SignalsEchoHandler{
		logger:      logger,
		svc:         svc,
		defInterval: 30 * time.Second,
		minInterval: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/pairs", h.Pairs)
	g.GET("/signal", h.Signal, h.rateLimit)
	g.GET("/signal/stream", h.Stream, h.rateLimit)
}

func (h *SignalsEchoHandler) Pairs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Pairs())
}

func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Compute(c.Request().Context(), signalParams(req.Pair, req.Window, req.K))
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("signal usecase error", xlogger.String("pair", req.Pair), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError())
		}
		return next(c)
	}
}

// signalParams leaves Window and K zero when absent so the pair defaults apply.
func signalParams(pair string, window *int, k *float64) usecase.SignalParams {
	p := usecase.SignalParams{Pair: pair}
	if window != nil {
		p.Window = *window
	}
	if k != nil {
		p.K = *k
	}
	return p
}
