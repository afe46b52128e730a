package api

import (
	"context"
	"time"

	"ArbBoard/internal/domain/models"
	"ArbBoard/internal/usecase"
	xhttp "ArbBoard/pkg/http"
	xlogger "ArbBoard/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const streamWriteWait = 10 * time.Second

// streamFrame is one websocket message: either a result or an error.
type streamFrame struct {
	Result *models.SignalResult `json:"result,omitempty"`
	Error  *xhttp.AppError      `json:"error,omitempty"`
}

// Stream upgrades to a websocket and pushes a freshly computed signal every
// interval until the client goes away. Parameters are validated before the
// upgrade so bad requests still get a plain 400.
func (h *SignalsEchoHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	interval, verr := h.streamInterval(req.Interval)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go drain(conn, cancel)

	log := h.logger.With(xlogger.String("pair", req.Pair), xlogger.String("remote", c.RealIP()))
	log.Info("signal stream opened", xlogger.Duration("interval_ms", interval))
	defer log.Info("signal stream closed")

	params := signalParams(req.Pair, req.Window, req.K)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := h.push(ctx, conn, params); err != nil {
			log.Debug("signal stream write failed", xlogger.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (h *SignalsEchoHandler) push(ctx context.Context, conn *websocket.Conn, p usecase.SignalParams) error {
	var frame streamFrame
	res, err := h.svc.Compute(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame.Error = toAppError(err)
	} else {
		frame.Result = res
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(frame)
}

func (h *SignalsEchoHandler) streamInterval(raw string) (time.Duration, []xhttp.ValidationError) {
	if raw == "" {
		return h.defInterval, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, []xhttp.ValidationError{{
			Code:    "ERR_DURATION",
			Field:   "interval",
			Message: "interval must be a duration such as 30s",
		}}
	}
	if d < h.minInterval {
		return 0, []xhttp.ValidationError{{
			Code:    "ERR_GTE",
			Field:   "interval",
			Message: "interval must be greater than or equal to " + h.minInterval.String(),
			Params:  map[string]interface{}{"min": h.minInterval.String()},
		}}
	}
	return d, nil
}

// drain reads and discards client frames so close and ping control messages
// are processed. A read error means the peer is gone.
func drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
