package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"mt5-bridge/src/bridge"
	"mt5-bridge/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Request bodies
// -----------------------------------------------------------------------------

type orderRequest struct {
	Type  models.CommandType `json:"type" binding:"required"`
	Price float64            `json:"price"`
}

type adjustLotRequest struct {
	Delta     *float64 `json:"delta"`
	Direction string   `json:"direction"`
}

type setLotRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

type quickLotRequest struct {
	Preset float64 `json:"preset" binding:"required"`
}

type historyRequest struct {
	Timeframe string `json:"timeframe" binding:"required"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Mode      string `json:"mode" binding:"required"`
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *APIServer) rateLimit(c *gin.Context) {
	if !s.orderLimiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many trading requests"})
		return
	}
	c.Next()
}

// -----------------------------------------------------------------------------
// Read-only Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connections
	timestamp := s.latestView.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.LatestView())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"quick_lots":          bridge.QuickLots,
		"refresh_interval_ms": s.Config.Buffers.RefreshIntervalMs,
		"tick_history":        s.Config.Buffers.TickHistory,
		"sub_endpoint":        s.Config.Transport.SubEndpoint,
		"req_endpoint":        s.Config.Transport.ReqEndpoint,
	})
}

// -----------------------------------------------------------------------------
// Intent Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) postOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.run(c, func(st *bridge.State) (any, error) {
		if req.Type.IsMarket() {
			return nil, st.MarketOrder(req.Type)
		}
		return nil, st.PendingOrder(req.Type, req.Price)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) closePosition(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	s.run(c, func(st *bridge.State) (any, error) {
		return nil, st.ClosePosition(ticket)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) cancelOrder(c *gin.Context) {
	ticket, ok := ticketParam(c)
	if !ok {
		return
	}
	s.run(c, func(st *bridge.State) (any, error) {
		return nil, st.CancelOrder(ticket)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) adjustLot(c *gin.Context) {
	var req adjustLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var fn bridge.Intent
	switch {
	case req.Delta != nil:
		delta := *req.Delta
		fn = func(st *bridge.State) (any, error) { return st.AdjustLot(delta), nil }
	case req.Direction == "up":
		fn = func(st *bridge.State) (any, error) { return st.StepLot(1), nil }
	case req.Direction == "down":
		fn = func(st *bridge.State) (any, error) { return st.StepLot(-1), nil }
	default:
		badRequest(c, errors.New("delta or direction (up|down) is required"))
		return
	}
	s.runLot(c, fn)
}

// -----------------------------------------------------------------------------

func (s *APIServer) setLot(c *gin.Context) {
	var req setLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	value := *req.Value
	s.runLot(c, func(st *bridge.State) (any, error) { return st.SetLot(value), nil })
}

// -----------------------------------------------------------------------------

func (s *APIServer) quickLot(c *gin.Context) {
	var req quickLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.runLot(c, func(st *bridge.State) (any, error) { return st.QuickLot(req.Preset) })
}

// -----------------------------------------------------------------------------

func (s *APIServer) postHistory(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	value, err := s.controller.Do(c.Request.Context(), func(st *bridge.State) (any, error) {
		return st.RequestHistory(req.Timeframe, req.Start, req.End, req.Mode)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "request_id": value})
}

// -----------------------------------------------------------------------------

func (s *APIServer) startRecording(c *gin.Context) {
	value, err := s.controller.Do(c.Request.Context(), func(st *bridge.State) (any, error) {
		return st.StartRecording()
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recording": true, "path": value})
}

// -----------------------------------------------------------------------------

func (s *APIServer) stopRecording(c *gin.Context) {
	_, err := s.controller.Do(c.Request.Context(), func(st *bridge.State) (any, error) {
		return nil, st.StopRecording()
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recording": false})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// run applies a trading intent and answers 202 once it is queued.
func (s *APIServer) run(c *gin.Context, fn bridge.Intent) {
	if _, err := s.controller.Do(c.Request.Context(), fn); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *APIServer) runLot(c *gin.Context, fn bridge.Intent) {
	value, err := s.controller.Do(c.Request.Context(), fn)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": value})
}

// -----------------------------------------------------------------------------

func (s *APIServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bridge.ErrInvalidCommand):
		status = http.StatusBadRequest
	case errors.Is(err, bridge.ErrNoSymbol):
		status = http.StatusConflict
	case errors.Is(err, bridge.ErrCommandQueueFull),
		errors.Is(err, bridge.ErrPresenterBusy),
		errors.Is(err, bridge.ErrPresenterStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("Intent failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func ticketParam(c *gin.Context) (uint64, bool) {
	ticket, err := strconv.ParseUint(c.Param("ticket"), 10, 64)
	if err != nil || ticket == 0 {
		badRequest(c, errors.New("invalid ticket"))
		return 0, false
	}
	return ticket, true
}
