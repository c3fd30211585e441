package gateway

import (
	"context"
	"fmt"
	"sync"

	"mt5-bridge/src/interfaces"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
)

// -----------------------------------------------------------------------------
// OrderGateway serializes commands onto the request socket. Exactly one
// exchange is in flight at any time; every command yields exactly one reply,
// synthetic when the exchange itself failed.
// -----------------------------------------------------------------------------

type OrderGateway struct {
	req     interfaces.IRequester
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// -----------------------------------------------------------------------------

func NewOrderGateway(req interfaces.IRequester, l *logger.Logger, m *metrics.Metrics) *OrderGateway {
	return &OrderGateway{req: req, logger: l, metrics: m}
}

// -----------------------------------------------------------------------------

// Start runs the gateway in the background. It stops once commands is closed
// and drained, or when ctx ends while a reply is waiting for queue space.
func (g *OrderGateway) Start(ctx context.Context, commands <-chan models.MCommand, replies chan<- models.MReply, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.Run(ctx, commands, replies)
	}()
}

// -----------------------------------------------------------------------------

func (g *OrderGateway) Run(ctx context.Context, commands <-chan models.MCommand, replies chan<- models.MReply) {
	defer func() {
		if err := g.req.Close(); err != nil {
			g.logger.Warning("Closing request socket: %v", err)
		}
	}()

	for cmd := range commands {
		reply := g.exchange(cmd)

		select {
		case replies <- reply:
		case <-ctx.Done():
			g.logger.Warning("Dropping reply for %s: shutting down", cmd.Type)
			return
		}
	}
	g.logger.Info("Command queue closed, gateway stopped")
}

// -----------------------------------------------------------------------------

// exchange performs one send-then-receive.
func (g *OrderGateway) exchange(cmd models.MCommand) models.MReply {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		g.logger.Error("Encode failed for %s: %v", cmd.Type, err)
		return models.FailureReply(fmt.Sprintf("Encode failed: %v", err))
	}

	g.logger.Debug("Sending %s", payload)
	if err := g.req.Send(payload); err != nil {
		g.logger.Error("Send failed: %v", err)
		g.metrics.TransportErrors.WithLabelValues("req").Inc()
		g.reset()
		return models.FailureReply(fmt.Sprintf("Send failed: %v", err))
	}

	raw, err := g.req.Recv()
	if err != nil {
		g.logger.Error("Recv failed: %v", err)
		g.metrics.TransportErrors.WithLabelValues("req").Inc()
		g.reset()
		return models.FailureReply(fmt.Sprintf("Recv failed: %v", err))
	}

	reply, err := DecodeReply(raw)
	if err != nil {
		g.logger.Error("Parse error: %v", err)
		return models.FailureReply(fmt.Sprintf("Parse error: %v", err))
	}
	return reply
}

// -----------------------------------------------------------------------------

func (g *OrderGateway) reset() {
	if err := g.req.Reset(); err != nil {
		g.logger.Warning("Resetting request socket: %v", err)
	}
}
