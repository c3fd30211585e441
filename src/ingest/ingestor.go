package ingest

import (
	"context"
	"sync"
	"time"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/interfaces"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
)

// -----------------------------------------------------------------------------
// TickIngestor pulls snapshots off the subscriber and pushes them into the
// bounded tick queue. A full queue blocks it; nothing is dropped.
// -----------------------------------------------------------------------------

type TickIngestor struct {
	sub      interfaces.ISubscriber
	backoff  time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
	watchdog *FeedWatchdog
	onConn   func(connected bool)
}

// -----------------------------------------------------------------------------

func NewTickIngestor(sub interfaces.ISubscriber, backoff time.Duration, l *logger.Logger, m *metrics.Metrics) *TickIngestor {
	return &TickIngestor{
		sub:     sub,
		backoff: backoff,
		logger:  l,
		metrics: m,
	}
}

// -----------------------------------------------------------------------------

// WithWatchdog makes every decoded snapshot refresh w.
func (t *TickIngestor) WithWatchdog(w *FeedWatchdog) *TickIngestor {
	t.watchdog = w
	return t
}

// -----------------------------------------------------------------------------

// OnConnectionChange registers a hook called on every connect and disconnect.
func (t *TickIngestor) OnConnectionChange(fn func(connected bool)) *TickIngestor {
	t.onConn = fn
	return t
}

// -----------------------------------------------------------------------------

// Start runs the ingestion loop in the background until ctx is cancelled.
// wg is released once the loop has exited and the socket is closed.
func (t *TickIngestor) Start(ctx context.Context, out chan<- models.MSnapshot, wg *sync.WaitGroup) error {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.Run(ctx, out)
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Run is the blocking form of Start.
func (t *TickIngestor) Run(ctx context.Context, out chan<- models.MSnapshot) {
	connected := false
	defer func() {
		_ = t.sub.Close()
		if connected {
			t.setConnected(false)
		}
	}()

	for ctx.Err() == nil {
		if !connected {
			if err := t.sub.Connect(ctx); err != nil {
				t.logger.Warning("Connect failed: %v. Retrying in %v", err, t.backoff)
				t.metrics.TransportErrors.WithLabelValues("sub").Inc()
				if !helpers.SleepContext(ctx, t.backoff) {
					return
				}
				continue
			}
			connected = true
			t.setConnected(true)
		}

		payload, err := t.sub.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warning("Recv failed: %v. Reconnecting in %v", err, t.backoff)
			t.metrics.TransportErrors.WithLabelValues("sub").Inc()
			_ = t.sub.Close()
			connected = false
			t.setConnected(false)
			if !helpers.SleepContext(ctx, t.backoff) {
				return
			}
			continue
		}

		snap, err := DecodeSnapshot(payload)
		if err != nil {
			t.logger.Warning("Parse error: %v", err)
			t.metrics.DecodeErrors.Inc()
			continue
		}

		if t.watchdog != nil {
			t.watchdog.Touch()
		}

		select {
		case out <- snap:
			t.metrics.TicksReceived.Inc()
		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (t *TickIngestor) setConnected(v bool) {
	t.metrics.SetConnected(v)
	if t.onConn != nil {
		t.onConn(v)
	}
}
