package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/utils"
)

// FeedWatchdog warns when the feed goes quiet while the venue is in session.
type FeedWatchdog struct {
	calendar   *utils.TradingCalendar
	staleAfter time.Duration
	last       atomic.Int64
	stale      bool
	now        func() time.Time
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewFeedWatchdog(cal *utils.TradingCalendar, staleAfter time.Duration, l *logger.Logger, m *metrics.Metrics) *FeedWatchdog {
	w := &FeedWatchdog{
		calendar:   cal,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     l,
		metrics:    m,
	}
	w.Touch()
	return w
}

// Touch records that a snapshot just arrived. Safe from any goroutine.
func (w *FeedWatchdog) Touch() {
	w.last.Store(w.now().UnixNano())
}

// Check evaluates staleness at now. The warning fires once per stale period.
func (w *FeedWatchdog) Check(now time.Time) bool {
	quiet := now.Sub(time.Unix(0, w.last.Load()))
	stale := quiet > w.staleAfter && w.calendar.IsOpenOnMinute(now)

	if stale && !w.stale {
		w.logger.Warning("No snapshot for %v while market is open", quiet.Truncate(time.Second))
	}
	if !stale && w.stale {
		w.logger.Info("Feed resumed")
	}
	w.stale = stale
	w.metrics.SetStale(stale)
	return stale
}

// Run checks every interval until ctx is done.
func (w *FeedWatchdog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(w.now())
		}
	}
}
