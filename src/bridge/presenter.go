package bridge

import (
	"context"
	"fmt"
	"time"

	"mt5-bridge/src/logger"
	"mt5-bridge/src/models"
)

// Intent is a UI action applied to the state on the presenter goroutine.
type Intent func(s *State) (any, error)

type intentResult struct {
	value any
	err   error
}

type intentRequest struct {
	fn   Intent
	done chan intentResult
}

// -----------------------------------------------------------------------------
// Presenter is the single consumer of the bridge pipelines. Every refresh it
// drains ticks, drains replies, applies queued intents and publishes a view
// when anything changed.
// -----------------------------------------------------------------------------

type Presenter struct {
	state     *State
	intents   chan intentRequest
	interval  time.Duration
	publish   func(models.MBridgeView)
	logger    *logger.Logger
	published uint64
	first     bool
	stopped   chan struct{}
}

// -----------------------------------------------------------------------------

func NewPresenter(state *State, intentQueue int, interval time.Duration, publish func(models.MBridgeView), l *logger.Logger) *Presenter {
	if publish == nil {
		publish = func(models.MBridgeView) {}
	}
	return &Presenter{
		state:    state,
		intents:  make(chan intentRequest, intentQueue),
		interval: interval,
		publish:  publish,
		logger:   l,
		first:    true,
		stopped:  make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Do queues fn for the presenter goroutine and waits for its result.
// It fails fast with ErrPresenterBusy when the intent queue is full.
func (p *Presenter) Do(ctx context.Context, fn Intent) (any, error) {
	req := intentRequest{fn: fn, done: make(chan intentResult, 1)}

	select {
	case <-p.stopped:
		return nil, ErrPresenterStopped
	default:
	}

	select {
	case p.intents <- req:
	default:
		return nil, ErrPresenterBusy
	}

	select {
	case res := <-req.done:
		return res.value, res.err
	case <-p.stopped:
		return nil, ErrPresenterStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// Run refreshes every interval until ctx is done.
func (p *Presenter) Run(ctx context.Context) {
	defer close(p.stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Presenter stopped")
			return
		case <-ticker.C:
			p.Refresh()
		}
	}
}

// -----------------------------------------------------------------------------

// Refresh performs one presentation turn. It never blocks.
func (p *Presenter) Refresh() bool {
	p.state.DrainTicks()
	p.state.DrainReplies()
	p.applyIntents()

	if !p.first && p.state.Version() == p.published {
		return false
	}

	view := p.state.View()
	if p.first {
		view.Type = "INITIAL"
		p.first = false
	}
	p.published = p.state.Version()
	p.publish(view)
	return true
}

// -----------------------------------------------------------------------------

func (p *Presenter) applyIntents() {
	for {
		select {
		case req := <-p.intents:
			req.done <- p.apply(req.fn)
		default:
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (p *Presenter) apply(fn Intent) (res intentResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Intent panicked: %v", r)
			res = intentResult{err: fmt.Errorf("intent failed: %v", r)}
		}
	}()
	value, err := fn(p.state)
	return intentResult{value: value, err: err}
}
