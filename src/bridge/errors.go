package bridge

import "errors"

var (
	ErrCommandQueueFull = errors.New("command queue is full")
	ErrNoSymbol         = errors.New("no market data received yet")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrPresenterBusy    = errors.New("presenter is busy")
	ErrPresenterStopped = errors.New("presenter stopped")
)
