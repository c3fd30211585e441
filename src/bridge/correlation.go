package bridge

import "mt5-bridge/src/models"

// orderSlot remembers the last market order awaiting its reply.
type orderSlot struct {
	kind  models.CommandType
	index int
}

// historySlot remembers the last history download awaiting its payload.
type historySlot struct {
	id        uint64
	symbol    string
	timeframe string
	mode      string
}

// Both slots hold a single entry: a newer submission replaces the older one
// and the first reply to arrive consumes it.

func (s *State) setOrderSlot(kind models.CommandType, index int) {
	s.pendingOrder = &orderSlot{kind: kind, index: index}
}

func (s *State) takeOrderSlot() (orderSlot, bool) {
	if s.pendingOrder == nil {
		return orderSlot{}, false
	}
	slot := *s.pendingOrder
	s.pendingOrder = nil
	return slot, true
}

func (s *State) setHistorySlot(slot historySlot) {
	s.pendingHistory = &slot
}

func (s *State) takeHistorySlot() (historySlot, bool) {
	if s.pendingHistory == nil {
		return historySlot{}, false
	}
	slot := *s.pendingHistory
	s.pendingHistory = nil
	return slot, true
}

func (s *State) clearSlots() {
	s.pendingOrder = nil
	s.pendingHistory = nil
}

// nextRequestID mints the next history request id, starting at 1.
func (s *State) nextRequestID() uint64 {
	s.requestCounter++
	return s.requestCounter
}
