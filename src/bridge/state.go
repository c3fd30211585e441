package bridge

import (
	"fmt"
	"slices"
	"time"

	"mt5-bridge/src/interfaces"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
	"mt5-bridge/src/utils"
)

const waitingSymbol = "Waiting for data..."

// Queues are the consumer ends of the background pipelines.
type Queues struct {
	Ticks    <-chan models.MSnapshot
	Commands chan<- models.MCommand
	Replies  <-chan models.MReply
}

// -----------------------------------------------------------------------------
// State is the consumer-side aggregate. It is owned by exactly one goroutine
// (the presenter) and is never locked.
// -----------------------------------------------------------------------------

type State struct {
	queues   Queues
	recorder interfaces.IRecorder
	exporter interfaces.IExporter
	logger   *logger.Logger
	metrics  *metrics.Metrics

	symbol      string
	history     *utils.RingBuffer[models.MSnapshot]
	volumes     *utils.RingBuffer[models.MVolumeBar]
	breaklines  *utils.RingBuffer[models.MBreakline]
	account     models.MAccount
	constraints models.MLotConstraints
	positions   []models.MPosition
	orders      []models.MPendingOrder
	lot         float64

	pendingOrder   *orderSlot
	pendingHistory *historySlot
	requestCounter uint64

	recording  bool
	lastResult string
	version    uint64
}

// -----------------------------------------------------------------------------

func NewState(buffers models.MBuffersConfig, q Queues, rec interfaces.IRecorder, exp interfaces.IExporter, l *logger.Logger, m *metrics.Metrics) *State {
	return &State{
		queues:      q,
		recorder:    rec,
		exporter:    exp,
		logger:      l,
		metrics:     m,
		symbol:      waitingSymbol,
		history:     utils.NewRingBuffer[models.MSnapshot](buffers.TickHistory),
		volumes:     utils.NewRingBuffer[models.MVolumeBar](buffers.VolumeHistory),
		breaklines:  utils.NewRingBuffer[models.MBreakline](buffers.Breaklines),
		constraints: defaultConstraints,
		positions:   []models.MPosition{},
		orders:      []models.MPendingOrder{},
		lot:         defaultConstraints.MinLot,
	}
}

// touch marks the state as changed since the last published view.
func (s *State) touch() {
	s.version++
}

// Version increases on every observable change.
func (s *State) Version() uint64 {
	return s.version
}

func (s *State) hasSymbol() bool {
	return s.symbol != waitingSymbol
}

// -----------------------------------------------------------------------------
// Ticks
// -----------------------------------------------------------------------------

// DrainTicks applies every queued snapshot without blocking and returns how
// many were consumed.
func (s *State) DrainTicks() int {
	n := 0
	for {
		select {
		case snap, ok := <-s.queues.Ticks:
			if !ok {
				return n
			}
			s.applySnapshot(snap)
			n++
		default:
			s.metrics.TickQueueDepth.Set(float64(len(s.queues.Ticks)))
			return n
		}
	}
}

// -----------------------------------------------------------------------------

func (s *State) applySnapshot(snap models.MSnapshot) {
	if s.recording {
		if err := s.recorder.Record(snap); err != nil {
			s.logger.Error("Recording write failed, recording disabled: %v", err)
			if stopErr := s.recorder.Stop(); stopErr != nil {
				s.logger.Warning("Closing recording: %v", stopErr)
			}
			s.setRecording(false)
			s.lastResult = fmt.Sprintf("✗ Recording stopped: %v", err)
		}
	}

	if snap.HasAccount() {
		s.account = models.MAccount{
			Balance:    snap.Balance,
			Equity:     snap.Equity,
			Margin:     snap.Margin,
			FreeMargin: snap.FreeMargin,
		}
		s.constraints.MinLot = snap.MinLot
		s.constraints.MaxLot = snap.MaxLot
		if snap.LotStep > 0 {
			s.constraints.LotStep = snap.LotStep
		}
	}

	s.positions = snap.Positions
	s.orders = snap.Orders
	s.symbol = snap.Symbol

	s.history.Append(snap)
	s.volumes.Append(models.MVolumeBar{Time: snap.Time, Volume: snap.Volume})
	s.touch()
}

// -----------------------------------------------------------------------------
// Replies
// -----------------------------------------------------------------------------

// DrainReplies correlates every queued reply without blocking and returns how
// many were consumed.
func (s *State) DrainReplies() int {
	n := 0
	for {
		select {
		case r, ok := <-s.queues.Replies:
			if !ok {
				return n
			}
			s.handleReply(r.Classify())
			n++
		default:
			return n
		}
	}
}

// -----------------------------------------------------------------------------

func (s *State) handleReply(r models.MClassifiedReply) {
	s.metrics.Replies.WithLabelValues(r.Kind.String()).Inc()
	s.touch()

	switch r.Kind {
	case models.ReplyExport:
		slot, ok := s.takeHistorySlot()
		if !ok {
			s.logger.Warning("History payload without a pending request, not saved")
			s.lastResult = "✓ " + r.Summary
			return
		}
		s.exportHistory(slot, r)

	case models.ReplyFill:
		if slot, ok := s.takeOrderSlot(); ok {
			s.breaklines.Append(models.MBreakline{Index: slot.index, Kind: slot.kind, Ticket: r.Ticket})
		}
		s.lastResult = fmt.Sprintf("✓ Order executed! Ticket: %d", r.Ticket)

	case models.ReplyMessage:
		if slot, ok := s.takeHistorySlot(); ok {
			s.logger.Info("History request %d completed without payload", slot.id)
		}
		s.lastResult = "✓ " + r.Summary

	case models.ReplyFailure:
		s.clearSlots()
		s.lastResult = fmt.Sprintf("✗ Order failed: %s", r.Error)
	}
}

// -----------------------------------------------------------------------------

func (s *State) exportHistory(slot historySlot, r models.MClassifiedReply) {
	id := slot.id
	if r.RequestID != 0 {
		if r.RequestID != slot.id {
			s.logger.Warning("History reply id %d does not match pending request %d", r.RequestID, slot.id)
		}
		id = r.RequestID
	}

	path, err := s.exporter.Export(r.Payload, models.MExportName{
		Symbol:    slot.symbol,
		Timeframe: slot.timeframe,
		Mode:      slot.mode,
		RequestID: id,
	})
	if err != nil {
		s.logger.Error("History export failed: %v", err)
		s.lastResult = fmt.Sprintf("✗ Failed to save history: %v", err)
		return
	}
	s.logger.Info("History request %d saved to %s", id, path)
	s.lastResult = fmt.Sprintf("✓ %s (saved to %s)", r.Summary, path)
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// Submit enqueues cmd without blocking. A full queue is reported to the
// caller and leaves the correlation slots untouched.
func (s *State) Submit(cmd models.MCommand) error {
	select {
	case s.queues.Commands <- cmd:
		s.metrics.CommandsSent.WithLabelValues(string(cmd.Type)).Inc()
		s.lastResult = "Order sent, waiting for response..."
		s.touch()
		return nil
	default:
		s.metrics.CommandsDropped.Inc()
		s.lastResult = fmt.Sprintf("Failed to send order: %v", ErrCommandQueueFull)
		s.touch()
		return ErrCommandQueueFull
	}
}

// -----------------------------------------------------------------------------

func (s *State) command(kind models.CommandType) models.MCommand {
	return models.MCommand{Type: kind, Symbol: s.symbol, Volume: s.lot}
}

// -----------------------------------------------------------------------------

// MarketOrder submits a market buy or sell at the current lot and remembers
// it for breakline correlation.
func (s *State) MarketOrder(kind models.CommandType) error {
	if !kind.IsMarket() {
		return fmt.Errorf("%w: %q is not a market order", ErrInvalidCommand, kind)
	}
	if !s.hasSymbol() {
		return ErrNoSymbol
	}
	index := s.history.Size()
	if err := s.Submit(s.command(kind)); err != nil {
		return err
	}
	s.setOrderSlot(kind, index)
	return nil
}

// -----------------------------------------------------------------------------

// PendingOrder submits a limit or stop order at price.
func (s *State) PendingOrder(kind models.CommandType, price float64) error {
	if !kind.IsPending() {
		return fmt.Errorf("%w: %q is not a pending order", ErrInvalidCommand, kind)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidCommand)
	}
	if !s.hasSymbol() {
		return ErrNoSymbol
	}
	cmd := s.command(kind)
	cmd.Price = price
	return s.Submit(cmd)
}

// -----------------------------------------------------------------------------

func (s *State) ClosePosition(ticket uint64) error {
	return s.byTicket(models.CmdClosePosition, ticket)
}

func (s *State) CancelOrder(ticket uint64) error {
	return s.byTicket(models.CmdCancelOrder, ticket)
}

func (s *State) byTicket(kind models.CommandType, ticket uint64) error {
	if ticket == 0 {
		return fmt.Errorf("%w: ticket is required", ErrInvalidCommand)
	}
	if !s.hasSymbol() {
		return ErrNoSymbol
	}
	cmd := s.command(kind)
	cmd.Ticket = ticket
	return s.Submit(cmd)
}

// -----------------------------------------------------------------------------

// RequestHistory mints a new request id, embeds it in a download_history
// command and, once enqueued, records the history slot. The id is returned
// even when the enqueue fails.
func (s *State) RequestHistory(timeframe, start, end, mode string) (uint64, error) {
	if timeframe == "" || mode == "" {
		return 0, fmt.Errorf("%w: timeframe and mode are required", ErrInvalidCommand)
	}
	if !s.hasSymbol() {
		return 0, ErrNoSymbol
	}

	id := s.nextRequestID()
	cmd := s.command(models.CmdDownloadHistory)
	cmd.MHistoryParams = &models.MHistoryParams{
		Timeframe: timeframe,
		Start:     start,
		End:       end,
		Mode:      mode,
		RequestID: id,
	}
	if err := s.Submit(cmd); err != nil {
		return id, err
	}
	s.setHistorySlot(historySlot{id: id, symbol: s.symbol, timeframe: timeframe, mode: mode})
	s.lastResult = fmt.Sprintf("History request %d sent, waiting for data...", id)
	return id, nil
}

// -----------------------------------------------------------------------------
// Recording
// -----------------------------------------------------------------------------

func (s *State) StartRecording() (string, error) {
	s.touch()
	if !s.hasSymbol() {
		s.lastResult = fmt.Sprintf("✗ Failed to start recording: %v", ErrNoSymbol)
		return "", ErrNoSymbol
	}
	path, err := s.recorder.Start(s.symbol)
	if err != nil {
		s.logger.Error("Start recording failed: %v", err)
		s.setRecording(false)
		s.lastResult = fmt.Sprintf("✗ Failed to start recording: %v", err)
		return "", err
	}
	s.setRecording(true)
	s.lastResult = fmt.Sprintf("Recording started: %s", path)
	return path, nil
}

// -----------------------------------------------------------------------------

func (s *State) StopRecording() error {
	s.touch()
	if !s.recording {
		return nil
	}
	err := s.recorder.Stop()
	s.setRecording(false)
	if err != nil {
		s.logger.Error("Stop recording failed: %v", err)
		s.lastResult = fmt.Sprintf("✗ Recording closed with error: %v", err)
		return err
	}
	s.lastResult = "Recording stopped"
	return nil
}

func (s *State) setRecording(v bool) {
	s.recording = v
	s.metrics.SetRecording(v)
}

func (s *State) Recording() bool {
	return s.recording
}

// -----------------------------------------------------------------------------
// View
// -----------------------------------------------------------------------------

// View copies everything the presentation layer paints.
func (s *State) View() models.MBridgeView {
	history := s.history.GetAll()
	ticks := make([]models.MTickPoint, len(history))
	for i, h := range history {
		ticks[i] = models.MTickPoint{Time: h.Time, Bid: h.Bid, Ask: h.Ask}
	}

	view := models.MBridgeView{
		Type:        "UPDATE",
		Symbol:      s.symbol,
		Ticks:       ticks,
		Volumes:     s.volumes.GetAll(),
		Account:     s.account,
		Constraints: s.constraints,
		Positions:   slices.Clone(s.positions),
		Orders:      slices.Clone(s.orders),
		Breaklines:  s.breaklines.GetAll(),
		Lot:         s.lot,
		Recording:   s.recording,
		LastResult:  s.lastResult,
		Timestamp:   time.Now().Unix(),
	}
	if s.pendingOrder != nil {
		view.Pending.OrderKind = s.pendingOrder.kind
	}
	if s.pendingHistory != nil {
		view.Pending.HistoryRequestID = s.pendingHistory.id
	}
	return view
}

// -----------------------------------------------------------------------------

// Close releases the recording, if any.
func (s *State) Close() error {
	return s.StopRecording()
}
