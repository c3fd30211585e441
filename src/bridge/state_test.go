package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
	"mt5-bridge/src/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ticks     chan models.MSnapshot
	commands  chan models.MCommand
	replies   chan models.MReply
	state     *State
	recordDir string
	exportDir string
}

func defaultBuffers() models.MBuffersConfig {
	return models.MBuffersConfig{
		TickHistory:   1000,
		VolumeHistory: 100,
		Breaklines:    100,
		TickQueue:     100,
		CommandQueue:  10,
		ReplyQueue:    10,
	}
}

func newHarness(t *testing.T, buffers models.MBuffersConfig) *harness {
	t.Helper()
	h := &harness{
		ticks:     make(chan models.MSnapshot, buffers.TickQueue),
		commands:  make(chan models.MCommand, buffers.CommandQueue),
		replies:   make(chan models.MReply, buffers.ReplyQueue),
		recordDir: filepath.Join(t.TempDir(), "rec"),
		exportDir: filepath.Join(t.TempDir(), "export"),
	}
	h.state = NewState(buffers,
		Queues{Ticks: h.ticks, Commands: h.commands, Replies: h.replies},
		recorder.NewTickRecorder(h.recordDir),
		recorder.NewHistoryExporter(h.exportDir),
		logger.NewNop(), metrics.NewNop())
	return h
}

func (h *harness) feed(snaps ...models.MSnapshot) {
	for _, s := range snaps {
		h.ticks <- s
	}
	h.state.DrainTicks()
}

func (h *harness) reply(r models.MReply) {
	h.replies <- r
	h.state.DrainReplies()
}

func snapAt(ts int64) models.MSnapshot {
	return models.MSnapshot{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1002, Time: ts}
}

func fill(ticket int64) models.MReply {
	return models.MReply{Success: true, Ticket: &ticket}
}

func failure(msg string) models.MReply {
	return models.FailureReply(msg)
}

func message(msg string, id uint64) models.MReply {
	r := models.MReply{Success: true, Message: &msg}
	if id != 0 {
		r.RequestID = &id
	}
	return r
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// -----------------------------------------------------------------------------
// Ticks
// -----------------------------------------------------------------------------

func TestDrainTicks_RingKeepsLastCapacityInOrder(t *testing.T) {
	buffers := defaultBuffers()
	buffers.TickHistory = 3
	buffers.VolumeHistory = 2
	h := newHarness(t, buffers)

	for ts := int64(1); ts <= 7; ts++ {
		s := snapAt(ts)
		s.Volume = uint64(ts * 10)
		h.ticks <- s
	}
	assert.Equal(t, 7, h.state.DrainTicks())

	view := h.state.View()
	require.Len(t, view.Ticks, 3)
	assert.Equal(t, []int64{5, 6, 7}, []int64{view.Ticks[0].Time, view.Ticks[1].Time, view.Ticks[2].Time})
	assert.Equal(t, []models.MVolumeBar{{Time: 6, Volume: 60}, {Time: 7, Volume: 70}}, view.Volumes)
}

func TestDrainTicks_EmptyQueueReturnsImmediately(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	assert.Equal(t, 0, h.state.DrainTicks())
	assert.Equal(t, waitingSymbol, h.state.View().Symbol)
}

func TestDrainTicks_AccountAndPositions(t *testing.T) {
	h := newHarness(t, defaultBuffers())

	withAccount := snapAt(1)
	withAccount.Balance = 1000
	withAccount.Equity = 990
	withAccount.MinLot = 0.1
	withAccount.MaxLot = 20
	withAccount.LotStep = 0.1
	withAccount.Positions = []models.MPosition{{Ticket: 1, Type: "BUY"}, {Ticket: 2, Type: "SELL"}}
	h.feed(withAccount)

	view := h.state.View()
	assert.Equal(t, "EURUSD", view.Symbol)
	assert.Equal(t, 1000.0, view.Account.Balance)
	assert.Equal(t, models.MLotConstraints{MinLot: 0.1, MaxLot: 20, LotStep: 0.1}, view.Constraints)
	assert.Len(t, view.Positions, 2)

	// no account block, no lot step: constraints kept, positions replaced wholesale
	bare := snapAt(2)
	bare.Positions = []models.MPosition{{Ticket: 3, Type: "BUY"}}
	h.feed(bare)

	view = h.state.View()
	assert.Equal(t, 1000.0, view.Account.Balance)
	assert.Equal(t, 0.1, view.Constraints.LotStep)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, uint64(3), view.Positions[0].Ticket)

	zeroStep := snapAt(3)
	zeroStep.Balance = 1200
	zeroStep.MinLot = 0.01
	zeroStep.MaxLot = 50
	h.feed(zeroStep)
	assert.Equal(t, models.MLotConstraints{MinLot: 0.01, MaxLot: 50, LotStep: 0.1}, h.state.View().Constraints)
}

// -----------------------------------------------------------------------------
// Order correlation
// -----------------------------------------------------------------------------

func TestMarketBuyFill_AppendsOneBreaklineAtSubmissionIndex(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1000), snapAt(1001))

	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))
	cmd := <-h.commands
	assert.Equal(t, models.MCommand{Type: models.CmdMarketBuy, Symbol: "EURUSD", Volume: 0.01}, cmd)
	assert.Equal(t, "Order sent, waiting for response...", h.state.View().LastResult)

	h.feed(snapAt(1002), snapAt(1003))
	h.reply(fill(4242))

	view := h.state.View()
	assert.Equal(t, []models.MBreakline{{Index: 2, Kind: models.CmdMarketBuy, Ticket: 4242}}, view.Breaklines)
	assert.Equal(t, "✓ Order executed! Ticket: 4242", view.LastResult)
	assert.Empty(t, view.Pending.OrderKind)
}

func TestMarketBuyFailure_NoBreaklineAndSlotCleared(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))
	h.reply(failure("Not enough money"))

	view := h.state.View()
	assert.Empty(t, view.Breaklines)
	assert.Empty(t, view.Pending.OrderKind)
	assert.Equal(t, "✗ Order failed: Not enough money", view.LastResult)

	// a later fill has nothing to attach to
	h.reply(fill(7))
	assert.Empty(t, h.state.View().Breaklines)
}

func TestFailureWithoutError_ReportsUnknown(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.reply(models.MReply{Success: false})
	assert.Equal(t, "✗ Order failed: Unknown error", h.state.View().LastResult)
}

func TestBackToBackSubmissions_OverwriteSlot(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))
	h.feed(snapAt(2))
	require.NoError(t, h.state.MarketOrder(models.CmdMarketSell))
	assert.Len(t, h.commands, 2)

	// the first reply is attributed to the newer slot
	h.reply(fill(1))
	h.reply(fill(2))

	assert.Equal(t, []models.MBreakline{{Index: 2, Kind: models.CmdMarketSell, Ticket: 1}}, h.state.View().Breaklines)
}

func TestSubmit_QueueFullLeavesSlotUntouched(t *testing.T) {
	buffers := defaultBuffers()
	buffers.CommandQueue = 1
	h := newHarness(t, buffers)
	h.feed(snapAt(1))

	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))
	err := h.state.MarketOrder(models.CmdMarketSell)
	assert.ErrorIs(t, err, ErrCommandQueueFull)

	view := h.state.View()
	assert.Equal(t, models.CmdMarketBuy, view.Pending.OrderKind)
	assert.True(t, strings.HasPrefix(view.LastResult, "Failed to send order: "))
}

func TestPendingAndTicketCommands(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))
	h.state.SetLot(0.3)

	require.NoError(t, h.state.PendingOrder(models.CmdStopSell, 1.05))
	require.NoError(t, h.state.ClosePosition(11))
	require.NoError(t, h.state.CancelOrder(12))

	assert.Equal(t, models.MCommand{Type: models.CmdStopSell, Symbol: "EURUSD", Volume: 0.3, Price: 1.05}, <-h.commands)
	assert.Equal(t, models.MCommand{Type: models.CmdClosePosition, Symbol: "EURUSD", Volume: 0.3, Ticket: 11}, <-h.commands)
	assert.Equal(t, models.MCommand{Type: models.CmdCancelOrder, Symbol: "EURUSD", Volume: 0.3, Ticket: 12}, <-h.commands)

	// non-market orders never arm the order slot
	assert.Empty(t, h.state.View().Pending.OrderKind)
}

func TestCommandValidation(t *testing.T) {
	h := newHarness(t, defaultBuffers())

	assert.ErrorIs(t, h.state.MarketOrder(models.CmdMarketBuy), ErrNoSymbol)

	h.feed(snapAt(1))
	assert.ErrorIs(t, h.state.MarketOrder(models.CmdLimitBuy), ErrInvalidCommand)
	assert.ErrorIs(t, h.state.PendingOrder(models.CmdMarketBuy, 1), ErrInvalidCommand)
	assert.ErrorIs(t, h.state.PendingOrder(models.CmdLimitBuy, 0), ErrInvalidCommand)
	assert.ErrorIs(t, h.state.ClosePosition(0), ErrInvalidCommand)
	_, err := h.state.RequestHistory("", "", "", "bars")
	assert.ErrorIs(t, err, ErrInvalidCommand)
	assert.Empty(t, h.commands)
}

// -----------------------------------------------------------------------------
// History correlation
// -----------------------------------------------------------------------------

func TestRequestHistory_IDsStrictlyIncrease(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	var last uint64
	for i := 0; i < 5; i++ {
		id, err := h.state.RequestHistory("M1", "2026.10.01", "2026.10.02", "bars")
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id

		cmd := <-h.commands
		require.NotNil(t, cmd.MHistoryParams)
		assert.Equal(t, id, cmd.RequestID)
		assert.Equal(t, models.CmdDownloadHistory, cmd.Type)
	}
}

func TestRequestHistory_MintsEvenWhenQueueFull(t *testing.T) {
	buffers := defaultBuffers()
	buffers.CommandQueue = 1
	h := newHarness(t, buffers)
	h.feed(snapAt(1))

	first, err := h.state.RequestHistory("M1", "a", "b", "bars")
	require.NoError(t, err)
	second, err := h.state.RequestHistory("M5", "a", "b", "bars")
	assert.ErrorIs(t, err, ErrCommandQueueFull)
	assert.Equal(t, first+1, second)
	assert.Equal(t, first, h.state.View().Pending.HistoryRequestID)
}

func TestExportReply_WritesExactlyOneArtifactWithID(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	_, err := h.state.RequestHistory("M1", "2026.10.01", "2026.10.02", "bars")
	require.NoError(t, err)
	id, err := h.state.RequestHistory("H1", "2026.10.01", "2026.10.02", "ticks")
	require.NoError(t, err)

	payload := "time,bid,ask\n1,1.1,1.2\n"
	h.reply(message("Downloaded 1 rows"+models.CSVSentinel+payload, id))

	names := dirEntries(t, h.exportDir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "EURUSD_H1_ticks_req2_"), names[0])

	data, err := os.ReadFile(filepath.Join(h.exportDir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	view := h.state.View()
	assert.Contains(t, view.LastResult, "✓ Downloaded 1 rows (saved to ")
	assert.Zero(t, view.Pending.HistoryRequestID)

	// slot consumed: a second payload is surfaced but not saved
	h.reply(message("again"+models.CSVSentinel+"x", id))
	assert.Len(t, dirEntries(t, h.exportDir), 1)
	assert.Equal(t, "✓ again", h.state.View().LastResult)
}

func TestExportReply_FallsBackToSlotID(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	id, err := h.state.RequestHistory("D1", "", "", "bars")
	require.NoError(t, err)
	h.reply(message("ok"+models.CSVSentinel+"p", 0))

	names := dirEntries(t, h.exportDir)
	require.Len(t, names, 1)
	assert.Contains(t, names[0], "_req"+strconv.FormatUint(id, 10)+"_")
}

func TestFailureReply_ClearsHistorySlot(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	_, err := h.state.RequestHistory("M1", "", "", "bars")
	require.NoError(t, err)
	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))

	h.reply(failure("Invalid timeframe"))

	view := h.state.View()
	assert.Zero(t, view.Pending.HistoryRequestID)
	assert.Empty(t, view.Pending.OrderKind)

	h.reply(message("late"+models.CSVSentinel+"x", 1))
	assert.Empty(t, dirEntries(t, h.exportDir))
}

func TestMessageReply_ClearsHistorySlotOnly(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(1))

	require.NoError(t, h.state.MarketOrder(models.CmdMarketBuy))
	_, err := h.state.RequestHistory("M1", "", "", "bars")
	require.NoError(t, err)

	h.reply(message("No data for range", 0))

	view := h.state.View()
	assert.Equal(t, "✓ No data for range", view.LastResult)
	assert.Zero(t, view.Pending.HistoryRequestID)
	assert.Equal(t, models.CmdMarketBuy, view.Pending.OrderKind)
}

// -----------------------------------------------------------------------------
// Recording
// -----------------------------------------------------------------------------

func TestRecording_ThreeTicksProduceHeaderAndRows(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	h.feed(snapAt(999))

	path, err := h.state.StartRecording()
	require.NoError(t, err)
	assert.True(t, h.state.View().Recording)

	h.feed(
		models.MSnapshot{Symbol: "EURUSD", Time: 1000, Bid: 1.1000, Ask: 1.1002, Volume: 5},
		models.MSnapshot{Symbol: "EURUSD", Time: 1001, Bid: 1.1001, Ask: 1.1003, Volume: 7},
		models.MSnapshot{Symbol: "EURUSD", Time: 1002, Bid: 1.1002, Ask: 1.1004, Volume: 3},
	)
	require.NoError(t, h.state.StopRecording())
	assert.False(t, h.state.View().Recording)
	assert.Equal(t, "Recording stopped", h.state.View().LastResult)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Time,Bid,Ask,Volume\n1000,1.1,1.1002,5\n1001,1.1001,1.1003,7\n1002,1.1002,1.1004,3\n", string(data))
}

type failingRecorder struct {
	active  bool
	stopped int
}

func (f *failingRecorder) Start(string) (string, error) {
	f.active = true
	return "rec.csv", nil
}

func (f *failingRecorder) Record(models.MSnapshot) error {
	return errors.New("disk full")
}

func (f *failingRecorder) Stop() error {
	f.active = false
	f.stopped++
	return nil
}

func (f *failingRecorder) Active() bool { return f.active }

func TestRecording_WriteFailureDisablesFlagAndKeepsIngesting(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	rec := &failingRecorder{}
	h.state.recorder = rec
	h.feed(snapAt(1))

	_, err := h.state.StartRecording()
	require.NoError(t, err)

	h.feed(snapAt(2), snapAt(3))

	view := h.state.View()
	assert.False(t, view.Recording)
	assert.Equal(t, 1, rec.stopped)
	assert.Len(t, view.Ticks, 3)
	assert.Contains(t, view.LastResult, "disk full")
}

func TestRecording_RequiresSymbol(t *testing.T) {
	h := newHarness(t, defaultBuffers())
	_, err := h.state.StartRecording()
	assert.ErrorIs(t, err, ErrNoSymbol)
	assert.False(t, h.state.Recording())
	assert.NoError(t, h.state.StopRecording())
}
