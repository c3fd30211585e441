package models

// -----------------------------------------------------------------------------
// Breakline marks the tick index at which a market order was submitted.
// -----------------------------------------------------------------------------

type MBreakline struct {
	Index  int         `json:"index"`
	Kind   CommandType `json:"kind"`
	Ticket int64       `json:"ticket"`
}

// -----------------------------------------------------------------------------
// Bridge View pushed to the presentation layer
// -----------------------------------------------------------------------------

type MBridgeView struct {
	Type        string          `json:"type"` // "INITIAL" or "UPDATE"
	Symbol      string          `json:"symbol"`
	Ticks       []MTickPoint    `json:"ticks"`
	Volumes     []MVolumeBar    `json:"volumes"`
	Account     MAccount        `json:"account"`
	Constraints MLotConstraints `json:"constraints"`
	Positions   []MPosition     `json:"positions"`
	Orders      []MPendingOrder `json:"orders"`
	Breaklines  []MBreakline    `json:"breaklines"`
	Lot         float64         `json:"lot"`
	Recording   bool            `json:"recording"`
	LastResult  string          `json:"last_result"`
	Pending     MPendingView    `json:"pending"`
	Timestamp   int64           `json:"timestamp"`
}

// MTickPoint is the chart-relevant part of a snapshot.
type MTickPoint struct {
	Time int64   `json:"time"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

// MPendingView exposes the correlation slots without their internals.
type MPendingView struct {
	OrderKind        CommandType `json:"order_kind,omitempty"`
	HistoryRequestID uint64      `json:"history_request_id,omitempty"`
}

// -----------------------------------------------------------------------------
// Export naming parts of a history download artifact
// -----------------------------------------------------------------------------

type MExportName struct {
	Symbol    string
	Timeframe string
	Mode      string
	RequestID uint64
}
