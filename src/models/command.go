package models

type CommandType string

const (
	CmdMarketBuy       CommandType = "market_buy"
	CmdMarketSell      CommandType = "market_sell"
	CmdLimitBuy        CommandType = "limit_buy"
	CmdLimitSell       CommandType = "limit_sell"
	CmdStopBuy         CommandType = "stop_buy"
	CmdStopSell        CommandType = "stop_sell"
	CmdClosePosition   CommandType = "close_position"
	CmdCancelOrder     CommandType = "cancel_order"
	CmdDownloadHistory CommandType = "download_history"
)

// IsMarket reports whether the command executes immediately at market.
func (c CommandType) IsMarket() bool {
	return c == CmdMarketBuy || c == CmdMarketSell
}

// IsPending reports whether the command places a limit or stop order.
func (c CommandType) IsPending() bool {
	switch c {
	case CmdLimitBuy, CmdLimitSell, CmdStopBuy, CmdStopSell:
		return true
	}
	return false
}

// MCommand is a single instruction for the terminal.
// History fields are embedded through a pointer so they stay off the wire
// for every other command type.
type MCommand struct {
	Type   CommandType `json:"type"`
	Symbol string      `json:"symbol"`
	Volume float64     `json:"volume"`
	Price  float64     `json:"price"`
	Ticket uint64      `json:"ticket"`
	*MHistoryParams
}

// MHistoryParams are the download_history specific fields.
type MHistoryParams struct {
	Timeframe string `json:"timeframe"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Mode      string `json:"mode"`
	RequestID uint64 `json:"request_id"`
}
