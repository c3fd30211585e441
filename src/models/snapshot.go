package models

// MSnapshot is one market/account state message published by the terminal.
// A zero Balance means the account fields were not part of the message.
type MSnapshot struct {
	Symbol     string          `json:"symbol"`
	Bid        float64         `json:"bid"`
	Ask        float64         `json:"ask"`
	Time       int64           `json:"time"`
	Volume     uint64          `json:"volume"`
	Balance    float64         `json:"balance"`
	Equity     float64         `json:"equity"`
	Margin     float64         `json:"margin"`
	FreeMargin float64         `json:"free_margin"`
	MinLot     float64         `json:"min_lot"`
	MaxLot     float64         `json:"max_lot"`
	LotStep    float64         `json:"lot_step"`
	Positions  []MPosition     `json:"positions"`
	Orders     []MPendingOrder `json:"orders"`
}

// HasAccount reports whether the snapshot carries account fields.
func (s MSnapshot) HasAccount() bool {
	return s.Balance > 0
}

// MPosition is an open position. Type is "BUY" or "SELL".
type MPosition struct {
	Ticket uint64  `json:"ticket"`
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
	Price  float64 `json:"price"`
	Profit float64 `json:"profit"`
}

// MPendingOrder is a resting order, e.g. "BUY LIMIT" or "SELL STOP".
type MPendingOrder struct {
	Ticket uint64  `json:"ticket"`
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
	Price  float64 `json:"price"`
}

// MVolumeBar is one entry of the volume history.
type MVolumeBar struct {
	Time   int64  `json:"time"`
	Volume uint64 `json:"volume"`
}

// MAccount is the latest account block seen on the feed.
type MAccount struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
}

// MLotConstraints bounds the lot size an order may carry.
type MLotConstraints struct {
	MinLot  float64 `json:"min_lot"`
	MaxLot  float64 `json:"max_lot"`
	LotStep float64 `json:"lot_step"`
}
