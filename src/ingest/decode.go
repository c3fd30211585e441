package ingest

import (
	"encoding/json"
	"errors"
	"unicode/utf8"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/models"
)

var (
	errNotUTF8       = errors.New("payload is not valid UTF-8")
	errMissingSymbol = errors.New("missing field: symbol")
	errMissingBid    = errors.New("missing field: bid")
	errMissingAsk    = errors.New("missing field: ask")
	errMissingTime   = errors.New("missing field: time")
)

// requiredFields detects absent keys, which a plain decode would zero-fill.
type requiredFields struct {
	Symbol *string  `json:"symbol"`
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
	Time   *int64   `json:"time"`
}

// DecodeSnapshot parses one inbound payload. Optional fields default to zero
// and empty collections.
func DecodeSnapshot(payload []byte) (models.MSnapshot, error) {
	var snap models.MSnapshot

	if !utf8.Valid(payload) {
		return snap, helpers.NewDecodeError("snapshot", errNotUTF8)
	}

	var req requiredFields
	if err := json.Unmarshal(payload, &req); err != nil {
		return snap, helpers.NewDecodeError("snapshot", err)
	}
	switch {
	case req.Symbol == nil:
		return snap, helpers.NewDecodeError("snapshot", errMissingSymbol)
	case req.Bid == nil:
		return snap, helpers.NewDecodeError("snapshot", errMissingBid)
	case req.Ask == nil:
		return snap, helpers.NewDecodeError("snapshot", errMissingAsk)
	case req.Time == nil:
		return snap, helpers.NewDecodeError("snapshot", errMissingTime)
	}

	if err := json.Unmarshal(payload, &snap); err != nil {
		return snap, helpers.NewDecodeError("snapshot", err)
	}
	if snap.Positions == nil {
		snap.Positions = []models.MPosition{}
	}
	if snap.Orders == nil {
		snap.Orders = []models.MPendingOrder{}
	}
	return snap, nil
}
