package gateway

import (
	"encoding/json"
	"errors"
	"unicode/utf8"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/models"
)

var errSuccessMissing = errors.New("missing field: success")

// EncodeCommand renders a command as one UTF-8 JSON frame.
func EncodeCommand(cmd models.MCommand) ([]byte, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return nil, helpers.NewProtocolError("encode command", err)
	}
	return b, nil
}

// DecodeReply parses one reply frame. success is the only required field.
func DecodeReply(payload []byte) (models.MReply, error) {
	var reply models.MReply
	if !utf8.Valid(payload) {
		return reply, helpers.NewDecodeError("reply", errors.New("payload is not valid UTF-8"))
	}

	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return reply, helpers.NewDecodeError("reply", err)
	}
	if probe.Success == nil {
		return reply, helpers.NewDecodeError("reply", errSuccessMissing)
	}

	if err := json.Unmarshal(payload, &reply); err != nil {
		return reply, helpers.NewDecodeError("reply", err)
	}
	return reply, nil
}
