package models

import "strings"

// CSVSentinel separates the human summary from the exported payload.
const CSVSentinel = "||CSV_DATA||"

const unknownError = "Unknown error"

// MReply is the terminal's answer to exactly one command.
type MReply struct {
	Success   bool    `json:"success"`
	Ticket    *int64  `json:"ticket,omitempty"`
	Error     *string `json:"error,omitempty"`
	Message   *string `json:"message,omitempty"`
	RequestID *uint64 `json:"request_id,omitempty"`
}

// FailureReply builds the synthetic reply the gateway emits when an exchange
// could not complete.
func FailureReply(cause string) MReply {
	return MReply{Success: false, Error: &cause}
}

type ReplyKind int

const (
	ReplyFill ReplyKind = iota
	ReplyMessage
	ReplyExport
	ReplyFailure
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyFill:
		return "fill"
	case ReplyMessage:
		return "message"
	case ReplyExport:
		return "export"
	case ReplyFailure:
		return "failure"
	}
	return "unknown"
}

// MClassifiedReply is a reply resolved into exactly one outcome.
type MClassifiedReply struct {
	Kind      ReplyKind
	Ticket    int64
	Summary   string
	Payload   string
	Error     string
	RequestID uint64
}

// Classify resolves the optional wire fields into a single outcome.
// A success without ticket and without message is a bare fill.
func (r MReply) Classify() MClassifiedReply {
	out := MClassifiedReply{}
	if r.RequestID != nil {
		out.RequestID = *r.RequestID
	}
	if !r.Success {
		out.Kind = ReplyFailure
		out.Error = unknownError
		if r.Error != nil && *r.Error != "" {
			out.Error = *r.Error
		}
		return out
	}
	if r.Ticket != nil {
		out.Ticket = *r.Ticket
	}
	if r.Message == nil || *r.Message == "" {
		out.Kind = ReplyFill
		return out
	}
	if summary, payload, ok := strings.Cut(*r.Message, CSVSentinel); ok {
		out.Kind = ReplyExport
		out.Summary = summary
		out.Payload = payload
		return out
	}
	out.Kind = ReplyMessage
	out.Summary = *r.Message
	return out
}
