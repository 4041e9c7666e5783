package engine

import "encoding/json"

// Request is one broker-to-engine call, written as a single
// newline-terminated JSON object on the engine's stdin.
type Request struct {
	// ID is the request identifier
	ID uint64 `json:"id"`

	// Method is the name of the requested operation
	Method string `json:"method"`

	// Params is the request payload
	Params map[string]any `json:"params"`
}

// RPCError is the error payload of a failed reply.
type RPCError struct {
	Message string `json:"message"`
}

// Inbound is one line of engine output. A line carrying an id is a
// reply to an outstanding request; a line without an id is an
// asynchronous event.
type Inbound struct {
	ID     *uint64         `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// IsReply reports whether the message answers an outstanding request.
func (m *Inbound) IsReply() bool {
	return m.ID != nil
}

// IsEvent reports whether the message is an unsolicited engine event.
func (m *Inbound) IsEvent() bool {
	return m.ID == nil && m.Event != ""
}
