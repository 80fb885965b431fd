// internal/wsrpc/message.go
package wsrpc

// Call is an RPC request from the browser frontend
type Call struct {
	ID     string        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Reply answers one Call, matched by ID
type Reply struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Event is a backend-initiated push, the server-mode twin of a Wails
// runtime event
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope wraps every message on the wire. Kind selects which field is
// set: "call", "reply" or "event".
type Envelope struct {
	Kind  string `json:"kind"`
	Call  *Call  `json:"call,omitempty"`
	Reply *Reply `json:"reply,omitempty"`
	Event *Event `json:"event,omitempty"`
}
