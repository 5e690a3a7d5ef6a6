// internal/feed/types.go
package feed

import "encoding/json"

// State is the listener's position in the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateSubscribed
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// rpcRequest is an outbound JSON-RPC frame.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// inboundFrame covers both subscription acks (ID + Result set) and
// logsNotification frames (Method + Params set).
type inboundFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  *logsParams     `json:"params,omitempty"`
}

type logsParams struct {
	Subscription uint64     `json:"subscription"`
	Result       logsResult `json:"result"`
}

type logsResult struct {
	Value logsValue `json:"value"`
}

type logsValue struct {
	Signature string          `json:"signature"`
	Err       json.RawMessage `json:"err"`
	Logs      []string        `json:"logs"`
}

// failed reports whether the notification carries an on-chain error.
func (v *logsValue) failed() bool {
	return len(v.Err) > 0 && string(v.Err) != "null"
}
