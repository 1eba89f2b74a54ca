// Package rpc exposes chain state and transaction submission via a
// JSON-RPC 2.0 HTTP endpoint.
package rpc

import "encoding/json"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object. Data.Kind carries the chain
// error kind (for example "not_found" or "transfer_restricted").
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData is the structured part of an Error.
type ErrorData struct {
	Kind string `json:"kind"`
}

// JSON-RPC error codes. -32001 and below are chain specific.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32001
	CodeTxRejected     = -32002
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// Balance is a token balance with its decimal rendering.
type Balance struct {
	Token    string `json:"token"`
	Account  string `json:"account"`
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
	Display  string `json:"display"`
}

// CollateralQuote is the collateral a mint would lock.
type CollateralQuote struct {
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
	Ratio   uint64 `json:"ratio"`
	Due     uint64 `json:"due"`
	Display string `json:"display"`
}
