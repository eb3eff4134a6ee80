package a2a

import "encoding/json"

const jsonrpcVersion = "2.0"

// JSON-RPC methods served at POST /a2a.
const (
	MethodSendTask   = "tasks/send"
	MethodGetTask    = "tasks/get"
	MethodCancelTask = "tasks/cancel"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	ErrCodeParse        = -32700
	ErrCodeInvalidReq   = -32600
	ErrCodeNotFound     = -32601
	ErrCodeInternal     = -32603
	ErrCodeTaskNotFound = -32001
)

func NewJSONRPCResponse(id any, result any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Result:  result,
	}
}

func NewJSONRPCError(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
