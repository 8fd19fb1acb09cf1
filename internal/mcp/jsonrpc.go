// Package mcp implements an MCP (Model Context Protocol) server over stdio,
// exposing blogcheck's reset, seeding, login and suite runs as tools for AI
// coding agents.
package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"
	serverName      = "blogcheck-mcp"
)

// JSON-RPC 2.0 error codes used by the server.
const (
	ErrCodeParse         = -32700
	ErrCodeInvalidReq    = -32600
	ErrCodeNoMethod      = -32601
	ErrCodeInvalidParams = -32602
	ErrCodeInternal      = -32603
)

// Request is one line read from the agent. ID is absent for notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the agent expects no reply.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// validate rejects envelopes that parse as JSON but are not 2.0 requests.
func (r *Request) validate() *RPCError {
	switch {
	case r.JSONRPC != jsonrpcVersion:
		return &RPCError{Code: ErrCodeInvalidReq, Message: fmt.Sprintf("unsupported jsonrpc version %q", r.JSONRPC)}
	case r.Method == "":
		return &RPCError{Code: ErrCodeInvalidReq, Message: "missing method"}
	}
	return nil
}

// Response is written back for every request that carries an ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a Response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func newResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func newErrorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: jsonrpcVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
}

// serverInfo identifies blogcheck in the initialize handshake.
type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

// toolsCallParams holds the parameters for a tools/call request.
type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// decodeToolsCall parses tools/call params. A call without a tool name is
// rejected before any tool runs.
func decodeToolsCall(raw json.RawMessage) (toolsCallParams, *RPCError) {
	var p toolsCallParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	if p.Name == "" {
		return p, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid params: missing tool name"}
	}
	return p, nil
}

// unmarshalParams decodes tool arguments; absent arguments decode to the zero value.
func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	return json.Unmarshal(params, v)
}
