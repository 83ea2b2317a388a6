package ws

import "encoding/json"

const (
	ProtocolVersion = "1.0"
	maxRequestIDLen = 64
)

const (
	TypeRead   = "read"
	TypeWrite  = "write"
	TypeRemove = "remove"
	TypePing   = "ping"
	TypeResult = "result"
)

const (
	CodeNotFound         = "not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidRequestID = "invalid_request_id"
	CodeInvalidPath      = "invalid_path"
	CodeUnknownType      = "unknown_type"
	CodeInternal         = "internal_error"
)

// Request is a client frame. Value is only meaningful for writes.
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Scope     string          `json:"scope,omitempty"`
	Path      string          `json:"path,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Result answers exactly one Request, matched by RequestID.
type Result struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RequestID       string          `json:"request_id"`
	Ok              bool            `json:"ok"`
	Value           json.RawMessage `json:"value,omitempty"`
	Error           string          `json:"error,omitempty"`
}

func okResult(requestID string, value json.RawMessage) Result {
	return Result{Type: TypeResult, ProtocolVersion: ProtocolVersion, RequestID: requestID, Ok: true, Value: value}
}

func errResult(requestID, code string) Result {
	return Result{Type: TypeResult, ProtocolVersion: ProtocolVersion, RequestID: requestID, Error: code}
}
