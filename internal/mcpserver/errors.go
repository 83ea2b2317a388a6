package mcpserver

import (
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"matchmesh/internal/app/duel"
	"matchmesh/internal/challenge"
)

// toolErrorCodes lists the duel sentinels whose text doubles as the tool
// error code. Order matters only for errors wrapping more than one.
var toolErrorCodes = []error{
	duel.ErrSessionNotFound,
	duel.ErrSessionClosed,
	duel.ErrInvalidRequest,
	duel.ErrChallengeNotFound,
	duel.ErrStoreUnavailable,
	duel.ErrProtocolViolation,
}

type toolFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	return failure(toolFailure{Code: code, Message: message})
}

func failure(f toolFailure) *mcp.CallToolResult {
	text := f.Code + ": " + f.Message
	res := mcp.NewToolResultStructured(map[string]any{"error": f}, text)
	res.IsError = true
	return res
}

// mapDomainError turns a duel error into a tool error. Protocol violations
// also name the rule that was broken in "reason".
func mapDomainError(err error) *mcp.CallToolResult {
	if err == nil {
		return toolError("internal_error", "unknown error")
	}
	f := toolFailure{Code: "internal_error", Message: err.Error(), Reason: challenge.Reason(err)}
	for _, sentinel := range toolErrorCodes {
		if errors.Is(err, sentinel) {
			f.Code = sentinel.Error()
			break
		}
	}
	return failure(f)
}
