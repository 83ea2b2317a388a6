package mcpserver

import (
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"matchmesh/internal/challenge"
)

var (
	localUserArg   = mcp.WithNumber("local_user", mcp.Required(), mcp.Description("Local user number on this node"))
	challengeIDArg = mcp.WithString("challenge_id", mcp.Required(), mcp.Description("Challenge id"))
)

// maxWholeArg bounds numeric arguments to integers a float64 still holds
// exactly.
const maxWholeArg = 1 << 53

// wholeArg reads a required non-negative whole number. JSON numbers arrive as
// float64, so 2.7 or 1e300 is refused rather than truncated.
func wholeArg(request mcp.CallToolRequest, key string) (int64, error) {
	v, err := request.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, fmt.Errorf("%s must be a number", key)
	case v < 0:
		return 0, fmt.Errorf("%s must be non-negative", key)
	case v != math.Trunc(v):
		return 0, fmt.Errorf("%s must be a whole number, got %v", key, v)
	case v > maxWholeArg:
		return 0, fmt.Errorf("%s is out of range", key)
	}
	return int64(v), nil
}

// localUserFrom reads the local_user argument.
func localUserFrom(request mcp.CallToolRequest) (int, error) {
	v, err := wholeArg(request, "local_user")
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("local_user is out of range")
	}
	return int(v), nil
}

// stakesArgs reads a non-negative cash/rep pair.
func stakesArgs(request mcp.CallToolRequest, cashKey, repKey string) (challenge.Stakes, error) {
	cash, err := wholeArg(request, cashKey)
	if err != nil {
		return challenge.Stakes{}, err
	}
	rep, err := wholeArg(request, repKey)
	if err != nil {
		return challenge.Stakes{}, err
	}
	return challenge.Stakes{Cash: cash, Rep: rep}, nil
}
