package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"matchmesh/internal/app/duel"
)

func (s *Server) registerWagerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"negotiate_wager",
			mcp.WithDescription("Open a wager bounded by both players' stakes"),
			localUserArg,
			challengeIDArg,
			mcp.WithNumber("opponent_cash", mcp.Required(), mcp.Description("Opponent's available cash")),
			mcp.WithNumber("opponent_rep", mcp.Required(), mcp.Description("Opponent's available reputation")),
		),
		s.handleNegotiateWager,
	)
	s.mcpServer.AddTool(
		mcp.NewTool(
			"propose_wager",
			mcp.WithDescription("Propose amounts; players alternate turns"),
			localUserArg,
			challengeIDArg,
			mcp.WithNumber("cash", mcp.Required(), mcp.Description("Cash amount")),
			mcp.WithNumber("rep", mcp.Required(), mcp.Description("Reputation amount")),
			mcp.WithBoolean("lock", mcp.Description("Lower the ceiling to these amounts")),
		),
		s.handleProposeWager,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("wager_details", mcp.WithDescription("Current wager state of a challenge"), localUserArg, challengeIDArg),
		s.handleWagerDetails,
	)
}

func (s *Server) handleNegotiateWager(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opponent, err := stakesArgs(request, "opponent_cash", "opponent_rep")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	return s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
		return svc.NegotiateWager(ctx, id, opponent)
	})(ctx, request)
}

func (s *Server) handleProposeWager(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amounts, err := stakesArgs(request, "cash", "rep")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	lock := request.GetBool("lock", false)
	return s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
		return svc.ProposeWager(ctx, id, amounts.Cash, amounts.Rep, lock)
	})(ctx, request)
}

func (s *Server) handleWagerDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	id, err := request.RequireString("challenge_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	item, svcErr := svc.GetChallenge(ctx, id)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{
		"challenge_id": item.ID,
		"wager":        item.Wager,
		"my_turn":      item.MyTurn,
	}), nil
}
