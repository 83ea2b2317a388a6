package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"matchmesh/internal/app/duel"
)

func (s *Server) registerChallengeTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_challenge",
			mcp.WithDescription("Challenge another player; writes to both mailboxes"),
			localUserArg,
			mcp.WithString("target", mcp.Required(), mcp.Description("Target global id")),
			mcp.WithString("target_name", mcp.Description("Target display name; looked up from presence when empty")),
			mcp.WithString("mode", mcp.Description("Game mode label")),
		),
		s.handleCreateChallenge,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("list_challenges", mcp.WithDescription("Open outgoing and incoming challenges"), localUserArg),
		s.handleListChallenges,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("accept_challenge", mcp.WithDescription("Accept an incoming pending challenge"), localUserArg, challengeIDArg),
		s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
			return svc.Accept(ctx, id)
		}),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("decline_challenge", mcp.WithDescription("Decline an incoming challenge"), localUserArg, challengeIDArg),
		s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
			return svc.Decline(ctx, id)
		}),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("cancel_challenge", mcp.WithDescription("Withdraw an outgoing challenge"), localUserArg, challengeIDArg),
		s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
			return svc.Cancel(ctx, id)
		}),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("dismiss_challenge", mcp.WithDescription("Remove a finished challenge from the caller's mailbox"), localUserArg, challengeIDArg),
		s.handleDismissChallenge,
	)
	s.mcpServer.AddTool(
		mcp.NewTool(
			"mark_ready",
			mcp.WithDescription("Set the caller's lobby ready flag on an accepted challenge"),
			localUserArg,
			challengeIDArg,
			mcp.WithBoolean("ready", mcp.Description("Ready flag, default true")),
		),
		s.handleMarkReady,
	)
}

func (s *Server) challengeAction(fn func(context.Context, *duel.Service, string) (*duel.ChallengeItem, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		svc, errRes := s.session(request)
		if errRes != nil {
			return errRes, nil
		}
		id, err := request.RequireString("challenge_id")
		if err != nil {
			return toolError("invalid_request", err.Error()), nil
		}
		item, svcErr := fn(ctx, svc, id)
		if svcErr != nil {
			return mapDomainError(svcErr), nil
		}
		return toolResult(item), nil
	}
}

func (s *Server) handleCreateChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	item, svcErr := svc.CreateChallenge(ctx, target, request.GetString("target_name", ""), request.GetString("mode", ""))
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(item), nil
}

func (s *Server) handleListChallenges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	resp, err := svc.ListChallenges(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleDismissChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	id, err := request.RequireString("challenge_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if err := svc.Dismiss(ctx, id); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true, "challenge_id": id}), nil
}

func (s *Server) handleMarkReady(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ready := request.GetBool("ready", true)
	return s.challengeAction(func(ctx context.Context, svc *duel.Service, id string) (*duel.ChallengeItem, error) {
		return svc.MarkReady(ctx, id, ready)
	})(ctx, request)
}
