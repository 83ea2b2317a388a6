package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSessionTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"open_session",
			mcp.WithDescription("Bind a local player to this node. Idempotent per local_user."),
			localUserArg,
			mcp.WithString("display_name", mcp.Required(), mcp.Description("Name shown to other players")),
			mcp.WithNumber("cash", mcp.Required(), mcp.Description("Cash this player can stake")),
			mcp.WithNumber("rep", mcp.Required(), mcp.Description("Reputation this player can stake")),
		),
		s.handleOpenSession,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("set_presence", mcp.WithDescription("Announce the player as online"), localUserArg),
		s.handleSetPresence,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("clear_presence", mcp.WithDescription("Remove the player's presence entry"), localUserArg),
		s.handleClearPresence,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("list_online_players", mcp.WithDescription("Players seen within the presence TTL"), localUserArg),
		s.handleListOnlinePlayers,
	)
	s.mcpServer.AddTool(
		mcp.NewTool(
			"is_player_online",
			mcp.WithDescription("Whether a player has a fresh presence entry"),
			localUserArg,
			mcp.WithString("global_id", mcp.Required(), mcp.Description("Player global id, <node>_<user>")),
		),
		s.handleIsPlayerOnline,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("cycle", mcp.WithDescription("Run one poll cycle and return what changed"), localUserArg),
		s.handleCycle,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("disconnect", mcp.WithDescription("Clear presence and close the session"), localUserArg),
		s.handleDisconnect,
	)
}

func (s *Server) handleOpenSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	localUser, err := localUserFrom(request)
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	name, err := request.RequireString("display_name")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	stakes, err := stakesArgs(request, "cash", "rep")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	svc, svcErr := s.registry.Open(localUser, name, stakes)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(svc.Info()), nil
}

func (s *Server) handleSetPresence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	if err := svc.SetPresence(ctx); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true, "global_id": string(svc.GlobalID())}), nil
}

func (s *Server) handleClearPresence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	if err := svc.ClearPresence(ctx); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true}), nil
}

func (s *Server) handleListOnlinePlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	resp, err := svc.OnlinePlayers(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleIsPlayerOnline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	globalID, err := request.RequireString("global_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	online, svcErr := svc.IsPlayerOnline(ctx, globalID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{"global_id": globalID, "online": online}), nil
}

func (s *Server) handleCycle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := s.session(request)
	if errRes != nil {
		return errRes, nil
	}
	resp, err := svc.Cycle(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	localUser, err := localUserFrom(request)
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if err := s.registry.Close(ctx, localUser); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true}), nil
}
