// Package mcpserver exposes a node's local players to MCP clients. Every tool
// is keyed by local_user; the session must be opened first.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"matchmesh/internal/app/duel"
)

type Server struct {
	registry *duel.Registry

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(reg *duel.Registry) *Server {
	mcpSrv := server.NewMCPServer(
		"matchmesh",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		registry:   reg,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerSessionTools()
	s.registerChallengeTools()
	s.registerWagerTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

const challengeURIPrefix = "challenge://"

func (s *Server) registerResources() {
	tmpl := mcp.NewResourceTemplate(
		challengeURIPrefix+"{local_user}/{challenge_id}",
		"challenge",
		mcp.WithTemplateDescription("A challenge as seen by one local player"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.mcpServer.AddResourceTemplate(tmpl, s.readChallenge)
}

// parseChallengeURI splits challenge://<local_user>/<challenge_id>.
func parseChallengeURI(uri string) (localUser int, id string, err error) {
	rest, ok := strings.CutPrefix(uri, challengeURIPrefix)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q is not a challenge uri", duel.ErrInvalidRequest, uri)
	}
	user, id, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("%w: %q has no challenge id", duel.ErrInvalidRequest, uri)
	}
	localUser, err = strconv.Atoi(user)
	if err != nil {
		return 0, "", fmt.Errorf("%w: local user %q", duel.ErrInvalidRequest, user)
	}
	return localUser, id, nil
}

func (s *Server) readChallenge(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	localUser, id, err := parseChallengeURI(uri)
	if err != nil {
		return nil, err
	}
	svc, err := s.registry.Get(localUser)
	if err != nil {
		return nil, err
	}
	item, err := svc.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(payload),
	}}, nil
}

// session resolves the local_user argument to its open session.
func (s *Server) session(request mcp.CallToolRequest) (*duel.Service, *mcp.CallToolResult) {
	localUser, err := localUserFrom(request)
	if err != nil {
		return nil, toolError("invalid_request", err.Error())
	}
	svc, err := s.registry.Get(localUser)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return svc, nil
}
