package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for lexrag resources.
	uriScheme = "lexrag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "modes",
		Name:        "modes",
		Description: "Chat modes and whether they use retrieval",
		MIMEType:    "application/json",
	}, s.handleModesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "modes/{name}",
		Name:        "mode",
		Description: "Description and settings of a single chat mode",
		MIMEType:    "application/json",
	}, s.handleModeResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "Embedding model, dimensions and size of the vector index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)
}

type modeInfo struct {
	Name              string `json:"name"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	RequiresRetrieval bool   `json:"requires_retrieval"`
	Primer            bool   `json:"primer"`
}

func toModeInfo(m domain.ModeConfig) modeInfo {
	return modeInfo{
		Name:              m.Name,
		Title:             m.Title,
		Description:       m.Description,
		RequiresRetrieval: m.RequiresRetrieval,
		Primer:            m.HasPrimer(),
	}
}

// handleModesResource lists the chat modes.
func (s *Server) handleModesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Chat == nil {
		return jsonResult(req.Params.URI, []modeInfo{})
	}

	modes := s.ports.Chat.Modes()
	infos := make([]modeInfo, len(modes))
	for i, m := range modes {
		infos[i] = toModeInfo(m)
	}
	return jsonResult(req.Params.URI, infos)
}

// handleModeResource describes one mode.
func (s *Server) handleModeResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Chat == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	name := extractModeName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	mode, err := s.ports.Chat.Mode(name)
	if errors.Is(err, domain.ErrUnknownMode) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("loading mode: %w", err)
	}
	return jsonResult(req.Params.URI, toModeInfo(mode))
}

// handleIndexResource describes the vector index.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info, err := s.ports.Index.Info(ctx)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index info: %w", err)
	}

	return jsonResult(req.Params.URI, struct {
		Model      string `json:"model"`
		Dimensions int    `json:"dimensions"`
		Metric     string `json:"metric"`
		Entries    int    `json:"entries"`
	}{info.Model, info.Dimensions, info.Metric, info.Entries})
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractModeName extracts the mode from a URI like lexrag://modes/{name}.
func extractModeName(uri string) string {
	const prefix = uriScheme + "modes/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
