package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// maxK caps how many chunks one tool call may request.
const maxK = 20

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or text to find passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 3)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Query   string        `json:"query"`
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is one retrieved passage.
type ChunkOutput struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message string `json:"message" jsonschema:"the question for the assistant"`
	Mode    string `json:"mode,omitempty" jsonschema:"chat mode, e.g. counsel or clerk (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Mode  string `json:"mode"`
	Reply string `json:"reply"`
	Pages []int  `json:"pages,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the indexed document passages most similar to a query, with page numbers",
	}, s.handleRetrieve)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Ask a one-off question to a lexrag chat mode",
		}, s.handleAsk)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, errors.New("query is required")
	}
	k := input.K
	if k > maxK {
		k = maxK
	}

	res, err := s.ports.Retriever.Retrieve(ctx, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Query:   input.Query,
		Results: make([]ChunkOutput, len(res.Hits)),
		Count:   len(res.Hits),
	}
	for i, hit := range res.Hits {
		output.Results[i] = ChunkOutput{
			ID:     hit.Chunk.ID,
			Source: hit.Chunk.Source,
			Page:   hit.Chunk.Page,
			Score:  hit.Score,
			Text:   hit.Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleAsk runs a single turn in a fresh session.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, AskOutput{}, errors.New("message is required")
	}

	session, err := s.ports.Chat.NewSession(input.Mode)
	if err != nil {
		return nil, AskOutput{}, err
	}
	res, err := s.ports.Chat.Turn(ctx, session, input.Message)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("ask %s: %w", session.Mode, err)
	}

	return nil, AskOutput{
		Mode:  session.Mode,
		Reply: res.Reply,
		Pages: pagesOf(res.Retrieved),
	}, nil
}

// pagesOf lists the distinct pages of a result in rank order.
func pagesOf(res domain.RetrievalResult) []int {
	var pages []int
	seen := make(map[int]bool)
	for _, hit := range res.Hits {
		if !seen[hit.Chunk.Page] {
			seen[hit.Chunk.Page] = true
			pages = append(pages, hit.Chunk.Page)
		}
	}
	return pages
}
