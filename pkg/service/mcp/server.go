// Package mcp serves the memory tools over the Model Context Protocol so any
// MCP-capable agent runtime can use them.
package mcp

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes save_memory and recall_memory over MCP stdio
type Server struct {
	uc      *memory.UseCase
	guard   *memory.ScopeGuard
	agentID model.AgentID
	channel model.ChannelContext
}

type Option func(*Server)

// WithChannel overrides the channel context reported for tool calls. The
// default is a direct channel, which fits a stdio transport owned by a single
// agent runtime.
func WithChannel(channel model.ChannelContext) Option {
	return func(s *Server) {
		s.channel = channel
	}
}

// New creates the MCP server surface
func New(uc *memory.UseCase, guard *memory.ScopeGuard, agentID model.AgentID, opts ...Option) *Server {
	s := &Server{
		uc:      uc,
		guard:   guard,
		agentID: agentID,
		channel: model.ChannelContext{Kind: model.ChannelDirect},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type saveMemoryParams struct {
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	Target   string `json:"target,omitempty"`
}

type recallMemoryParams struct {
	Query    string `json:"query,omitempty"`
	Date     string `json:"date,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	MaxChars int    `json:"max_chars,omitempty"`
}

// Run serves both tools on stdio until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mnemo",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_memory",
		Description: "Save an observation or fact to the agent's durable memory",
		InputSchema: saveMemorySchema(),
	}, s.saveMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_memory",
		Description: "Retrieve from the agent's durable memory by meaning (query) or by calendar date (date)",
		InputSchema: recallMemorySchema(),
	}, s.recallMemory)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) saveMemory(ctx context.Context, _ *mcp.CallToolRequest, params *saveMemoryParams) (*mcp.CallToolResult, any, error) {
	if !s.guard.Allowed(ctx, s.channel) {
		return textResult(memory.DenialMessage("save_memory")), nil, nil
	}

	result, err := s.uc.Save(ctx, memory.SaveInput{
		AgentID:  s.agentID,
		Content:  params.Content,
		Category: params.Category,
		Target:   memory.Target(params.Target),
	})
	if err != nil {
		if errors.Is(err, memory.ErrCoreMemoryNotFound) || errors.Is(err, memory.ErrInvalidTarget) {
			return textResult(err.Error()), nil, nil
		}
		return nil, nil, err
	}

	return textResult(result), nil, nil
}

func (s *Server) recallMemory(ctx context.Context, _ *mcp.CallToolRequest, params *recallMemoryParams) (*mcp.CallToolResult, any, error) {
	if !s.guard.Allowed(ctx, s.channel) {
		return textResult(memory.DenialMessage("recall_memory")), nil, nil
	}

	result, err := s.uc.Recall(ctx, memory.RecallInput{
		AgentID:  s.agentID,
		Query:    params.Query,
		Date:     params.Date,
		Limit:    params.Limit,
		MaxChars: params.MaxChars,
	})
	if err != nil {
		if errors.Is(err, memory.ErrQueryOrDateRequired) ||
			errors.Is(err, memory.ErrQueryAndDateGiven) ||
			errors.Is(err, model.ErrInvalidDate) {
			return textResult(err.Error()), nil, nil
		}
		return nil, nil, err
	}

	return textResult(result), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func saveMemorySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"content": {
				Type:        "string",
				Description: "The text to remember",
			},
			"category": {
				Type:        "string",
				Description: `Category tag for the entry (default: "general")`,
			},
			"target": {
				Type:        "string",
				Description: `Where to save: "log" or "core" (default: "log")`,
				Enum:        []any{"log", "core"},
			},
		},
		Required: []string{"content"},
	}
}

func recallMemorySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Natural language query for semantic search",
			},
			"date": {
				Type:        "string",
				Description: "Calendar date in YYYY-MM-DD format",
			},
			"limit": {
				Type:        "integer",
				Description: "Max search results (default: 6)",
			},
			"max_chars": {
				Type:        "integer",
				Description: "Max output characters (default: 4000)",
			},
		},
	}
}
