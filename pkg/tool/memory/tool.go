// Package memory exposes save_memory and recall_memory as agent tools. The
// scope guard runs before any read or write, and every expected outcome is
// returned as response text so errors never cross the tool boundary.
package memory

import (
	"context"
	"errors"

	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"google.golang.org/genai"
)

// ChannelFunc supplies the conversational context of the current call
type ChannelFunc func(ctx context.Context) model.ChannelContext

// Memory is the memory tool pair bound to one agent
type Memory struct {
	uc      *memory.UseCase
	guard   *memory.ScopeGuard
	agentID model.AgentID
	channel ChannelFunc
}

// New creates the memory tool
func New(uc *memory.UseCase, guard *memory.ScopeGuard, agentID model.AgentID, channel ChannelFunc) *Memory {
	return &Memory{
		uc:      uc,
		guard:   guard,
		agentID: agentID,
		channel: channel,
	}
}

// Spec returns the function declarations for both memory tools
func (m *Memory) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "save_memory",
				Description: "Save an observation or fact to the agent's durable memory. Use target=log for day-to-day notes and target=core for lasting self-knowledge.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"content": {
							Type:        genai.TypeString,
							Description: "The text to remember",
						},
						"category": {
							Type:        genai.TypeString,
							Description: `Category tag for the entry (default: "general")`,
						},
						"target": {
							Type:        genai.TypeString,
							Description: `Where to save: "log" appends to today's daily log, "core" appends to the curated core memory (default: "log")`,
							Enum:        []string{"log", "core"},
						},
					},
					Required: []string{"content"},
				},
			},
			{
				Name:        "recall_memory",
				Description: "Retrieve from the agent's durable memory, either by meaning (query) or by calendar date (date). Pass exactly one of query or date.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "Natural language query for semantic search over saved memories",
						},
						"date": {
							Type:        genai.TypeString,
							Description: "Calendar date in YYYY-MM-DD format to read that day's memory log",
						},
						"limit": {
							Type:        genai.TypeInteger,
							Description: "Max search results (default: 6)",
						},
						"max_chars": {
							Type:        genai.TypeInteger,
							Description: "Max output characters (default: 4000)",
						},
					},
				},
			},
		},
	}
}

// Execute dispatches a function call to save or recall
func (m *Memory) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	if !m.guard.Allowed(ctx, m.channel(ctx)) {
		return response(fc.Name, memory.DenialMessage(fc.Name)), nil
	}

	switch fc.Name {
	case "save_memory":
		return m.save(ctx, fc)
	case "recall_memory":
		return m.recall(ctx, fc)
	default:
		return response(fc.Name, "unknown memory function: "+fc.Name), nil
	}
}

func (m *Memory) save(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	content, ok := stringArg(fc.Args, "content")
	if !ok {
		return response(fc.Name, "content is required"), nil
	}
	category, _ := stringArg(fc.Args, "category")
	target, _ := stringArg(fc.Args, "target")

	result, err := m.uc.Save(ctx, memory.SaveInput{
		AgentID:  m.agentID,
		Content:  content,
		Category: category,
		Target:   memory.Target(target),
	})
	if err != nil {
		if errors.Is(err, memory.ErrCoreMemoryNotFound) || errors.Is(err, memory.ErrInvalidTarget) {
			return response(fc.Name, err.Error()), nil
		}
		return nil, err
	}

	return response(fc.Name, result), nil
}

func (m *Memory) recall(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	query, _ := stringArg(fc.Args, "query")
	date, _ := stringArg(fc.Args, "date")
	limit := intArg(fc.Args, "limit")
	maxChars := intArg(fc.Args, "max_chars")

	result, err := m.uc.Recall(ctx, memory.RecallInput{
		AgentID:  m.agentID,
		Query:    query,
		Date:     date,
		Limit:    limit,
		MaxChars: maxChars,
	})
	if err != nil {
		if errors.Is(err, memory.ErrQueryOrDateRequired) ||
			errors.Is(err, memory.ErrQueryAndDateGiven) ||
			errors.Is(err, model.ErrInvalidDate) {
			return response(fc.Name, err.Error()), nil
		}
		return nil, err
	}

	return response(fc.Name, result), nil
}

func response(name, text string) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		Name:     name,
		Response: map[string]any{"result": text},
	}
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg tolerates the float64 numbers JSON decoding produces
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
