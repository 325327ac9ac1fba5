package tool

import (
	"context"

	"google.golang.org/genai"
)

// Tool represents a function the agent runtime can call through the LLM
type Tool interface {
	// Spec returns the tool specification for Gemini function calling
	Spec() *genai.Tool

	// Execute runs the tool and returns the response. Expected outcomes such
	// as validation failures come back as response text, not as errors.
	Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error)
}
