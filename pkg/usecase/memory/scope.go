package memory

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed policy/scope.rego
var defaultScopePolicy string

const scopeQuery = "data.mnemo.scope.allow"

// ScopeGuard decides whether memory tools may run in a given channel context.
// The policy is Rego: the built-in default allows only direct conversations,
// and a policy file may replace it.
type ScopeGuard struct {
	query rego.PreparedEvalQuery
}

// NewScopeGuard prepares the scope policy. An empty path uses the built-in
// policy.
func NewScopeGuard(ctx context.Context, policyPath string) (*ScopeGuard, error) {
	source := defaultScopePolicy
	name := "scope.rego"

	if policyPath != "" {
		data, err := os.ReadFile(policyPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read scope policy", goerr.V("path", policyPath))
		}
		source = string(data)
		name = policyPath
	}

	prepared, err := rego.New(
		rego.Query(scopeQuery),
		rego.Module(name, source),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare scope policy")
	}

	return &ScopeGuard{query: prepared}, nil
}

// Allowed reports whether memory tools may run in the given channel.
// Policy evaluation failure is treated as a denial.
func (g *ScopeGuard) Allowed(ctx context.Context, channel model.ChannelContext) bool {
	input := map[string]any{
		"channel": map[string]any{
			"kind":         string(channel.Kind),
			"id":           channel.ID,
			"participants": channel.Participants,
		},
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		logging.From(ctx).Warn("scope policy evaluation failed, denying", "error", err)
		return false
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	return ok && allowed
}

// DenialMessage returns the fixed denial text for a memory tool. The message
// is part of the tool contract and must stay stable per tool.
func DenialMessage(toolName string) string {
	switch toolName {
	case "save_memory":
		return "The save_memory tool is disabled in shared channels. Agent memory is private and cannot be written from a group conversation."
	case "recall_memory":
		return "The recall_memory tool is disabled in shared channels. Agent memory is private and cannot be read from a group conversation."
	default:
		return fmt.Sprintf("The %s tool is disabled in shared channels.", toolName)
	}
}
