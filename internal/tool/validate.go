// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/validator"
)

// MetadataValidateLegalOutput describes the validate_legal_output tool.
var MetadataValidateLegalOutput = &mcp.Tool{
	Name: "validate_legal_output",
	Description: "Check a generated legal answer for hierarchy inversions, EU primacy and competence errors, " +
		"organic law reserve breaches, retroactivity, missing vigencia, internal contradictions, " +
		"unresolved antinomies and unchallenged false premises. Returns a score in [0,1] and an action: " +
		"allow, warn, regenerate (retry with the returned constraints, passing retry_count+1) or block " +
		"(deliver sanitized_output instead).",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"output"},
		"properties": map[string]interface{}{
			"output": map[string]interface{}{
				"type":        "string",
				"description": "The LLM answer to validate",
			},
			"user_query": map[string]interface{}{
				"type":        "string",
				"description": "The user query, used to detect false premises",
			},
			"retry_count": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "How many times this answer has been regenerated already",
			},
			"agent_id": map[string]interface{}{
				"type":        "string",
				"description": "Calling agent, for logs",
			},
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Agent action, for logs",
			},
		},
	},
}

// InputValidateLegalOutput is the input for the ValidateLegalOutput tool.
type InputValidateLegalOutput struct {
	Output     string `json:"output"`
	UserQuery  string `json:"user_query"`
	RetryCount int    `json:"retry_count"`
	AgentID    string `json:"agent_id"`
	Action     string `json:"action"`
}

// OutputValidateLegalOutput is the output for the ValidateLegalOutput tool.
type OutputValidateLegalOutput struct {
	Result validator.Result `json:"result"`
	// Notice is the advisory to show next to a warned answer.
	Notice string `json:"notice,omitempty"`
}

// ValidateLegalOutput runs the validator.
func (t *Toolset) ValidateLegalOutput(_ context.Context, _ *mcp.CallToolRequest, input InputValidateLegalOutput) (*mcp.CallToolResult, OutputValidateLegalOutput, error) {
	if input.Output == "" {
		return nil, OutputValidateLegalOutput{}, fmt.Errorf("output is required")
	}

	res := t.validator.Validate(input.Output, validator.Context{
		UserQuery:  input.UserQuery,
		RetryCount: input.RetryCount,
		AgentID:    input.AgentID,
		Action:     input.Action,
	})
	t.metrics.RecordValidation(string(res.Action), res.Score, res.FindingTypes())

	out := OutputValidateLegalOutput{Result: res}
	if res.Action == validator.ActionWarn {
		out.Notice = validator.WarningNotice(res)
	}
	return nil, out, nil
}
