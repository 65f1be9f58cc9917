// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/validator"
)

// MetadataEnforceLegalDisclaimer describes the enforce_legal_disclaimer tool.
var MetadataEnforceLegalDisclaimer = &mcp.Tool{
	Name: "enforce_legal_disclaimer",
	Description: "Append the legal disclaimer to an answer unless it already has one. When a coherence " +
		"score below 0.70 is given, also append the confidence index. Calling it twice never " +
		"duplicates the disclaimer.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"output"},
		"properties": map[string]interface{}{
			"output": map[string]interface{}{
				"type":        "string",
				"description": "The answer to deliver",
			},
			"score": map[string]interface{}{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Coherence score from validate_legal_output, if the answer was validated",
			},
		},
	},
}

// InputEnforceLegalDisclaimer is the input for the EnforceLegalDisclaimer tool.
type InputEnforceLegalDisclaimer struct {
	Output string   `json:"output"`
	Score  *float64 `json:"score,omitempty"`
}

// OutputEnforceLegalDisclaimer is the output for the EnforceLegalDisclaimer tool.
type OutputEnforceLegalDisclaimer struct {
	Output string `json:"output"`
	// Source is existing, provider or fallback.
	Source string `json:"source"`
}

// EnforceLegalDisclaimer appends the disclaimer.
func (t *Toolset) EnforceLegalDisclaimer(ctx context.Context, _ *mcp.CallToolRequest, input InputEnforceLegalDisclaimer) (*mcp.CallToolResult, OutputEnforceLegalDisclaimer, error) {
	if input.Output == "" {
		return nil, OutputEnforceLegalDisclaimer{}, fmt.Errorf("output is required")
	}

	var res *validator.Result
	if input.Score != nil {
		res = &validator.Result{Score: *input.Score}
	}
	out, src := t.enforcer.EnforceWithSource(ctx, input.Output, res)
	t.metrics.RecordDisclaimer(string(src))
	return nil, OutputEnforceLegalDisclaimer{Output: out, Source: string(src)}, nil
}
