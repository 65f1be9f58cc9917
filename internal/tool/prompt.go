// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/promptrule"
)

// MetadataBuildCoherencePrompt describes the build_coherence_prompt tool.
var MetadataBuildCoherencePrompt = &mcp.Tool{
	Name: "build_coherence_prompt",
	Description: "Prepend the legal coherence rules (hierarchy, EU primacy, competences, organic law reserve, " +
		"non-retroactivity, vigencia, consistency, humility) to a system prompt. Light actions get the " +
		"short block. With a territory, adds the territorial rule and any foral civil law note. " +
		"Actions outside the legal allowlist get the prompt back unchanged unless force is set.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"base_prompt": map[string]interface{}{
				"type":        "string",
				"description": "The system prompt to extend",
			},
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Agent action, e.g. legal_search, legal_citations, faq",
			},
			"vertical": map[string]interface{}{
				"type":        "string",
				"description": "Product vertical, e.g. jarabalex",
			},
			"territory": map[string]interface{}{
				"type":        "string",
				"description": "Autonomous community of the user, e.g. Cataluña, Navarra",
			},
			"force": map[string]interface{}{
				"type":        "boolean",
				"description": "Apply the rules whatever the action",
			},
		},
	},
}

// InputBuildCoherencePrompt is the input for the BuildCoherencePrompt tool.
type InputBuildCoherencePrompt struct {
	BasePrompt string `json:"base_prompt"`
	Action     string `json:"action"`
	Vertical   string `json:"vertical"`
	Territory  string `json:"territory"`
	Force      bool   `json:"force"`
}

// OutputBuildCoherencePrompt is the output for the BuildCoherencePrompt tool.
type OutputBuildCoherencePrompt struct {
	SystemPrompt string `json:"system_prompt"`
	Applied      bool   `json:"applied"`
	Short        bool   `json:"short"`
}

// BuildCoherencePrompt renders the system prompt.
func (t *Toolset) BuildCoherencePrompt(_ context.Context, _ *mcp.CallToolRequest, input InputBuildCoherencePrompt) (*mcp.CallToolResult, OutputBuildCoherencePrompt, error) {
	if !input.Force && !promptrule.RequiresCoherence(input.Action, input.Vertical) {
		return nil, OutputBuildCoherencePrompt{SystemPrompt: input.BasePrompt}, nil
	}
	short := promptrule.UseShortVersion(input.Action)
	return nil, OutputBuildCoherencePrompt{
		SystemPrompt: t.prompts.ApplyWithTerritory(input.BasePrompt, input.Territory, short),
		Applied:      true,
		Short:        short,
	}, nil
}
