// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/intent"
	"github.com/jaraba/lcis/internal/promptrule"
)

// MetadataClassifyLegalIntent describes the classify_legal_intent tool.
var MetadataClassifyLegalIntent = &mcp.Tool{
	Name: "classify_legal_intent",
	Description: "Classify a user query by legal intent (LEGAL_DIRECT, LEGAL_IMPLICIT, LEGAL_REFERENCE, " +
		"COMPLIANCE_CHECK or NON_LEGAL) and report which coherence stages the answer needs. " +
		"A legal action or the jarabalex vertical forces LEGAL_DIRECT.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"query"},
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The user query, in Spanish",
			},
			"vertical": map[string]interface{}{
				"type":        "string",
				"description": "Product vertical the query comes from, e.g. jarabalex, empleabilidad, emprendimiento",
			},
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Agent action being performed, e.g. legal_search, faq, chat",
			},
		},
	},
}

// InputClassifyLegalIntent is the input for the ClassifyLegalIntent tool.
type InputClassifyLegalIntent struct {
	Query    string `json:"query"`
	Vertical string `json:"vertical"`
	Action   string `json:"action"`
}

// OutputClassifyLegalIntent is the output for the ClassifyLegalIntent tool.
type OutputClassifyLegalIntent struct {
	Classification intent.Classification `json:"classification"`
	// FullPipeline is true when the answer must be validated before delivery.
	FullPipeline bool `json:"full_pipeline"`
	// Disclaimer is true when the answer needs a legal disclaimer.
	Disclaimer bool `json:"disclaimer"`
	// LightPipeline is true when the short rule block is enough.
	LightPipeline bool `json:"light_pipeline"`
	// CoherenceRules is true when the system prompt should carry the rules.
	CoherenceRules bool `json:"coherence_rules"`
}

// ClassifyLegalIntent classifies the query.
func (t *Toolset) ClassifyLegalIntent(_ context.Context, _ *mcp.CallToolRequest, input InputClassifyLegalIntent) (*mcp.CallToolResult, OutputClassifyLegalIntent, error) {
	if strings.TrimSpace(input.Query) == "" && input.Action == "" && input.Vertical == "" {
		return nil, OutputClassifyLegalIntent{}, fmt.Errorf("query is required")
	}

	c := t.classifier.Classify(input.Query, input.Vertical, input.Action)
	t.metrics.RecordIntent(c.Intent.String())
	return nil, OutputClassifyLegalIntent{
		Classification: c,
		FullPipeline:   c.RequiresFullPipeline(),
		Disclaimer:     c.RequiresDisclaimer(),
		LightPipeline:  c.IsLightPipeline(),
		CoherenceRules: c.RequiresFullPipeline() || promptrule.RequiresCoherence(input.Action, input.Vertical),
	}, nil
}
