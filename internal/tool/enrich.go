// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/normgraph"
	"github.com/jaraba/lcis/internal/retrieval"
)

// MetadataEnrichLegalRetrieval describes the enrich_legal_retrieval tool.
var MetadataEnrichLegalRetrieval = &mcp.Tool{
	Name: "enrich_legal_retrieval",
	Description: "Rank retrieved legal documents by normative authority. Repealed and annulled norms are " +
		"dropped, each document gets its hierarchy weight and a recency bonus, and the list is " +
		"re-sorted by a blended score. Returns the ranked documents and the annotation text to " +
		"append to the system prompt.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"documents"},
		"properties": map[string]interface{}{
			"documents": map[string]interface{}{
				"type": "string",
				"description": "Retrieval hits as YAML or JSON: a list, or an object with a \"results\" or \"hits\" list. " +
					"Each hit has a score and a payload (title, status_legal, publication_date, norm_type, autonomous_community, subject).",
			},
			"territory": map[string]interface{}{
				"type":        "string",
				"description": "Autonomous community of the user, used for territory warnings and the competence bonus",
			},
			"query_date": map[string]interface{}{
				"type":        "string",
				"description": "Reference date for recency (YYYY-MM-DD). Defaults to today.",
			},
			"subject_areas": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Legal areas of the query, e.g. vivienda, laboral",
			},
		},
	},
}

// InputEnrichLegalRetrieval is the input for the EnrichLegalRetrieval tool.
type InputEnrichLegalRetrieval struct {
	Documents    string   `json:"documents"`
	Territory    string   `json:"territory"`
	QueryDate    string   `json:"query_date"`
	SubjectAreas []string `json:"subject_areas"`
}

// RankedDocument is one enriched document as reported by the tool.
type RankedDocument struct {
	Title             string         `json:"title"`
	NormType          string         `json:"norm_type"`
	SemanticScore     float64        `json:"semantic_score"`
	AuthorityWeight   float64        `json:"authority_weight"`
	RecencyBonus      float64        `json:"recency_bonus"`
	FinalScore        float64        `json:"final_score"`
	DerogationWarning string         `json:"derogation_warning,omitempty"`
	TerritoryWarning  string         `json:"territory_warning,omitempty"`
	Payload           map[string]any `json:"payload"`
}

// OutputEnrichLegalRetrieval is the output for the EnrichLegalRetrieval tool.
type OutputEnrichLegalRetrieval struct {
	Documents   []RankedDocument `json:"documents"`
	Kept        int              `json:"kept"`
	Dropped     int              `json:"dropped"`
	Flagged     int              `json:"flagged"`
	Annotations string           `json:"annotations"`
}

// EnrichLegalRetrieval ranks the given hits.
func (t *Toolset) EnrichLegalRetrieval(_ context.Context, _ *mcp.CallToolRequest, input InputEnrichLegalRetrieval) (*mcp.CallToolResult, OutputEnrichLegalRetrieval, error) {
	if input.Documents == "" {
		return nil, OutputEnrichLegalRetrieval{}, fmt.Errorf("documents is required")
	}
	docs, err := retrieval.Load([]byte(input.Documents))
	if err != nil {
		return nil, OutputEnrichLegalRetrieval{}, err
	}

	ctx := normgraph.Context{Territory: input.Territory, SubjectAreas: input.SubjectAreas}
	if input.QueryDate != "" {
		d, err := time.Parse(time.DateOnly, input.QueryDate)
		if err != nil {
			return nil, OutputEnrichLegalRetrieval{}, fmt.Errorf("invalid query_date %q: %w", input.QueryDate, err)
		}
		ctx.QueryDate = d
	}

	enriched, stats := t.enricher.EnrichWithStats(docs, ctx)
	t.metrics.RecordEnrichment(stats.Kept, stats.Dropped, stats.Flagged)

	out := OutputEnrichLegalRetrieval{
		Documents:   make([]RankedDocument, 0, len(enriched)),
		Kept:        stats.Kept,
		Dropped:     stats.Dropped,
		Flagged:     stats.Flagged,
		Annotations: normgraph.PromptAnnotations(enriched),
	}
	for _, e := range enriched {
		out.Documents = append(out.Documents, RankedDocument{
			Title:             e.Title(),
			NormType:          string(e.NormTypeDetected),
			SemanticScore:     e.Score,
			AuthorityWeight:   e.AuthorityWeight,
			RecencyBonus:      e.RecencyBonus,
			FinalScore:        e.FinalScore,
			DerogationWarning: e.DerogationWarning,
			TerritoryWarning:  e.TerritoryWarning,
			Payload:           e.Payload,
		})
	}
	return nil, out, nil
}
