// SPDX-License-Identifier: Apache-2.0

package normgraph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/normgraph"
	"github.com/jaraba/lcis/internal/retrieval"
)

var queryDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func doc(score float64, payload map[string]any) retrieval.Document {
	return retrieval.Document{Score: score, Payload: payload}
}

func newEnricher() *normgraph.Enricher {
	return normgraph.New(nil, normgraph.Options{Now: func() time.Time { return queryDate }})
}

// ---------------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------------

func TestEnrich_FinalScoreFormula(t *testing.T) {
	out := newEnricher().Enrich([]retrieval.Document{
		doc(1.0, map[string]any{
			"title":            "Constitución Española",
			"norm_type":        "constitucion",
			"status_legal":     "vigente",
			"publication_date": "2025-01-10",
		}),
	}, normgraph.Context{})

	require.Len(t, out, 1)
	assert.Equal(t, knowledge.RankConstitution, out[0].NormTypeDetected)
	assert.Equal(t, 0.98, out[0].AuthorityWeight)
	assert.Equal(t, 1.0, out[0].RecencyBonus)
	assert.Equal(t, 0.994, out[0].FinalScore)
}

func TestEnrich_DetectsRankFromTitle(t *testing.T) {
	out := newEnricher().Enrich([]retrieval.Document{
		doc(0.5, map[string]any{"title": "Real Decreto 123/2024, de 6 de febrero"}),
		doc(0.5, map[string]any{"title": "Apuntes de clase"}),
	}, normgraph.Context{})

	require.Len(t, out, 2)
	assert.Equal(t, knowledge.RankStateRegulation, out[0].NormTypeDetected)
	assert.Equal(t, 0.78, out[0].AuthorityWeight)
	assert.Equal(t, knowledge.NormRank(""), out[1].NormTypeDetected)
	assert.Equal(t, knowledge.DefaultWeight, out[1].AuthorityWeight)
	assert.Equal(t, normgraph.MissingDateRecency, out[1].RecencyBonus)
}

func TestEnrich_SortsDescending(t *testing.T) {
	out := newEnricher().Enrich([]retrieval.Document{
		doc(0.9, map[string]any{"title": "Ordenanza municipal de terrazas"}),
		doc(0.9, map[string]any{"title": "Reglamento (UE) 2016/679"}),
		doc(0.2, map[string]any{"title": "Ley 39/2015"}),
	}, normgraph.Context{})

	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].FinalScore, out[i].FinalScore)
	}
	assert.Equal(t, "Reglamento (UE) 2016/679", out[0].Title())
}

func TestRecency(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		pub  time.Time
		want float64
	}{
		{"future", ref.AddDate(0, 3, 0), 1.0},
		{"six months", ref.AddDate(0, -6, 0), 1.0},
		{"eighteen months", ref.AddDate(0, -18, 0), 0.85},
		{"thirty months", ref.AddDate(0, -30, 0), 0.7},
		{"four years", ref.AddDate(-4, 0, 0), 0.5},
		{"exactly five years", ref.AddDate(-5, 0, 0), 0.3},
		{"twenty years", ref.AddDate(-20, 0, 0), 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normgraph.Recency(tt.pub, ref))
		})
	}
}

// ---------------------------------------------------------------------------
// Filtering and warnings
// ---------------------------------------------------------------------------

func TestEnrich_DerogationFilter(t *testing.T) {
	docs := []retrieval.Document{
		doc(0.9, map[string]any{"title": "Ley 30/1992", "status_legal": "derogada"}),
		doc(0.9, map[string]any{"title": "Ley 1/2000", "status_legal": "derogada_total"}),
		doc(0.9, map[string]any{"title": "Real Decreto 5/2010", "status_legal": "anulada"}),
		doc(0.8, map[string]any{"title": "Ley 39/2015", "status_legal": "derogada_parcial"}),
		doc(0.7, map[string]any{"title": "Ley 40/2015", "status_legal": "vigente"}),
	}

	out, stats := newEnricher().EnrichWithStats(docs, normgraph.Context{})
	require.Len(t, out, 2)
	assert.Equal(t, normgraph.Stats{Kept: 2, Dropped: 3, Flagged: 1}, stats)

	for _, d := range out {
		if d.Title() == "Ley 39/2015" {
			assert.NotEmpty(t, d.DerogationWarning)
		} else {
			assert.Empty(t, d.DerogationWarning)
		}
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	e := newEnricher()
	docs := []retrieval.Document{
		doc(0.9, map[string]any{"title": "Ley 30/1992", "status_legal": "derogada"}),
		doc(0.8, map[string]any{"title": "Ley 39/2015", "status_legal": "derogada_parcial"}),
		doc(0.6, map[string]any{"title": "Constitución Española", "status_legal": "vigente"}),
		doc(0.3, map[string]any{"title": "Ordenanza fiscal de basuras"}),
	}

	first := e.Enrich(docs, normgraph.Context{})
	second := e.Enrich(normgraph.Documents(first), normgraph.Context{})

	assert.Equal(t, first, second)
}

func TestEnrich_TerritoryWarning(t *testing.T) {
	out := newEnricher().Enrich([]retrieval.Document{
		doc(0.8, map[string]any{"title": "Ley 2/2023 de Andalucía", "autonomous_community": "Andalucía"}),
		doc(0.8, map[string]any{"title": "Ley 5/2022 de Madrid", "autonomous_community": "madrid"}),
	}, normgraph.Context{Territory: "Madrid"})

	require.Len(t, out, 2, "territory mismatch never excludes")
	byTitle := map[string]normgraph.EnrichedDocument{}
	for _, d := range out {
		byTitle[d.Title()] = d
	}
	assert.Contains(t, byTitle["Ley 2/2023 de Andalucía"].TerritoryWarning, "Andalucía")
	assert.Empty(t, byTitle["Ley 5/2022 de Madrid"].TerritoryWarning)
}

func TestEnrich_RegionalCompetenceBonus(t *testing.T) {
	e := newEnricher()
	hit := doc(0.5, map[string]any{"title": "Ley 13/2011 de Andalucía del turismo", "norm_type": "ley_autonomica"})

	plain := e.Enrich([]retrieval.Document{hit}, normgraph.Context{})
	bonus := e.Enrich([]retrieval.Document{hit}, normgraph.Context{SubjectAreas: []string{"turismo"}})
	other := e.Enrich([]retrieval.Document{hit}, normgraph.Context{SubjectAreas: []string{"penal"}})

	assert.Equal(t, 0.83, plain[0].AuthorityWeight)
	assert.InDelta(t, 0.95, bonus[0].AuthorityWeight, 1e-9)
	assert.Equal(t, 0.83, other[0].AuthorityWeight)

	state := e.Enrich([]retrieval.Document{doc(0.5, map[string]any{"title": "Ley 22/1988 de Costas"})},
		normgraph.Context{SubjectAreas: []string{"turismo"}})
	assert.Equal(t, 0.88, state[0].AuthorityWeight, "bonus is for regional norms only")
}

func TestEnrich_EmptyInput(t *testing.T) {
	out, stats := newEnricher().EnrichWithStats(nil, normgraph.Context{})
	assert.Empty(t, out)
	assert.Equal(t, normgraph.Stats{}, stats)
}

// ---------------------------------------------------------------------------
// Annotations
// ---------------------------------------------------------------------------

func TestPromptAnnotations(t *testing.T) {
	assert.Empty(t, normgraph.PromptAnnotations(nil))

	out := newEnricher().Enrich([]retrieval.Document{
		doc(0.8, map[string]any{"title": "Ley 39/2015", "status_legal": "derogada_parcial", "autonomous_community": "Galicia"}),
		doc(0.7, map[string]any{"title": "Ley 40/2015"}),
	}, normgraph.Context{Territory: "Madrid"})

	got := normgraph.PromptAnnotations(out)
	assert.Contains(t, got, "autoridad jerárquica")
	assert.Contains(t, got, "AVISO VIGENCIA «Ley 39/2015»")
	assert.Contains(t, got, "AVISO TERRITORIAL «Ley 39/2015»")
	assert.NotContains(t, got, "Ley 40/2015")
}
