// SPDX-License-Identifier: Apache-2.0

// Package normgraph re-ranks retrieval hits by normative authority, vigencia
// and recency before they are assembled into a prompt.
package normgraph

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/retrieval"
	"github.com/jaraba/lcis/internal/textfold"
)

// Weights blends the three signals into the final score.
type Weights struct {
	Semantic  float64 `json:"semantic" yaml:"semantic"`
	Authority float64 `json:"authority" yaml:"authority"`
	Recency   float64 `json:"recency" yaml:"recency"`
}

var DefaultWeights = Weights{Semantic: 0.55, Authority: 0.30, Recency: 0.15}

const (
	DefaultCompetenceBonus = 0.12
	// MissingDateRecency is the recency of a document without a usable date.
	MissingDateRecency = 0.3
)

// Options configures an Enricher. Zero fields take the defaults.
type Options struct {
	Weights         Weights
	CompetenceBonus float64
	Now             func() time.Time
}

// Context narrows enrichment to the user's situation. All fields are optional.
type Context struct {
	Territory    string    `json:"territory,omitempty"`
	QueryDate    time.Time `json:"query_date,omitempty"`
	SubjectAreas []string  `json:"subject_areas,omitempty"`
}

// EnrichedDocument is a retrieval hit with its authority metadata.
type EnrichedDocument struct {
	retrieval.Document
	NormTypeDetected  knowledge.NormRank `json:"norm_type_detected" yaml:"norm_type_detected"`
	AuthorityWeight   float64            `json:"authority_weight" yaml:"authority_weight"`
	RecencyBonus      float64            `json:"recency_bonus" yaml:"recency_bonus"`
	FinalScore        float64            `json:"final_score" yaml:"final_score"`
	DerogationWarning string             `json:"derogation_warning,omitempty" yaml:"derogation_warning,omitempty"`
	TerritoryWarning  string             `json:"territory_warning,omitempty" yaml:"territory_warning,omitempty"`
}

// Stats counts what enrichment did to the input.
type Stats struct {
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
	Flagged int `json:"flagged"`
}

// Enricher attaches authority metadata to retrieval hits. It holds no
// per-call state.
type Enricher struct {
	kb   *knowledge.Base
	opts Options
}

// New returns an Enricher over kb, the default knowledge base if nil.
func New(kb *knowledge.Base, opts Options) *Enricher {
	if kb == nil {
		kb = knowledge.Default()
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights
	}
	if opts.CompetenceBonus <= 0 {
		opts.CompetenceBonus = DefaultCompetenceBonus
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Enricher{kb: kb, opts: opts}
}

// Enrich drops repealed and annulled documents, scores the rest and sorts
// them by final score, highest first.
func (e *Enricher) Enrich(docs []retrieval.Document, ctx Context) []EnrichedDocument {
	out, _ := e.EnrichWithStats(docs, ctx)
	return out
}

// EnrichWithStats is Enrich reporting counts for observability.
func (e *Enricher) EnrichWithStats(docs []retrieval.Document, ctx Context) ([]EnrichedDocument, Stats) {
	var stats Stats
	ref := ctx.QueryDate
	if ref.IsZero() {
		ref = e.opts.Now()
	}
	areaComp, hasArea := e.areaCompetence(ctx.SubjectAreas)

	out := make([]EnrichedDocument, 0, len(docs))
	for _, doc := range docs {
		status := doc.StatusLegal()
		switch status {
		case retrieval.StatusRepealed, retrieval.StatusRepealedTotal, retrieval.StatusAnnulled:
			stats.Dropped++
			continue
		}

		ed := EnrichedDocument{Document: doc}
		ed.NormTypeDetected = e.detectRank(doc)

		ed.AuthorityWeight = e.kb.HierarchyWeight(ed.NormTypeDetected)
		if hasArea && ed.NormTypeDetected.IsRegional() && e.aligned(doc, areaComp) {
			ed.AuthorityWeight = math.Min(1.0, ed.AuthorityWeight+e.opts.CompetenceBonus)
		}

		ed.RecencyBonus = MissingDateRecency
		if pub, ok := doc.PublicationDate(); ok {
			ed.RecencyBonus = Recency(pub, ref)
		}

		if status == retrieval.StatusRepealedPartially {
			ed.DerogationWarning = "Norma derogada parcialmente: verifique la vigencia de los preceptos citados."
		}
		if w := territoryWarning(doc.AutonomousCommunity(), ctx.Territory); w != "" {
			ed.TerritoryWarning = w
		}

		w := e.opts.Weights
		ed.FinalScore = round4(w.Semantic*doc.Score + w.Authority*ed.AuthorityWeight + w.Recency*ed.RecencyBonus)

		if ed.DerogationWarning != "" || ed.TerritoryWarning != "" {
			stats.Flagged++
		}
		out = append(out, ed)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	stats.Kept = len(out)
	return out, stats
}

func (e *Enricher) detectRank(doc retrieval.Document) knowledge.NormRank {
	if nt := doc.NormType(); nt != "" {
		if r, ok := e.kb.ParseNormRank(nt); ok {
			return r
		}
	}
	return e.kb.DetectNormRank(doc.Title())
}

func (e *Enricher) areaCompetence(areas []string) (knowledge.CompetenceEntry, bool) {
	for _, a := range areas {
		if c, ok := e.kb.IsRegionalExclusiveCompetence(strings.ReplaceAll(a, "_", " ")); ok {
			return c, true
		}
	}
	return knowledge.CompetenceEntry{}, false
}

// aligned reports whether doc regulates the regional competence c. A document
// whose title and subject name no regional competence is taken to follow the
// query's area.
func (e *Enricher) aligned(doc retrieval.Document, c knowledge.CompetenceEntry) bool {
	dc, ok := e.kb.IsRegionalExclusiveCompetence(doc.Title() + " " + doc.Subject())
	return !ok || dc.ID == c.ID
}

// Recency grades the age of a publication at ref: under one year 1.0, then
// 0.85, 0.7 and 0.5 up to five years, 0.3 beyond. Future dates count as new.
func Recency(pub, ref time.Time) float64 {
	switch {
	case ref.Before(pub.AddDate(1, 0, 0)):
		return 1.0
	case ref.Before(pub.AddDate(2, 0, 0)):
		return 0.85
	case ref.Before(pub.AddDate(3, 0, 0)):
		return 0.7
	case ref.Before(pub.AddDate(5, 0, 0)):
		return 0.5
	default:
		return 0.3
	}
}

func territoryWarning(community, territory string) string {
	if strings.TrimSpace(community) == "" || strings.TrimSpace(territory) == "" {
		return ""
	}
	if textfold.Fold(strings.TrimSpace(community)) == textfold.Fold(strings.TrimSpace(territory)) {
		return ""
	}
	return fmt.Sprintf("Norma de %s: puede no ser aplicable en %s.", community, territory)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// Documents strips enrichment, returning the underlying hits in order.
func Documents(enriched []EnrichedDocument) []retrieval.Document {
	out := make([]retrieval.Document, len(enriched))
	for i, e := range enriched {
		out[i] = e.Document
	}
	return out
}

const annotationHeader = "[Documentos ordenados por autoridad jerárquica normativa: Derecho UE > Constitución > Ley Orgánica > Ley > Reglamento > Normativa local. Prioriza las fuentes de mayor rango y vigentes.]"

// PromptAnnotations renders the ranking note and one line per warning, ready
// to append to a system prompt. It returns "" when there is nothing to rank.
func PromptAnnotations(enriched []EnrichedDocument) string {
	if len(enriched) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(annotationHeader)
	for _, d := range enriched {
		title := d.Title()
		if title == "" {
			title = "(sin título)"
		}
		if d.DerogationWarning != "" {
			fmt.Fprintf(&b, "\n- AVISO VIGENCIA «%s»: %s", title, d.DerogationWarning)
		}
		if d.TerritoryWarning != "" {
			fmt.Fprintf(&b, "\n- AVISO TERRITORIAL «%s»: %s", title, d.TerritoryWarning)
		}
	}
	return b.String()
}
