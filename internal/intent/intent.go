// SPDX-License-Identifier: Apache-2.0

// Package intent decides whether a user query is legal and how much of the
// coherence pipeline it needs.
package intent

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/jaraba/lcis/internal/textfold"
)

// Intent is the legal-intent bucket of a query.
type Intent string

const (
	LegalDirect     Intent = "LEGAL_DIRECT"
	LegalImplicit   Intent = "LEGAL_IMPLICIT"
	LegalReference  Intent = "LEGAL_REFERENCE"
	ComplianceCheck Intent = "COMPLIANCE_CHECK"
	NonLegal        Intent = "NON_LEGAL"
)

func (i Intent) String() string { return string(i) }

// DirectThreshold is the score at which a query is LEGAL_DIRECT.
const DirectThreshold = 0.85

// Classification is the immutable result of Classify.
type Classification struct {
	Intent  Intent   `json:"intent" yaml:"intent"`
	Score   float64  `json:"score" yaml:"score"`
	Areas   []string `json:"areas" yaml:"areas"`
	Matches []string `json:"matches,omitempty" yaml:"matches,omitempty"`
	// Shortcut is set when the action or vertical decided the intent.
	Shortcut bool `json:"shortcut,omitempty" yaml:"shortcut,omitempty"`
}

// RequiresFullPipeline is true for LEGAL_DIRECT and COMPLIANCE_CHECK.
func (c Classification) RequiresFullPipeline() bool {
	return c.Intent == LegalDirect || c.Intent == ComplianceCheck
}

// RequiresDisclaimer is true for every legal intent.
func (c Classification) RequiresDisclaimer() bool {
	return c.Intent != NonLegal && c.Intent != ""
}

// IsLightPipeline is true only for LEGAL_REFERENCE.
func (c Classification) IsLightPipeline() bool {
	return c.Intent == LegalReference
}

// IsLegal reports whether the rest of the pipeline should run at all.
func (c Classification) IsLegal() bool {
	return c.RequiresDisclaimer()
}

// IsLegalAction reports whether action is in the legal allowlist.
func IsLegalAction(action string) bool {
	return legalActions[normalize(action)]
}

// IsLegalVertical reports whether vertical is the legal vertical.
func IsLegalVertical(vertical string) bool {
	return normalize(vertical) == LegalVertical
}

type term struct {
	phrase     string
	weight     float64
	compliance bool
	re         *regexp.Regexp
}

type area struct {
	name     string
	patterns []*regexp.Regexp
}

// Classifier scores queries against the legal lexicon. It is stateless after
// construction and safe for concurrent use.
type Classifier struct {
	terms []term
	areas []area
}

// NewClassifier compiles the lexicon.
func NewClassifier() *Classifier {
	c := &Classifier{}
	for _, r := range termRules {
		for _, p := range r.phrases {
			c.terms = append(c.terms, term{
				phrase:     p,
				weight:     r.weight,
				compliance: r.compliance,
				re:         textfold.WordPattern(p),
			})
		}
	}
	// Longest phrase first so "ley organica" is consumed before "ley".
	sort.SliceStable(c.terms, func(i, j int) bool {
		return len(c.terms[i].phrase) > len(c.terms[j].phrase)
	})
	for _, r := range areaRules {
		a := area{name: r.area}
		for _, p := range r.phrases {
			a.patterns = append(a.patterns, textfold.WordPattern(p))
		}
		c.areas = append(c.areas, a)
	}
	return c
}

// Classify buckets query. A legal action or the legal vertical short-circuits
// to LEGAL_DIRECT with score 1.
func (c *Classifier) Classify(query, vertical, action string) Classification {
	vertical, action = normalize(vertical), normalize(action)
	if legalActions[action] {
		return Classification{Intent: LegalDirect, Score: 1.0, Areas: []string{action}, Shortcut: true}
	}
	if vertical == LegalVertical {
		return Classification{Intent: LegalDirect, Score: 1.0, Areas: []string{vertical}, Shortcut: true}
	}

	folded := textfold.Fold(query)
	if strings.TrimSpace(folded) == "" {
		return Classification{Intent: NonLegal, Areas: []string{}}
	}

	var (
		sum        float64
		matches    []string
		compliance bool
	)
	remaining := []byte(folded)
	for _, t := range c.terms {
		locs := t.re.FindAllIndex(remaining, -1)
		if len(locs) == 0 {
			continue
		}
		sum += t.weight
		matches = append(matches, t.phrase)
		compliance = compliance || t.compliance
		for _, loc := range locs {
			for i := loc[0]; i < loc[1]; i++ {
				remaining[i] = ' '
			}
		}
	}
	areas := c.detectAreas(folded)

	score := math.Min(1.0, sum)
	if len(matches) > 0 || len(areas) > 0 {
		score = math.Min(1.0, score+verticalBonus[vertical])
	}
	score = math.Round(score*10000) / 10000

	out := Classification{Score: score, Areas: areas, Matches: matches}
	switch {
	case score >= DirectThreshold:
		out.Intent = LegalDirect
	case compliance:
		out.Intent = ComplianceCheck
	case len(matches) >= 2:
		out.Intent = LegalImplicit
	case len(matches) == 1 || len(areas) > 0:
		out.Intent = LegalReference
	default:
		out.Intent = NonLegal
	}
	return out
}

func (c *Classifier) detectAreas(folded string) []string {
	areas := []string{}
	for _, a := range c.areas {
		for _, re := range a.patterns {
			if re.MatchString(folded) {
				areas = append(areas, a.name)
				break
			}
		}
	}
	return areas
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
