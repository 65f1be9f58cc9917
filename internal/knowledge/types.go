// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"regexp"
	"slices"
)

// NormRank identifies a level of the Spanish/EU normative hierarchy.
type NormRank string

// Nine canonical levels plus decreto_ley, which shares rank 5 with ley_ordinaria.
const (
	RankEUPrimary          NormRank = "derecho_ue_primario"
	RankConstitution       NormRank = "constitucion"
	RankEUSecondary        NormRank = "derecho_ue_derivado"
	RankOrganicLaw         NormRank = "ley_organica"
	RankOrdinaryLaw        NormRank = "ley_ordinaria"
	RankDecreeLaw          NormRank = "decreto_ley"
	RankRegionalLaw        NormRank = "ley_autonomica"
	RankStateRegulation    NormRank = "reglamento_estatal"
	RankRegionalRegulation NormRank = "reglamento_autonomico"
	RankLocalOrdinance     NormRank = "ordenanza_municipal"
)

// DefaultWeight is the authority weight of a rank that is not in the hierarchy.
const DefaultWeight = 0.50

// IsRegional reports whether r is issued by an autonomous community.
func (r NormRank) IsRegional() bool {
	return r == RankRegionalLaw || r == RankRegionalRegulation
}

// IsEU reports whether r is European Union law.
func (r NormRank) IsEU() bool {
	return r == RankEUPrimary || r == RankEUSecondary
}

// Severity grades a coherence finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Level is one entry of the normative hierarchy.
type Level struct {
	Rank        NormRank `yaml:"key" json:"rank"`
	Number      int      `yaml:"rank" json:"number"`
	Weight      float64  `yaml:"weight" json:"weight"`
	Shared      bool     `yaml:"shared" json:"shared,omitempty"`
	Label       string   `yaml:"label" json:"label"`
	Description string   `yaml:"description" json:"description"`
}

// CompetenceEntry is a matter reserved to the State (Art. 149.1 CE) or
// assumable by the autonomous communities (Art. 148.1 CE).
type CompetenceEntry struct {
	ID        string   `yaml:"id" json:"id"`
	Article   string   `yaml:"article" json:"article"`
	Label     string   `yaml:"label" json:"label"`
	Keywords  []string `yaml:"keywords" json:"keywords"`
	Exclusive bool     `yaml:"-" json:"exclusive"`

	patterns []*regexp.Regexp
}

// OrganicLawSubject is a matter reserved to Ley Orgánica.
type OrganicLawSubject struct {
	ID          string   `yaml:"id" json:"id"`
	Article     string   `yaml:"article" json:"article"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Description string   `yaml:"description" json:"description"`

	patterns []*regexp.Regexp
}

// ForalRegime is the civil law of a territory that displaces the Código
// Civil for the listed subjects.
type ForalRegime struct {
	ID       string   `yaml:"id" json:"id"`
	Names    []string `yaml:"names" json:"-"`
	Region   string   `yaml:"region" json:"region"`
	Corpus   string   `yaml:"corpus" json:"corpus"`
	Subjects []string `yaml:"subjects" json:"subjects"`
}

// NormPattern maps a title regex to a rank. Patterns are tried in order.
type NormPattern struct {
	Rank  NormRank `yaml:"rank"`
	Regex string   `yaml:"regex"`

	compiled *regexp.Regexp
}

// ViolationPattern is sentence phrasing that contradicts the hierarchy.
type ViolationPattern struct {
	Type        string   `yaml:"type" json:"type"`
	Severity    Severity `yaml:"severity" json:"severity"`
	Regex       string   `yaml:"regex" json:"regex"`
	Exclude     string   `yaml:"exclude" json:"exclude,omitempty"`
	Description string   `yaml:"description" json:"description"`

	compiled *regexp.Regexp
	exclude  *regexp.Regexp
}

// FindAll returns every match of the pattern in text that the exclusion
// does not discard.
func (p ViolationPattern) FindAll(text string) []string {
	if p.compiled == nil {
		return nil
	}
	var out []string
	for _, m := range p.compiled.FindAllString(text, -1) {
		if p.exclude != nil && p.exclude.MatchString(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// NormMatch is a norm reference found in free text.
type NormMatch struct {
	Text  string   `json:"text"`
	Rank  NormRank `json:"rank"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

type file struct {
	Hierarchy           []Level             `yaml:"hierarchy"`
	Aliases             map[string]NormRank `yaml:"aliases"`
	NormPatterns        []NormPattern       `yaml:"norm_patterns"`
	ViolationPatterns   []ViolationPattern  `yaml:"violation_patterns"`
	StateCompetences    []CompetenceEntry   `yaml:"state_exclusive_competences"`
	RegionalCompetences []CompetenceEntry   `yaml:"regional_exclusive_competences"`
	OrganicLawSubjects  []OrganicLawSubject `yaml:"organic_law_subjects"`
	ForalRegimes        []ForalRegime       `yaml:"foral_regimes"`
}

func (c CompetenceEntry) clone() CompetenceEntry {
	c.Keywords = slices.Clone(c.Keywords)
	return c
}

func (s OrganicLawSubject) clone() OrganicLawSubject {
	s.Keywords = slices.Clone(s.Keywords)
	return s
}

func (r ForalRegime) clone() ForalRegime {
	r.Names = slices.Clone(r.Names)
	r.Subjects = slices.Clone(r.Subjects)
	return r
}
