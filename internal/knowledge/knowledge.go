// SPDX-License-Identifier: Apache-2.0

// Package knowledge holds the static structural tables of the Spanish and EU
// legal order: normative hierarchy, State and regional competences, matters
// reserved to Ley Orgánica and foral civil law regimes.
//
// The tables are embedded as YAML and compiled once. Every lookup is total:
// unknown input yields the zero value, never an error.
package knowledge

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/jaraba/lcis/internal/textfold"
)

//go:embed knowledge.yaml
var embedded []byte

// Base is a compiled, read-only knowledge base. It is safe for concurrent use.
type Base struct {
	levels    map[NormRank]Level
	canonical []NormRank
	aliases   map[string]NormRank

	normPatterns      []NormPattern
	violationPatterns []ViolationPattern
	stateCompetences  []CompetenceEntry
	regional          []CompetenceEntry
	organic           []OrganicLawSubject
	foral             []ForalRegime
}

var (
	defaultOnce sync.Once
	defaultBase *Base
)

// Default returns the knowledge base compiled from the embedded tables.
// It panics if the embedded YAML is malformed, which tests guard against.
func Default() *Base {
	defaultOnce.Do(func() {
		b, err := Load(embedded)
		if err != nil {
			panic(fmt.Sprintf("knowledge: embedded tables: %v", err))
		}
		defaultBase = b
	})
	return defaultBase
}

// Load parses and compiles a knowledge base from YAML.
func Load(data []byte) (*Base, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal knowledge tables: %w", err)
	}

	b := &Base{
		levels:  make(map[NormRank]Level, len(f.Hierarchy)),
		aliases: make(map[string]NormRank, len(f.Aliases)),
	}

	seen := make(map[int]NormRank)
	for _, l := range f.Hierarchy {
		if _, dup := b.levels[l.Rank]; dup {
			return nil, fmt.Errorf("duplicate hierarchy level %q", l.Rank)
		}
		if l.Weight < 0 || l.Weight > 1 {
			return nil, fmt.Errorf("level %q: weight %v out of [0,1]", l.Rank, l.Weight)
		}
		b.levels[l.Rank] = l
		if l.Shared {
			continue
		}
		if prev, dup := seen[l.Number]; dup {
			return nil, fmt.Errorf("levels %q and %q share rank %d", prev, l.Rank, l.Number)
		}
		seen[l.Number] = l.Rank
		b.canonical = append(b.canonical, l.Rank)
	}
	for n := 1; n <= len(b.canonical); n++ {
		if _, ok := seen[n]; !ok {
			return nil, fmt.Errorf("hierarchy ranks are not contiguous: %d missing", n)
		}
	}
	sort.Slice(b.canonical, func(i, j int) bool {
		return b.levels[b.canonical[i]].Number < b.levels[b.canonical[j]].Number
	})

	for alias, r := range f.Aliases {
		if _, ok := b.levels[r]; !ok {
			return nil, fmt.Errorf("alias %q points to unknown rank %q", alias, r)
		}
		b.aliases[alias] = r
	}

	for i, p := range f.NormPatterns {
		if _, ok := b.levels[p.Rank]; !ok {
			return nil, fmt.Errorf("norm pattern %d: unknown rank %q", i, p.Rank)
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("norm pattern %d: %w", i, err)
		}
		p.compiled = re
		b.normPatterns = append(b.normPatterns, p)
	}

	for _, v := range f.ViolationPatterns {
		if !v.Severity.valid() {
			return nil, fmt.Errorf("violation %q: invalid severity %q", v.Type, v.Severity)
		}
		re, err := regexp.Compile(v.Regex)
		if err != nil {
			return nil, fmt.Errorf("violation %q: %w", v.Type, err)
		}
		v.compiled = re
		if v.Exclude != "" {
			if v.exclude, err = regexp.Compile(v.Exclude); err != nil {
				return nil, fmt.Errorf("violation %q exclude: %w", v.Type, err)
			}
		}
		b.violationPatterns = append(b.violationPatterns, v)
	}

	b.stateCompetences = compileCompetences(f.StateCompetences)
	b.regional = compileCompetences(f.RegionalCompetences)
	for _, s := range f.OrganicLawSubjects {
		s.patterns = keywordPatterns(s.Keywords)
		b.organic = append(b.organic, s)
	}
	for _, r := range f.ForalRegimes {
		for i, n := range r.Names {
			r.Names[i] = textfold.Fold(n)
		}
		for i, s := range r.Subjects {
			r.Subjects[i] = textfold.Fold(s)
		}
		b.foral = append(b.foral, r)
	}
	return b, nil
}

func compileCompetences(entries []CompetenceEntry) []CompetenceEntry {
	out := make([]CompetenceEntry, 0, len(entries))
	for _, c := range entries {
		c.Exclusive = true
		c.patterns = keywordPatterns(c.Keywords)
		out = append(out, c)
	}
	return out
}

// keywordPatterns anchors each folded keyword at a word start. Keywords may
// be stems ("deportiv"), so the end is left open.
func keywordPatterns(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, k := range keywords {
		k = textfold.Fold(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`\b`+strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)))
	}
	return out
}

// ---------------------------------------------------------------------------
// Hierarchy
// ---------------------------------------------------------------------------

// Ranks returns the nine canonical ranks from most to least authoritative.
func (b *Base) Ranks() []NormRank {
	return append([]NormRank(nil), b.canonical...)
}

// Levels returns the canonical levels in rank order.
func (b *Base) Levels() []Level {
	out := make([]Level, 0, len(b.canonical))
	for _, r := range b.canonical {
		out = append(out, b.levels[r])
	}
	return out
}

// Level returns the hierarchy entry for r.
func (b *Base) Level(r NormRank) (Level, bool) {
	l, ok := b.levels[r]
	return l, ok
}

// Rank returns the rank number of r, 1 being the most authoritative.
func (b *Base) Rank(r NormRank) (int, bool) {
	l, ok := b.levels[r]
	return l.Number, ok
}

// ParseNormRank resolves a rank key or alias ("normativa_local",
// "Real Decreto-ley") to a NormRank.
func (b *Base) ParseNormRank(s string) (NormRank, bool) {
	key := textfold.Fold(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if _, ok := b.levels[NormRank(key)]; ok {
		return NormRank(key), true
	}
	r, ok := b.aliases[key]
	return r, ok
}

// IsHigherRank reports whether a is strictly more authoritative than b.
// Unknown ranks sort below every known one.
func (b *Base) IsHigherRank(a, c NormRank) bool {
	return b.rankOrLast(a) < b.rankOrLast(c)
}

func (b *Base) rankOrLast(r NormRank) int {
	if n, ok := b.Rank(r); ok {
		return n
	}
	return 99
}

// HierarchyWeight returns the authority weight of r, DefaultWeight if unknown.
func (b *Base) HierarchyWeight(r NormRank) float64 {
	if l, ok := b.levels[r]; ok {
		return l.Weight
	}
	return DefaultWeight
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

// DetectNormRank classifies a norm title. The first matching pattern wins;
// the empty rank means nothing matched.
func (b *Base) DetectNormRank(text string) NormRank {
	for _, p := range b.normPatterns {
		if p.compiled.MatchString(text) {
			return p.Rank
		}
	}
	return ""
}

// DetectNorms finds every norm reference in text, ordered by position.
// Patterns are applied in priority order and a later pattern never claims
// bytes already claimed by an earlier one.
func (b *Base) DetectNorms(text string) []NormMatch {
	var out []NormMatch
	for _, p := range b.normPatterns {
		for _, loc := range p.compiled.FindAllStringIndex(text, -1) {
			if overlaps(out, loc[0], loc[1]) {
				continue
			}
			out = append(out, NormMatch{
				Text:  strings.TrimSpace(text[loc[0]:loc[1]]),
				Rank:  p.Rank,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func overlaps(ms []NormMatch, start, end int) bool {
	for _, m := range ms {
		if start < m.End && m.Start < end {
			return true
		}
	}
	return false
}

// ViolationPatterns returns the hierarchy violation phrasings.
func (b *Base) ViolationPatterns() []ViolationPattern {
	return append([]ViolationPattern(nil), b.violationPatterns...)
}

// ---------------------------------------------------------------------------
// Competences and reserves
// ---------------------------------------------------------------------------

// IsStateExclusiveCompetence returns the Art. 149.1 CE entry whose keywords
// appear in text.
func (b *Base) IsStateExclusiveCompetence(text string) (CompetenceEntry, bool) {
	return matchCompetence(b.stateCompetences, textfold.Fold(text))
}

// IsRegionalExclusiveCompetence returns the Art. 148.1 CE entry whose
// keywords appear in text.
func (b *Base) IsRegionalExclusiveCompetence(text string) (CompetenceEntry, bool) {
	return matchCompetence(b.regional, textfold.Fold(text))
}

func matchCompetence(entries []CompetenceEntry, folded string) (CompetenceEntry, bool) {
	for _, c := range entries {
		for _, re := range c.patterns {
			if re.MatchString(folded) {
				return c.clone(), true
			}
		}
	}
	return CompetenceEntry{}, false
}

// RequiresOrganicLaw returns the description of the organic-law matter found
// in text. A matter matches when two of its keywords occur, or all of them
// if it has fewer than two.
func (b *Base) RequiresOrganicLaw(text string) (string, bool) {
	s, ok := b.OrganicLawSubject(text)
	return s.Description, ok
}

// OrganicLawSubject is RequiresOrganicLaw returning the whole entry.
func (b *Base) OrganicLawSubject(text string) (OrganicLawSubject, bool) {
	folded := textfold.Fold(text)
	for _, s := range b.organic {
		need := min(2, len(s.patterns))
		if need == 0 {
			continue
		}
		hits := 0
		for _, re := range s.patterns {
			if re.MatchString(folded) {
				hits++
			}
		}
		if hits >= need {
			return s.clone(), true
		}
	}
	return OrganicLawSubject{}, false
}

// StateCompetences returns the Art. 149.1 CE table.
func (b *Base) StateCompetences() []CompetenceEntry {
	out := make([]CompetenceEntry, len(b.stateCompetences))
	for i, c := range b.stateCompetences {
		out[i] = c.clone()
	}
	return out
}

// OrganicLawSubjects returns the Art. 81 CE table.
func (b *Base) OrganicLawSubjects() []OrganicLawSubject {
	out := make([]OrganicLawSubject, len(b.organic))
	for i, o := range b.organic {
		out[i] = o.clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Foral law
// ---------------------------------------------------------------------------

// ForalRegime returns the foral regime of territory that covers subject.
// It reports false when the territory follows the Código Civil for it.
func (b *Base) ForalRegime(subject, territory string) (ForalRegime, bool) {
	r, ok := b.ForalRegimeForTerritory(territory)
	if !ok {
		return ForalRegime{}, false
	}
	s := textfold.Fold(strings.TrimSpace(subject))
	if s == "" {
		return ForalRegime{}, false
	}
	for _, m := range r.Subjects {
		if strings.Contains(s, m) || strings.Contains(m, s) {
			return r, true
		}
	}
	return ForalRegime{}, false
}

// ForalRegimeForTerritory returns the foral regime in force in territory,
// whatever the subject.
func (b *Base) ForalRegimeForTerritory(territory string) (ForalRegime, bool) {
	t := textfold.Fold(strings.TrimSpace(territory))
	if t == "" {
		return ForalRegime{}, false
	}
	for _, r := range b.foral {
		if t == textfold.Fold(r.Region) || strings.Contains(t, strings.ReplaceAll(r.ID, "_", " ")) {
			return r.clone(), true
		}
		for _, n := range r.Names {
			if t == n || strings.Contains(t, n) {
				return r.clone(), true
			}
		}
	}
	return ForalRegime{}, false
}
