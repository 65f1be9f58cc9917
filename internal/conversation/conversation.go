// SPDX-License-Identifier: Apache-2.0

// Package conversation tracks the legal positions an assistant has taken in
// earlier turns so later outputs can be checked against them.
//
// A Context belongs to one conversation and is not safe for concurrent use;
// Store serializes access per session.
package conversation

import (
	"fmt"
	"strings"

	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/textfold"
)

// Position is the kind of legal stance an assertion takes.
type Position string

const (
	PositionCompetence     Position = "competencia"
	PositionPrimacy        Position = "primacia"
	PositionVigencia       Position = "vigencia"
	PositionOrganicReserve Position = "reserva_lo"
)

// Default caps.
const (
	DefaultMaxTurns        = 20
	DefaultMaxAssertions   = 50
	DefaultMaxAssertionLen = 300
	DefaultMaxSessions     = 1000
)

// Options bounds the memory of a Context, and of a Store through
// MaxSessions. Zero fields take the defaults.
type Options struct {
	MaxTurns        int `json:"max_turns" yaml:"max_turns"`
	MaxAssertions   int `json:"max_assertions" yaml:"max_assertions"`
	MaxAssertionLen int `json:"max_assertion_len" yaml:"max_assertion_len"`
	MaxSessions     int `json:"max_sessions" yaml:"max_sessions"`
}

func (o Options) withDefaults() Options {
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.MaxAssertions <= 0 {
		o.MaxAssertions = DefaultMaxAssertions
	}
	if o.MaxAssertionLen <= 0 {
		o.MaxAssertionLen = DefaultMaxAssertionLen
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = DefaultMaxSessions
	}
	return o
}

// Turn is one query/output exchange.
type Turn struct {
	Number int    `json:"number"`
	Query  string `json:"query"`
	Output string `json:"output"`
}

// Assertion is a legal position stated in a previous output.
type Assertion struct {
	Turn      int      `json:"turn"`
	Assertion string   `json:"assertion"`
	Norm      string   `json:"norm,omitempty"`
	Position  Position `json:"position"`
	// Matter is the competence or organic-law subject the sentence is about.
	Matter string `json:"matter,omitempty"`
}

// Contradiction is a new sentence that negates an earlier assertion.
type Contradiction struct {
	Type              Position `json:"contradiction_type"`
	Turn              int      `json:"turn"`
	PreviousAssertion string   `json:"previous_assertion"`
	Fragment          string   `json:"fragment"`
	Norm              string   `json:"norm,omitempty"`
	Description       string   `json:"description"`
}

// Coherence is the result of CheckCrossTurnCoherence.
type Coherence struct {
	IsCoherent     bool            `json:"is_coherent"`
	Contradictions []Contradiction `json:"contradictions"`
}

// Context is the per-session record of turns and assertions.
type Context struct {
	kb         *knowledge.Base
	opts       Options
	turnCount  int
	turns      []Turn
	assertions []Assertion
}

// New returns an empty Context. A nil kb means the default knowledge base.
func New(kb *knowledge.Base, opts Options) *Context {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Context{kb: kb, opts: opts.withDefaults()}
}

// AddTurn records a turn and extracts the assertions its output makes. It
// returns the assertions added, if any.
func (c *Context) AddTurn(query, output string) []Assertion {
	c.turnCount++
	c.turns = append(c.turns, Turn{Number: c.turnCount, Query: query, Output: output})
	if over := len(c.turns) - c.opts.MaxTurns; over > 0 {
		c.turns = append([]Turn(nil), c.turns[over:]...)
	}

	added := c.extract(output)
	c.assertions = append(c.assertions, added...)
	if over := len(c.assertions) - c.opts.MaxAssertions; over > 0 {
		c.assertions = append([]Assertion(nil), c.assertions[over:]...)
	}
	return added
}

func (c *Context) extract(output string) []Assertion {
	var out []Assertion
	for _, sentence := range textfold.Sentences(output) {
		folded := textfold.Fold(sentence)
		for _, rule := range assertionRules {
			if !rule.re.MatchString(folded) {
				continue
			}
			out = append(out, Assertion{
				Turn:      c.turnCount,
				Assertion: textfold.Truncate(sentence, c.opts.MaxAssertionLen),
				Norm:      c.firstNorm(sentence),
				Position:  rule.position,
				Matter:    c.matter(rule.position, sentence),
			})
			break
		}
	}
	return out
}

func (c *Context) firstNorm(sentence string) string {
	if norms := c.kb.DetectNorms(sentence); len(norms) > 0 {
		return norms[0].Text
	}
	return ""
}

func (c *Context) matter(p Position, sentence string) string {
	switch p {
	case PositionCompetence:
		if e, ok := c.kb.IsStateExclusiveCompetence(sentence); ok {
			return e.ID
		}
	case PositionOrganicReserve:
		if s, ok := c.kb.OrganicLawSubject(sentence); ok {
			return s.ID
		}
	}
	return ""
}

// CheckCrossTurnCoherence tests newOutput against every stored assertion.
// Each assertion yields at most one contradiction.
func (c *Context) CheckCrossTurnCoherence(newOutput string) Coherence {
	res := Coherence{IsCoherent: true, Contradictions: []Contradiction{}}
	if len(c.assertions) == 0 {
		return res
	}
	sentences := textfold.Sentences(newOutput)
	folded := make([]string, len(sentences))
	for i, s := range sentences {
		folded[i] = textfold.Fold(s)
	}

	for _, a := range c.assertions {
		for i, f := range folded {
			desc, ok := c.contradicts(a, sentences[i], f)
			if !ok {
				continue
			}
			res.Contradictions = append(res.Contradictions, Contradiction{
				Type:              a.Position,
				Turn:              a.Turn,
				PreviousAssertion: a.Assertion,
				Fragment:          textfold.Truncate(sentences[i], c.opts.MaxAssertionLen),
				Norm:              a.Norm,
				Description:       desc,
			})
			break
		}
	}
	res.IsCoherent = len(res.Contradictions) == 0
	return res
}

func (c *Context) contradicts(a Assertion, sentence, folded string) (string, bool) {
	switch a.Position {
	case PositionCompetence:
		if !regionalClaim.MatchString(folded) || regionalNegation.MatchString(folded) {
			return "", false
		}
		e, ok := c.kb.IsStateExclusiveCompetence(sentence)
		if !ok || (a.Matter != "" && e.ID != a.Matter) {
			return "", false
		}
		return fmt.Sprintf("En el turno %d se afirmó que %s es competencia exclusiva del Estado (Art. %s CE); ahora se atribuye a las Comunidades Autónomas.", a.Turn, strings.ToLower(e.Label), e.Article), true

	case PositionPrimacy:
		if !domesticPrimacy.MatchString(folded) {
			return "", false
		}
		return fmt.Sprintf("En el turno %d se afirmó la primacía del Derecho de la UE; ahora se hace prevalecer el derecho interno.", a.Turn), true

	case PositionVigencia:
		if a.Norm == "" || !strings.Contains(folded, textfold.Fold(a.Norm)) {
			return "", false
		}
		if !inForce.MatchString(folded) || derogationKw.MatchString(folded) {
			return "", false
		}
		return fmt.Sprintf("En el turno %d se indicó que %s está derogada; ahora se trata como vigente.", a.Turn, a.Norm), true

	case PositionOrganicReserve:
		if !subOrganicRegulation.MatchString(folded) || organicMention.MatchString(folded) {
			return "", false
		}
		s, ok := c.kb.OrganicLawSubject(sentence)
		if !ok || (a.Matter != "" && s.ID != a.Matter) {
			return "", false
		}
		return fmt.Sprintf("En el turno %d se afirmó la reserva de Ley Orgánica (%s); ahora se admite su regulación por norma inferior.", a.Turn, s.Description), true
	}
	return "", false
}

// Assertions returns a snapshot of the stored assertions, oldest first.
func (c *Context) Assertions() []Assertion {
	return append([]Assertion(nil), c.assertions...)
}

// Turns returns a snapshot of the retained turns, oldest first.
func (c *Context) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

// TurnCount is the number of turns seen since the last Reset, including
// evicted ones.
func (c *Context) TurnCount() int {
	return c.turnCount
}

// Reset forgets every turn and assertion.
func (c *Context) Reset() {
	c.turnCount = 0
	c.turns = nil
	c.assertions = nil
}
