// SPDX-License-Identifier: Apache-2.0

// Package validator gates generated legal text. It scans the output for
// statements that break the normative hierarchy, scores it and decides
// whether to allow, warn, regenerate or block.
package validator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/jaraba/lcis/internal/knowledge"
)

// Action is the gate decision for one output.
type Action string

const (
	ActionAllow      Action = "allow"
	ActionWarn       Action = "warn"
	ActionRegenerate Action = "regenerate"
	ActionBlock      Action = "block"
)

// Violation types.
const (
	TypeHierarchyInversion           = "hierarchy_inversion"
	TypeHierarchyInversionStructural = "hierarchy_inversion_structural"
	TypeOrganicLawViolation          = "organic_law_violation"
	TypeEUPrimacyViolation           = "eu_primacy_violation"
	TypeCompetenceViolation          = "competence_violation"
	TypeRetroactivityViolation       = "retroactivity_violation"
)

// Warning types.
const (
	TypeVigenciaNotMentioned  = "vigencia_not_mentioned"
	TypeInternalContradiction = "internal_contradiction"
	TypeUnresolvedAntinomy    = "unresolved_antinomy"
	TypeSycophancyRisk        = "sycophancy_risk"
)

// Violation is a statement that contradicts a structural legal rule.
type Violation struct {
	Type        string             `json:"type" yaml:"type"`
	Severity    knowledge.Severity `json:"severity" yaml:"severity"`
	Description string             `json:"description" yaml:"description"`
	Match       string             `json:"match,omitempty" yaml:"match,omitempty"`
	Source      string             `json:"source,omitempty" yaml:"source,omitempty"`
}

// Warning is a risk that does not by itself make the text wrong.
type Warning struct {
	Type     string             `json:"type" yaml:"type"`
	Severity knowledge.Severity `json:"severity" yaml:"severity"`
	Detail   string             `json:"detail" yaml:"detail"`
	Match    string             `json:"match,omitempty" yaml:"match,omitempty"`
}

// Metadata reports how much checking was done, whatever the outcome.
type Metadata struct {
	HierarchyChecks  int      `json:"hierarchy_checks" yaml:"hierarchy_checks"`
	CompetenceChecks int      `json:"competence_checks" yaml:"competence_checks"`
	NormsDetected    []string `json:"norms_detected" yaml:"norms_detected"`
}

// Result is the verdict on one output.
type Result struct {
	Passed                  bool        `json:"passed" yaml:"passed"`
	Score                   float64     `json:"score" yaml:"score"`
	Action                  Action      `json:"action" yaml:"action"`
	Violations              []Violation `json:"violations" yaml:"violations"`
	Warnings                []Warning   `json:"warnings" yaml:"warnings"`
	SanitizedOutput         string      `json:"sanitized_output" yaml:"sanitized_output"`
	RegenerationConstraints []string    `json:"regeneration_constraints" yaml:"regeneration_constraints"`
	RetryCount              int         `json:"retry_count" yaml:"retry_count"`
	Metadata                Metadata    `json:"metadata" yaml:"metadata"`
}

// HasCritical reports whether any violation is critical.
func (r Result) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == knowledge.SeverityCritical {
			return true
		}
	}
	return false
}

// FindingTypes lists the types of all violations, then all warnings.
func (r Result) FindingTypes() []string {
	out := make([]string, 0, len(r.Violations)+len(r.Warnings))
	for _, v := range r.Violations {
		out = append(out, v.Type)
	}
	for _, w := range r.Warnings {
		out = append(out, w.Type)
	}
	return out
}

// Context carries optional information about the request being validated.
type Context struct {
	UserQuery  string `json:"user_query,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
	Action     string `json:"action,omitempty"`
}

// Options tunes scoring. Zero fields take the defaults.
type Options struct {
	BlockThreshold     float64
	WarnThreshold      float64
	MaxRetries         int
	Penalties          map[knowledge.Severity]float64
	VigenciaCutoffYear int
}

// Defaults.
const (
	DefaultBlockThreshold     = 0.5
	DefaultWarnThreshold      = 0.7
	DefaultMaxRetries         = 2
	DefaultVigenciaCutoffYear = 2016
)

// DefaultPenalties returns the per-severity score penalties.
func DefaultPenalties() map[knowledge.Severity]float64 {
	return map[knowledge.Severity]float64{
		knowledge.SeverityCritical: 0.30,
		knowledge.SeverityHigh:     0.20,
		knowledge.SeverityMedium:   0.15,
		knowledge.SeverityLow:      0.05,
	}
}

func (o Options) withDefaults() Options {
	if o.BlockThreshold <= 0 {
		o.BlockThreshold = DefaultBlockThreshold
	}
	if o.WarnThreshold <= 0 {
		o.WarnThreshold = DefaultWarnThreshold
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.VigenciaCutoffYear <= 0 {
		o.VigenciaCutoffYear = DefaultVigenciaCutoffYear
	}
	p := DefaultPenalties()
	for s, v := range o.Penalties {
		p[s] = v
	}
	o.Penalties = p
	return o
}

// Validator is stateless after construction and safe for concurrent use.
type Validator struct {
	kb     *knowledge.Base
	opts   Options
	logger *zap.Logger
}

// New returns a Validator. A nil kb means the default knowledge base and a
// nil logger discards output.
func New(kb *knowledge.Base, opts Options, logger *zap.Logger) *Validator {
	if kb == nil {
		kb = knowledge.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{kb: kb, opts: opts.withDefaults(), logger: logger}
}

// Validate runs every check on output and decides what to do with it. It
// never fails: an internal error yields a block.
func (v *Validator) Validate(output string, ctx Context) (res Result) {
	retry := max(ctx.RetryCount, 0)
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("legal coherence validation panicked", zap.Any("panic", r))
			res = v.failClosed(retry, fmt.Sprint(r))
		}
	}()

	violations := []Violation{}
	warnings := []Warning{}
	meta := Metadata{NormsDetected: v.normsDetected(output)}

	h := v.checkHierarchy(output)
	violations = append(violations, h.violations...)
	meta.HierarchyChecks = h.checks

	c := v.checkCompetence(output)
	violations = append(violations, c.violations...)
	meta.CompetenceChecks = c.checks

	violations = append(violations, v.checkOrganicLaw(output)...)

	warnings = append(warnings, v.checkVigencia(output)...)
	warnings = append(warnings, checkInternalContradictions(output)...)
	if ctx.UserQuery != "" {
		warnings = append(warnings, checkSycophancy(output, ctx.UserQuery)...)
	}
	warnings = append(warnings, v.checkAntinomies(output)...)

	score := 1.0
	for _, vi := range violations {
		score -= v.penalty(vi.Severity)
	}
	for _, w := range warnings {
		score -= v.penalty(w.Severity)
	}
	score = math.Max(0, math.Round(score*1000)/1000)

	res = Result{
		Score:                   score,
		Violations:              violations,
		Warnings:                warnings,
		SanitizedOutput:         output,
		RegenerationConstraints: []string{},
		RetryCount:              retry,
		Metadata:                meta,
	}

	switch {
	case score < v.opts.BlockThreshold && retry < v.opts.MaxRetries:
		res.Action = ActionRegenerate
		res.RegenerationConstraints = regenerationConstraints(violations)
	case score < v.opts.BlockThreshold:
		res.Action = ActionBlock
		res.SanitizedOutput = blockedResponse(violations)
	case score < v.opts.WarnThreshold || res.HasCritical():
		res.Action = ActionWarn
	default:
		res.Action = ActionAllow
	}
	res.Passed = res.Action != ActionBlock

	if res.Action == ActionRegenerate || res.Action == ActionBlock {
		v.logger.Warn("legal coherence gate",
			zap.String("action", string(res.Action)),
			zap.Float64("score", score),
			zap.Int("retry", retry),
			zap.Strings("violations", violationTypes(violations)),
			zap.String("agent", orUnknown(ctx.AgentID)),
			zap.String("agent_action", orUnknown(ctx.Action)),
		)
	}
	return res
}

func (v *Validator) penalty(s knowledge.Severity) float64 {
	if p, ok := v.opts.Penalties[s]; ok {
		return p
	}
	return 0.10
}

func (v *Validator) failClosed(retry int, reason string) Result {
	violations := []Violation{{
		Type:        "validation_error",
		Severity:    knowledge.SeverityCritical,
		Description: "No se ha podido verificar la coherencia jurídica de la respuesta.",
		Match:       reason,
	}}
	return Result{
		Passed:                  false,
		Score:                   0,
		Action:                  ActionBlock,
		Violations:              violations,
		Warnings:                []Warning{},
		SanitizedOutput:         blockedResponse(violations),
		RegenerationConstraints: []string{},
		RetryCount:              retry,
		Metadata:                Metadata{NormsDetected: []string{}},
	}
}

func (v *Validator) normsDetected(output string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, m := range v.kb.DetectNorms(output) {
		if seen[m.Text] {
			continue
		}
		seen[m.Text] = true
		out = append(out, m.Text)
	}
	return out
}

func violationTypes(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Type
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
