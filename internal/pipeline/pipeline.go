// SPDX-License-Identifier: Apache-2.0

// Package pipeline wires the coherence components around one LLM call:
// classify and enrich before generation, validate and add the disclaimer
// after it, and regenerate while the validator asks for it.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jaraba/lcis/internal/config"
	"github.com/jaraba/lcis/internal/conversation"
	"github.com/jaraba/lcis/internal/disclaimer"
	"github.com/jaraba/lcis/internal/intent"
	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/metrics"
	"github.com/jaraba/lcis/internal/normgraph"
	"github.com/jaraba/lcis/internal/promptrule"
	"github.com/jaraba/lcis/internal/retrieval"
	"github.com/jaraba/lcis/internal/validator"
)

// Generator is the LLM behind the pipeline.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, query string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt, query string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt, query string) (string, error) {
	return f(ctx, systemPrompt, query)
}

// Request is one user turn.
type Request struct {
	Query        string
	Vertical     string
	Action       string
	AgentID      string
	SystemPrompt string
	Territory    string
	QueryDate    time.Time
	// SubjectAreas defaults to the areas detected in Query, unless the
	// action or vertical decided the intent.
	SubjectAreas []string
	Documents    []retrieval.Document
}

// Preparation is everything decided before generation.
type Preparation struct {
	Classification intent.Classification
	SystemPrompt   string
	Documents      []normgraph.EnrichedDocument
	Stats          normgraph.Stats
}

// Outcome is the delivered answer and how it was reached.
type Outcome struct {
	Output string
	// Validation is nil when the intent did not call for it.
	Validation       *validator.Result
	Coherence        conversation.Coherence
	DisclaimerSource disclaimer.Source
	Attempts         int
}

// Pipeline is safe for concurrent use; the conversation passed to Finalize
// and Run is not, and must be owned by the caller.
type Pipeline struct {
	classifier *intent.Classifier
	enricher   *normgraph.Enricher
	prompts    *promptrule.Builder
	validator  *validator.Validator
	enforcer   *disclaimer.Enforcer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New builds a Pipeline from cfg. provider, m and logger may be nil.
func New(kb *knowledge.Base, cfg config.Config, provider disclaimer.Provider, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if kb == nil {
		kb = knowledge.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		classifier: intent.NewClassifier(),
		enricher:   normgraph.New(kb, cfg.EnricherOptions()),
		prompts:    promptrule.New(kb),
		validator:  validator.New(kb, cfg.ValidatorOptions(), logger.Named("validator")),
		enforcer:   disclaimer.New(provider, cfg.DisclaimerOptions(), logger.Named("disclaimer")),
		metrics:    m,
		logger:     logger,
	}
}

// Prepare classifies the query and, for legal queries, ranks the retrieved
// documents and builds the system prompt. Non-legal queries keep the base
// prompt and their documents untouched.
func (p *Pipeline) Prepare(req Request) Preparation {
	cls := p.classifier.Classify(req.Query, req.Vertical, req.Action)
	p.metrics.RecordIntent(cls.Intent.String())
	p.logger.Debug("classified query",
		zap.String("intent", cls.Intent.String()),
		zap.Float64("score", cls.Score),
		zap.Strings("areas", cls.Areas))

	prep := Preparation{Classification: cls, SystemPrompt: req.SystemPrompt}
	if !cls.IsLegal() {
		return prep
	}

	areas := req.SubjectAreas
	if len(areas) == 0 && !cls.Shortcut {
		areas = cls.Areas
	}
	prep.Documents, prep.Stats = p.enricher.EnrichWithStats(req.Documents, normgraph.Context{
		Territory:    req.Territory,
		QueryDate:    req.QueryDate,
		SubjectAreas: areas,
	})
	p.metrics.RecordEnrichment(prep.Stats.Kept, prep.Stats.Dropped, prep.Stats.Flagged)
	p.logger.Debug("enriched retrieval",
		zap.Int("kept", prep.Stats.Kept),
		zap.Int("dropped", prep.Stats.Dropped),
		zap.Int("flagged", prep.Stats.Flagged))

	system := req.SystemPrompt
	if promptrule.RequiresCoherence(req.Action, req.Vertical) || cls.RequiresFullPipeline() {
		short := promptrule.UseShortVersion(req.Action) || cls.IsLightPipeline()
		system = p.prompts.ApplyWithTerritory(system, req.Territory, short)
	}
	if notes := normgraph.PromptAnnotations(prep.Documents); notes != "" {
		system = strings.TrimSpace(system + "\n\n" + notes)
	}
	prep.SystemPrompt = system
	return prep
}

// validates reports whether outputs for cls go through the validator.
// LEGAL_REFERENCE is the light path and skips it.
func validates(cls intent.Classification) bool {
	return cls.RequiresFullPipeline() || cls.Intent == intent.LegalImplicit
}

// Finalize checks one generated output. When the validator asks for a
// regeneration the outcome is returned as is, without touching conv;
// otherwise the output is checked against earlier turns, recorded in conv
// and given its disclaimer. conv may be nil.
func (p *Pipeline) Finalize(ctx context.Context, prep Preparation, req Request, output string, retry int, conv *conversation.Context) Outcome {
	cls := prep.Classification
	out := Outcome{Output: output, Attempts: retry + 1, Coherence: conversation.Coherence{IsCoherent: true, Contradictions: []conversation.Contradiction{}}}

	if validates(cls) {
		res := p.validator.Validate(output, validator.Context{
			UserQuery:  req.Query,
			RetryCount: retry,
			AgentID:    req.AgentID,
			Action:     req.Action,
		})
		p.metrics.RecordValidation(string(res.Action), res.Score, res.FindingTypes())
		out.Validation = &res
		out.Output = res.SanitizedOutput
		if res.Action == validator.ActionRegenerate {
			return out
		}
	}

	if conv != nil && cls.IsLegal() {
		out.Coherence = conv.CheckCrossTurnCoherence(out.Output)
		for _, c := range out.Coherence.Contradictions {
			p.metrics.RecordContradiction(string(c.Type))
			p.logger.Info("contradiction with earlier turn",
				zap.String("position", string(c.Type)),
				zap.Int("turn", c.Turn),
				zap.String("norm", c.Norm))
		}
	}
	if conv != nil {
		conv.AddTurn(req.Query, out.Output)
	}

	if cls.RequiresDisclaimer() {
		out.Output, out.DisclaimerSource = p.enforcer.EnforceWithSource(ctx, out.Output, out.Validation)
		p.metrics.RecordDisclaimer(string(out.DisclaimerSource))
	}

	fields := []zap.Field{zap.String("intent", cls.Intent.String()), zap.Int("attempts", out.Attempts)}
	if out.Validation != nil {
		fields = append(fields, zap.String("action", string(out.Validation.Action)), zap.Float64("score", out.Validation.Score))
	}
	p.logger.Info("turn finalized", fields...)
	return out
}

// Run prepares req, generates with gen and finalizes, regenerating with the
// validator's constraints appended to the system prompt until it stops
// asking or the retry cap turns the answer into a block.
func (p *Pipeline) Run(ctx context.Context, req Request, gen Generator, conv *conversation.Context) (Outcome, error) {
	prep := p.Prepare(req)
	system := prep.SystemPrompt
	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		output, err := gen.Generate(ctx, system, req.Query)
		if err != nil {
			return Outcome{}, fmt.Errorf("generation attempt %d failed: %w", retry+1, err)
		}
		out := p.Finalize(ctx, prep, req, output, retry, conv)
		if out.Validation == nil || out.Validation.Action != validator.ActionRegenerate {
			return out, nil
		}
		p.logger.Debug("regenerating", zap.Int("retry", retry+1), zap.Strings("constraints", out.Validation.RegenerationConstraints))
		system = withConstraints(prep.SystemPrompt, out.Validation.RegenerationConstraints)
	}
}

func withConstraints(system string, constraints []string) string {
	var b strings.Builder
	b.WriteString(system)
	if system != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("## CORRECCIONES OBLIGATORIAS (la respuesta anterior fue rechazada)")
	for _, c := range constraints {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}
