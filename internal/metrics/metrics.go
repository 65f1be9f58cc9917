// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus counters for each coherence stage.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lcis"

// Metrics holds the collectors.
type Metrics struct {
	// IntentClassifications counts classifications. Labels: intent.
	IntentClassifications *prometheus.CounterVec

	// EnrichedDocuments counts retrieval hits by outcome. Labels: outcome
	// (kept, dropped, flagged).
	EnrichedDocuments *prometheus.CounterVec

	// Validations counts gate decisions. Labels: action.
	Validations *prometheus.CounterVec

	// ValidationScore observes coherence scores.
	ValidationScore prometheus.Histogram

	// Violations counts violations and warnings found. Labels: type.
	Violations *prometheus.CounterVec

	// Disclaimers counts enforced outputs. Labels: source (existing,
	// provider, fallback).
	Disclaimers *prometheus.CounterVec

	// CrossTurnContradictions counts contradictions with earlier turns.
	// Labels: position.
	CrossTurnContradictions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IntentClassifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intent_classifications_total",
				Help:      "Queries classified by legal intent",
			},
			[]string{"intent"},
		),
		EnrichedDocuments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enriched_documents_total",
				Help:      "Retrieved documents processed by the normative enricher, by outcome",
			},
			[]string{"outcome"},
		),
		Validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Validated outputs by gate action",
			},
			[]string{"action"},
		),
		ValidationScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_score",
				Help:      "Coherence score of validated outputs",
				Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.85, 0.95, 1.0},
			},
		),
		Violations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Coherence violations and warnings found, by type",
			},
			[]string{"type"},
		),
		Disclaimers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disclaimers_total",
				Help:      "Outputs passed through disclaimer enforcement, by disclaimer source",
			},
			[]string{"source"},
		),
		CrossTurnContradictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cross_turn_contradictions_total",
				Help:      "Contradictions with assertions from earlier turns, by position",
			},
			[]string{"position"},
		),
	}
}

// RecordIntent records one classification.
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentClassifications.WithLabelValues(intent).Inc()
}

// RecordEnrichment records the outcome counts of one enrichment run.
func (m *Metrics) RecordEnrichment(kept, dropped, flagged int) {
	if m == nil {
		return
	}
	m.EnrichedDocuments.WithLabelValues("kept").Add(float64(kept))
	m.EnrichedDocuments.WithLabelValues("dropped").Add(float64(dropped))
	m.EnrichedDocuments.WithLabelValues("flagged").Add(float64(flagged))
}

// RecordValidation records a gate decision with its score and finding types.
func (m *Metrics) RecordValidation(action string, score float64, types []string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(action).Inc()
	m.ValidationScore.Observe(score)
	for _, t := range types {
		m.Violations.WithLabelValues(t).Inc()
	}
}

// RecordDisclaimer records where a disclaimer came from.
func (m *Metrics) RecordDisclaimer(source string) {
	if m == nil {
		return
	}
	m.Disclaimers.WithLabelValues(source).Inc()
}

// RecordContradiction records one cross-turn contradiction.
func (m *Metrics) RecordContradiction(position string) {
	if m == nil {
		return
	}
	m.CrossTurnContradictions.WithLabelValues(position).Inc()
}
