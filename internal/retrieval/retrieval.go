// SPDX-License-Identifier: Apache-2.0

// Package retrieval models the scored hits returned by the external
// retrieval backend. Payloads are loosely typed maps; accessors coerce them.
package retrieval

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"
)

// Legal status values of a payload.
const (
	StatusInForce           = "vigente"
	StatusRepealed          = "derogada"
	StatusRepealedTotal     = "derogada_total"
	StatusRepealedPartially = "derogada_parcial"
	StatusAnnulled          = "anulada"
)

// Document is one retrieval hit: a semantic score and the indexed payload.
type Document struct {
	Score   float64        `json:"score" yaml:"score"`
	Payload map[string]any `json:"payload" yaml:"payload"`
}

// Title returns payload.title.
func (d Document) Title() string {
	return d.str("title")
}

// StatusLegal returns the normalized payload.status_legal, or "" if unset.
func (d Document) StatusLegal() string {
	s := d.str("status_legal")
	if s == "" {
		s = d.str("status")
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// PublicationDate parses payload.publication_date. It reports false when the
// date is missing or cannot be parsed.
func (d Document) PublicationDate() (time.Time, bool) {
	v, ok := d.Payload["publication_date"]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// NormType returns the explicit payload.norm_type, if any.
func (d Document) NormType() string {
	return d.str("norm_type")
}

// AutonomousCommunity returns payload.autonomous_community, if any.
func (d Document) AutonomousCommunity() string {
	if s := d.str("autonomous_community"); s != "" {
		return s
	}
	return d.str("ccaa")
}

// Subject returns payload.subject or payload.materia, used for competence
// alignment when present.
func (d Document) Subject() string {
	if s := d.str("subject"); s != "" {
		return s
	}
	return d.str("materia")
}

func (d Document) str(key string) string {
	if d.Payload == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(d.Payload[key]))
}

// Load decodes retrieval hits from YAML or JSON. It accepts a bare list or an
// object wrapping the list under "results" or "hits". A hit without a
// "payload" key is treated as a flat payload.
func Load(data []byte) ([]Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retrieval hits: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case nil:
		return []Document{}, nil
	case []any:
		items = v
	case map[string]any:
		list, ok := v["results"]
		if !ok {
			list, ok = v["hits"]
		}
		if !ok {
			return nil, fmt.Errorf("retrieval hits: object has no \"results\" or \"hits\" list")
		}
		items, ok = list.([]any)
		if !ok {
			return nil, fmt.Errorf("retrieval hits: expected a list, got %T", list)
		}
	default:
		return nil, fmt.Errorf("retrieval hits: unsupported document type %T", raw)
	}

	docs := make([]Document, 0, len(items))
	for i, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("retrieval hit %d: %w", i, err)
		}
		doc, err := decodeHit(m)
		if err != nil {
			return nil, fmt.Errorf("retrieval hit %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeHit(m map[string]any) (Document, error) {
	var score float64
	for _, k := range []string{"score", "raw_semantic_score", "semantic_score"} {
		if v, ok := m[k]; ok {
			s, err := cast.ToFloat64E(v)
			if err != nil {
				return Document{}, fmt.Errorf("invalid %s: %w", k, err)
			}
			score = s
			break
		}
	}

	if p, ok := m["payload"]; ok {
		payload, err := cast.ToStringMapE(p)
		if err != nil {
			return Document{}, fmt.Errorf("invalid payload: %w", err)
		}
		return Document{Score: score, Payload: payload}, nil
	}

	payload := make(map[string]any, len(m))
	for k, v := range m {
		switch k {
		case "score", "raw_semantic_score", "semantic_score":
			continue
		}
		payload[k] = v
	}
	return Document{Score: score, Payload: payload}, nil
}

// LoadFile reads and decodes a hits file.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read retrieval hits: %w", err)
	}
	return Load(data)
}
