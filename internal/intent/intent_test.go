// SPDX-License-Identifier: Apache-2.0

package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaraba/lcis/internal/intent"
)

func TestClassify_Shortcut(t *testing.T) {
	c := intent.NewClassifier()

	tests := []struct {
		name      string
		vertical  string
		action    string
		wantAreas []string
	}{
		{"legal action", "", "legal_search", []string{"legal_search"}},
		{"fiscal action", "emprendimiento", "fiscal", []string{"fiscal"}},
		{"legal vertical", "JarabaLex", "chat", []string{"jarabalex"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify("hola", tt.vertical, tt.action)
			assert.Equal(t, intent.LegalDirect, got.Intent)
			assert.Equal(t, 1.0, got.Score)
			assert.Equal(t, tt.wantAreas, got.Areas)
			assert.True(t, got.Shortcut)
		})
	}
}

func TestClassify_Thresholds(t *testing.T) {
	c := intent.NewClassifier()

	tests := []struct {
		name     string
		query    string
		vertical string
		want     intent.Intent
		wantArea string
	}{
		{
			name:     "several strong terms are direct",
			query:    "¿Qué dice el artículo 14 del Estatuto de los Trabajadores sobre el despido?",
			want:     intent.LegalDirect,
			wantArea: "laboral",
		},
		{
			name:     "compliance family",
			query:    "¿Qué obligaciones impone el RGPD a mi tienda online?",
			want:     intent.ComplianceCheck,
			wantArea: "proteccion_datos",
		},
		{
			name:     "two matches are implicit",
			query:    "Mi casero quiere subirme el alquiler y no sé si puede con mi contrato",
			want:     intent.LegalImplicit,
			wantArea: "vivienda",
		},
		{
			name:     "dismissal verb",
			query:    "¿Puedo despedir a un trabajador de baja?",
			want:     intent.LegalImplicit,
			wantArea: "laboral",
		},
		{
			name:  "one match is a reference",
			query: "¿Cuál es el plazo para entregar el proyecto?",
			want:  intent.LegalReference,
		},
		{
			name:     "area alone is a reference",
			query:    "Necesito un modelo de factura",
			want:     intent.LegalReference,
			wantArea: "fiscal",
		},
		{
			name:  "no signal",
			query: "Receta de tortilla de patatas",
			want:  intent.NonLegal,
		},
		{
			name:  "empty query",
			query: "   ",
			want:  intent.NonLegal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query, tt.vertical, "chat")
			assert.Equal(t, tt.want, got.Intent, "score=%v matches=%v", got.Score, got.Matches)
			assert.GreaterOrEqual(t, got.Score, 0.0)
			assert.LessOrEqual(t, got.Score, 1.0)
			if tt.wantArea != "" {
				assert.Contains(t, got.Areas, tt.wantArea)
			}
		})
	}
}

func TestClassify_LongestPhraseConsumesShorter(t *testing.T) {
	got := intent.NewClassifier().Classify("La Ley Orgánica de protección de datos", "", "")
	assert.Contains(t, got.Matches, "ley organica")
	assert.NotContains(t, got.Matches, "ley")
	assert.Equal(t, intent.ComplianceCheck, got.Intent)
}

func TestClassify_VerticalBonus(t *testing.T) {
	c := intent.NewClassifier()

	base := c.Classify("¿Cuál es el plazo?", "", "")
	boosted := c.Classify("¿Cuál es el plazo?", "empleabilidad", "")
	assert.InDelta(t, base.Score+0.10, boosted.Score, 1e-9)

	none := c.Classify("Receta de tortilla", "empleabilidad", "")
	assert.Equal(t, intent.NonLegal, none.Intent)
	assert.Zero(t, none.Score, "bonus needs some legal signal")
}

func TestClassification_Helpers(t *testing.T) {
	tests := []struct {
		intent     intent.Intent
		full       bool
		disclaimer bool
		light      bool
	}{
		{intent.LegalDirect, true, true, false},
		{intent.ComplianceCheck, true, true, false},
		{intent.LegalImplicit, false, true, false},
		{intent.LegalReference, false, true, true},
		{intent.NonLegal, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.intent.String(), func(t *testing.T) {
			c := intent.Classification{Intent: tt.intent}
			assert.Equal(t, tt.full, c.RequiresFullPipeline())
			assert.Equal(t, tt.disclaimer, c.RequiresDisclaimer())
			assert.Equal(t, tt.light, c.IsLightPipeline())
		})
	}
}

func TestIsLegalAction(t *testing.T) {
	assert.True(t, intent.IsLegalAction("legal_search"))
	assert.True(t, intent.IsLegalAction(" Laboral "))
	assert.False(t, intent.IsLegalAction("faq"))
	assert.False(t, intent.IsLegalAction(""))
	assert.True(t, intent.IsLegalVertical("jarabalex"))
}
