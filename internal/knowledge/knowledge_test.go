// SPDX-License-Identifier: Apache-2.0

package knowledge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaraba/lcis/internal/knowledge"
)

// ---------------------------------------------------------------------------
// Hierarchy
// ---------------------------------------------------------------------------

func TestDefault_LoadsEmbeddedTables(t *testing.T) {
	kb := knowledge.Default()
	require.NotNil(t, kb)
	assert.Same(t, kb, knowledge.Default())
	assert.NotEmpty(t, kb.ViolationPatterns())
	assert.NotEmpty(t, kb.StateCompetences())
	assert.NotEmpty(t, kb.OrganicLawSubjects())
}

func TestRanks_AreOneToNine(t *testing.T) {
	kb := knowledge.Default()
	ranks := kb.Ranks()
	require.Len(t, ranks, 9)

	seen := make(map[int]bool)
	for i, r := range ranks {
		n, ok := kb.Rank(r)
		require.True(t, ok, r)
		assert.Equal(t, i+1, n, r)
		assert.False(t, seen[n], "duplicate rank %d", n)
		seen[n] = true
	}
	assert.Equal(t, knowledge.RankEUPrimary, ranks[0])
	assert.Equal(t, knowledge.RankLocalOrdinance, ranks[8])
	assert.NotContains(t, ranks, knowledge.RankDecreeLaw)
}

func TestIsHigherRank_TotalOrder(t *testing.T) {
	kb := knowledge.Default()
	ranks := kb.Ranks()
	for _, a := range ranks {
		assert.False(t, kb.IsHigherRank(a, a), "%s over itself", a)
		for _, b := range ranks {
			if a == b {
				continue
			}
			ab, ba := kb.IsHigherRank(a, b), kb.IsHigherRank(b, a)
			assert.True(t, ab != ba, "exactly one of %s/%s must be higher", a, b)
		}
	}
}

func TestIsHigherRank_SharedAndUnknown(t *testing.T) {
	kb := knowledge.Default()
	assert.False(t, kb.IsHigherRank(knowledge.RankDecreeLaw, knowledge.RankOrdinaryLaw))
	assert.False(t, kb.IsHigherRank(knowledge.RankOrdinaryLaw, knowledge.RankDecreeLaw))
	assert.True(t, kb.IsHigherRank(knowledge.RankDecreeLaw, knowledge.RankRegionalLaw))
	assert.True(t, kb.IsHigherRank(knowledge.RankLocalOrdinance, "desconocido"))
	assert.False(t, kb.IsHigherRank("desconocido", "otro"))
}

func TestHierarchyWeight(t *testing.T) {
	kb := knowledge.Default()
	assert.Equal(t, 1.00, kb.HierarchyWeight(knowledge.RankEUPrimary))
	assert.Equal(t, 0.98, kb.HierarchyWeight(knowledge.RankConstitution))
	assert.Equal(t, kb.HierarchyWeight(knowledge.RankOrdinaryLaw), kb.HierarchyWeight(knowledge.RankDecreeLaw))
	assert.Equal(t, knowledge.DefaultWeight, kb.HierarchyWeight("inexistente"))

	prev := 2.0
	for _, r := range kb.Ranks() {
		w := kb.HierarchyWeight(r)
		assert.Less(t, w, prev, "weights must decrease with rank: %s", r)
		assert.GreaterOrEqual(t, w, 0.0)
		prev = w
	}
}

func TestParseNormRank(t *testing.T) {
	kb := knowledge.Default()
	tests := []struct {
		in   string
		want knowledge.NormRank
		ok   bool
	}{
		{"constitucion", knowledge.RankConstitution, true},
		{"normativa_local", knowledge.RankLocalOrdinance, true},
		{"Real Decreto-ley", knowledge.RankDecreeLaw, true},
		{" Ley_Organica ", knowledge.RankOrganicLaw, true},
		{"circular", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := kb.ParseNormRank(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

func TestDetectNormRank(t *testing.T) {
	kb := knowledge.Default()
	tests := []struct {
		title string
		want  knowledge.NormRank
	}{
		{"Ley Orgánica 3/2018, de Protección de Datos Personales", knowledge.RankOrganicLaw},
		{"Reglamento (UE) 2016/679 del Parlamento Europeo", knowledge.RankEUSecondary},
		{"Directiva 2019/1152 relativa a condiciones laborales", knowledge.RankEUSecondary},
		{"Real Decreto 123/2024, de 6 de febrero", knowledge.RankStateRegulation},
		{"Real Decreto-ley 8/2020, de medidas urgentes", knowledge.RankDecreeLaw},
		{"Real Decreto Legislativo 2/2015, Estatuto de los Trabajadores", knowledge.RankOrdinaryLaw},
		{"Ley 39/2015 del Procedimiento Administrativo Común", knowledge.RankOrdinaryLaw},
		{"Ley 2/2023 de Andalucía de turismo", knowledge.RankRegionalLaw},
		{"Decreto 12/2020 de la Junta de Andalucía", knowledge.RankRegionalRegulation},
		{"Orden Ministerial de 12 de marzo", knowledge.RankStateRegulation},
		{"Ordenanza municipal de ruidos", knowledge.RankLocalOrdinance},
		{"Constitución Española de 1978", knowledge.RankConstitution},
		{"Artículo 149.1 de la Constitución", knowledge.RankConstitution},
		{"TFUE", knowledge.RankEUPrimary},
		{"receta de cocina", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, kb.DetectNormRank(tt.title))
		})
	}
}

func TestDetectNorms_PositionsAndPriority(t *testing.T) {
	kb := knowledge.Default()
	text := "El Real Decreto 100/2024 deroga la Ley Orgánica 2/2010 de protección de datos."
	got := kb.DetectNorms(text)
	require.Len(t, got, 2)

	assert.Equal(t, "Real Decreto 100/2024", got[0].Text)
	assert.Equal(t, knowledge.RankStateRegulation, got[0].Rank)
	assert.Equal(t, "Ley Orgánica 2/2010", got[1].Text)
	assert.Equal(t, knowledge.RankOrganicLaw, got[1].Rank)
	assert.Less(t, got[0].Start, got[1].Start)
	assert.Equal(t, got[1].Text, text[got[1].Start:got[1].End])
}

func TestDetectNorms_NoMatches(t *testing.T) {
	assert.Empty(t, knowledge.Default().DetectNorms("El plazo es de diez días hábiles."))
}

func TestViolationPatterns_ExcludeDropsMatch(t *testing.T) {
	kb := knowledge.Default()
	var retro knowledge.ViolationPattern
	for _, p := range kb.ViolationPatterns() {
		if p.Type == "retroactivity_violation" {
			retro = p
		}
	}
	require.Equal(t, knowledge.SeverityHigh, retro.Severity)

	assert.NotEmpty(t, retro.FindAll("Las sanciones se aplicarán con efecto retroactivo aunque sean más graves."))
	assert.Empty(t, retro.FindAll("Las sanciones no tienen efecto retroactivo desfavorable."))
}

// ---------------------------------------------------------------------------
// Competences, organic law, foral regimes
// ---------------------------------------------------------------------------

func TestIsStateExclusiveCompetence(t *testing.T) {
	kb := knowledge.Default()

	c, ok := kb.IsStateExclusiveCompetence("La legislación penal corresponde al Estado")
	require.True(t, ok)
	assert.Equal(t, "149.1.6", c.Article)
	assert.True(t, c.Exclusive)

	c, ok = kb.IsStateExclusiveCompetence("régimen de INMIGRACIÓN")
	require.True(t, ok)
	assert.Equal(t, "nacionalidad_inmigracion_extranjeria", c.ID)

	_, ok = kb.IsStateExclusiveCompetence("horarios comerciales de temporada")
	assert.False(t, ok)
}

func TestIsRegionalExclusiveCompetence(t *testing.T) {
	kb := knowledge.Default()
	c, ok := kb.IsRegionalExclusiveCompetence("promoción del turismo rural")
	require.True(t, ok)
	assert.Equal(t, "turismo", c.ID)

	_, ok = kb.IsRegionalExclusiveCompetence("legislación penal")
	assert.False(t, ok)
}

func TestRequiresOrganicLaw(t *testing.T) {
	kb := knowledge.Default()
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"fundamental rights", "regula los derechos fundamentales de reunión", true},
		{"electoral regime", "modifica el régimen electoral general", true},
		{"habeas corpus", "procedimiento de habeas corpus", true},
		{"single keyword is not enough", "los derechos del consumidor", false},
		{"unrelated", "el horario de apertura de comercios", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, ok := kb.RequiresOrganicLaw(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.NotEmpty(t, desc)
			} else {
				assert.Empty(t, desc)
			}
		})
	}
}

func TestForalRegime(t *testing.T) {
	kb := knowledge.Default()

	r, ok := kb.ForalRegime("sucesiones", "Cataluña")
	require.True(t, ok)
	assert.Contains(t, r.Corpus, "Codi Civil de Catalunya")

	r, ok = kb.ForalRegime("régimen económico matrimonial", "Euskadi")
	require.True(t, ok)
	assert.Equal(t, "pais_vasco", r.ID)

	_, ok = kb.ForalRegime("sucesiones", "Madrid")
	assert.False(t, ok, "Madrid follows the Código Civil")

	_, ok = kb.ForalRegime("servidumbres", "Aragón")
	assert.False(t, ok, "subject not covered by the Aragonese code")

	_, ok = kb.ForalRegime("", "")
	assert.False(t, ok)
}

func TestForalRegimeForTerritory(t *testing.T) {
	kb := knowledge.Default()
	r, ok := kb.ForalRegimeForTerritory("Comunidad Foral de Navarra")
	require.True(t, ok)
	assert.Equal(t, "navarra", r.ID)

	_, ok = kb.ForalRegimeForTerritory("Andalucía")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	kb := knowledge.Default()

	r, ok := kb.ForalRegimeForTerritory("Navarra")
	require.True(t, ok)
	require.NotEmpty(t, r.Subjects)
	require.NotEmpty(t, r.Names)
	subject, name := r.Subjects[0], r.Names[0]
	r.Subjects[0], r.Names[0] = "alterado", "alterado"

	again, ok := kb.ForalRegime(subject, "Navarra")
	require.True(t, ok)
	assert.Equal(t, subject, again.Subjects[0])
	assert.Equal(t, name, again.Names[0])

	c, ok := kb.IsStateExclusiveCompetence("legislación penal")
	require.True(t, ok)
	keyword := c.Keywords[0]
	c.Keywords[0] = "alterado"
	assert.Equal(t, keyword, kb.StateCompetences()[indexOf(kb.StateCompetences(), c.ID)].Keywords[0])

	subjects := kb.OrganicLawSubjects()
	first := subjects[0].Keywords[0]
	subjects[0].Keywords[0] = "alterado"
	assert.Equal(t, first, kb.OrganicLawSubjects()[0].Keywords[0])
}

func indexOf(entries []knowledge.CompetenceEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Load errors
// ---------------------------------------------------------------------------

func TestLoad_RejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad regex",
			yaml: "hierarchy:\n  - {key: a, rank: 1, weight: 1}\nnorm_patterns:\n  - {rank: a, regex: '('}\n",
			want: "norm pattern 0",
		},
		{
			name: "unknown rank in pattern",
			yaml: "hierarchy:\n  - {key: a, rank: 1, weight: 1}\nnorm_patterns:\n  - {rank: b, regex: 'x'}\n",
			want: "unknown rank",
		},
		{
			name: "gap in ranks",
			yaml: "hierarchy:\n  - {key: a, rank: 1, weight: 1}\n  - {key: b, rank: 3, weight: 0.5}\n",
			want: "not contiguous",
		},
		{
			name: "weight out of range",
			yaml: "hierarchy:\n  - {key: a, rank: 1, weight: 1.5}\n",
			want: "out of [0,1]",
		},
		{
			name: "bad severity",
			yaml: "violation_patterns:\n  - {type: x, severity: fatal, regex: 'x'}\n",
			want: "invalid severity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := knowledge.Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
