// SPDX-License-Identifier: Apache-2.0

// Package promptrule prepends the legal coherence rules to LLM system prompts.
package promptrule

import (
	"fmt"
	"strings"

	"github.com/jaraba/lcis/internal/intent"
	"github.com/jaraba/lcis/internal/knowledge"
)

const fullRules = `## REGLAS DE COHERENCIA JURÍDICA (obligatorias)
R1. JERARQUÍA NORMATIVA: Derecho UE primario > Constitución > Derecho UE derivado > Ley Orgánica > Ley ordinaria y Real Decreto-ley > Ley autonómica > Reglamento estatal > Reglamento autonómico > Normativa local. Una norma inferior nunca deroga ni prevalece sobre una superior (Art. 9.3 CE).
R2. PRIMACÍA DEL DERECHO UE: el Derecho de la Unión prevalece sobre cualquier norma interna, incluida la ley posterior (Costa v. ENEL 6/64, Simmenthal 106/77). No afirmes lo contrario.
R3. COMPETENCIAS: respeta el reparto de los Arts. 148 y 149 CE. La legislación penal, mercantil, procesal, laboral y civil (salvo derechos forales) es competencia exclusiva del Estado; no la atribuyas a las Comunidades Autónomas.
R4. RESERVA DE LEY ORGÁNICA: los derechos fundamentales, el régimen electoral, los Estatutos de Autonomía y las demás materias del Art. 81 CE solo pueden regularse por Ley Orgánica.
R5. IRRETROACTIVIDAD: las disposiciones sancionadoras no favorables o restrictivas de derechos individuales no tienen efecto retroactivo (Art. 9.3 CE).
R6. VIGENCIA: indica si la norma citada está vigente, derogada o modificada. Nunca presentes como vigente una norma derogada.
R7. COHERENCIA: no te contradigas dentro de la respuesta ni respecto a lo afirmado en turnos anteriores; si detectas un conflicto entre normas del mismo rango, resuélvelo con lex posterior o lex specialis.
R8. HUMILDAD JURÍDICA: si no tienes certeza sobre la norma aplicable o su vigencia, dilo expresamente y recomienda verificarlo en fuentes oficiales (BOE, EUR-Lex, CENDOJ) o con un profesional.`

const shortRules = `## COHERENCIA JURÍDICA
R1. Jerarquía: UE > CE > LO > Ley > Ley autonómica > Reglamento > Local; lo inferior no deroga lo superior.
R2. El Derecho UE prevalece sobre el derecho interno.
R3. Penal, mercantil, procesal, laboral y civil son competencia exclusiva del Estado (Art. 149.1 CE).
R4. Derechos fundamentales y materias del Art. 81 CE exigen Ley Orgánica.
R5. Sin retroactividad de normas sancionadoras desfavorables (Art. 9.3 CE).
R6. Indica siempre la vigencia de la norma citada.
R7. Sin contradicciones internas ni con turnos anteriores.`

// commonForalSubjects are the subjects checked when a territory is given
// without one.
var commonForalSubjects = []string{"sucesiones", "regimen economico matrimonial", "derechos reales", "derecho de familia"}

// lightActions get the short rule block.
var lightActions = map[string]bool{
	"faq":             true,
	"legal_alerts":    true,
	"legal_citations": true,
}

// Builder renders rule blocks. A nil *knowledge.Base means the default one.
type Builder struct {
	kb *knowledge.Base
}

// New returns a Builder over kb.
func New(kb *knowledge.Base) *Builder {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Builder{kb: kb}
}

// Rules returns the rule block alone.
func Rules(short bool) string {
	if short {
		return shortRules
	}
	return fullRules
}

// Apply prepends the full (or short) rule block to base.
func (b *Builder) Apply(base string, short bool) string {
	return join(Rules(short), base)
}

// ApplyWithTerritory is Apply plus an R9 territorial block and, if the
// territory has its own civil law, a NOTA FORAL naming it.
func (b *Builder) ApplyWithTerritory(base, territory string, short bool) string {
	territory = strings.TrimSpace(territory)
	if territory == "" {
		return b.Apply(base, short)
	}
	return join(Rules(short)+"\n"+b.territoryBlock(territory), base)
}

func (b *Builder) territoryBlock(territory string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "R9. CONTEXTO TERRITORIAL: la consulta se refiere a %s. Aplica la normativa estatal y, en las materias de competencia autonómica, la de %s; advierte si una norma citada pertenece a otra Comunidad Autónoma.", territory, territory)

	for _, s := range commonForalSubjects {
		r, ok := b.kb.ForalRegime(s, territory)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\nNOTA FORAL: en %s rige el %s para %s, con preferencia sobre el Código Civil (Art. 149.1.8 CE).",
			r.Region, r.Corpus, strings.Join(r.Subjects, ", "))
		break
	}
	return sb.String()
}

func join(rules, base string) string {
	if strings.TrimSpace(base) == "" {
		return rules
	}
	return rules + "\n\n" + base
}

// RequiresCoherence reports whether prompts for action (in vertical) get the
// rules at all.
func RequiresCoherence(action, vertical string) bool {
	return intent.IsLegalAction(action) || intent.IsLegalVertical(vertical)
}

// UseShortVersion reports whether action is light enough for the short block.
func UseShortVersion(action string) bool {
	return lightActions[strings.ToLower(strings.TrimSpace(action))]
}
