// SPDX-License-Identifier: Apache-2.0

package validator

import "strings"

var criticalDirectives = map[string]string{
	TypeHierarchyInversion:           "CRÍTICO: No afirmes que una norma de rango inferior deroga o prevalece sobre una de rango superior. Respeta la jerarquía: Derecho UE > CE > LO > Ley > RD > Ley autonómica > Normativa local.",
	TypeHierarchyInversionStructural: "CRÍTICO: No afirmes que una norma de rango inferior deroga o prevalece sobre una de rango superior. Respeta la jerarquía: Derecho UE > CE > LO > Ley > RD > Ley autonómica > Normativa local.",
	TypeCompetenceViolation:          "CRÍTICO: La materia mencionada es competencia exclusiva del Estado (Art. 149.1 CE). No atribuyas esta regulación a normativa autonómica.",
	TypeEUPrimacyViolation:           "CRÍTICO: El Derecho de la UE prevalece sobre el derecho interno. No afirmes lo contrario (Costa v. ENEL 6/64).",
	TypeOrganicLawViolation:          "CRÍTICO: Esta materia requiere Ley Orgánica (Art. 81 CE). No la atribuyas a ley ordinaria ni a reglamento.",
	TypeRetroactivityViolation:       "CRÍTICO: Las disposiciones sancionadoras desfavorables no tienen efecto retroactivo (Art. 9.3 CE).",
}

const genericDirective = "Revisa la coherencia jurídica de tu respuesta y verifica la jerarquía y vigencia de las normas citadas."

// regenerationConstraints returns one directive per distinct violation,
// in order of first appearance.
func regenerationConstraints(violations []Violation) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, v := range violations {
		if d, ok := criticalDirectives[v.Type]; ok {
			add(d)
			continue
		}
		add("Revisa la coherencia jurídica de tu respuesta: " + v.Description)
	}
	if len(out) == 0 {
		add(genericDirective)
	}
	return out
}

// blockedResponse replaces an output that could not be fixed.
func blockedResponse(violations []Violation) string {
	var b strings.Builder
	b.WriteString("La respuesta generada contiene inconsistencias jurídicas que impiden su entrega. ")
	b.WriteString("Esto protege la calidad y fiabilidad de la información legal.\n\n")
	b.WriteString("**Problemas detectados:**\n")
	for _, v := range violations {
		b.WriteString("- " + v.Description + "\n")
	}
	b.WriteString("\n**Recomendación:** Reformule su consulta o consulte directamente la normativa en las fuentes oficiales (BOE, EUR-Lex, CENDOJ).")
	return b.String()
}

// WarningNotice renders an advisory listing the findings of r, for callers
// that want to show them next to a warned output. It is empty when there is
// nothing to report.
func WarningNotice(r Result) string {
	if len(r.Violations) == 0 && len(r.Warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n---\n**Aviso de coherencia jurídica:** Se han detectado posibles imprecisiones en esta respuesta:\n")
	for _, v := range r.Violations {
		b.WriteString("- [!] " + v.Description + "\n")
	}
	for _, w := range r.Warnings {
		b.WriteString("- [i] " + w.Detail + "\n")
	}
	b.WriteString("\nSe recomienda verificar la información con las fuentes oficiales.")
	return b.String()
}
