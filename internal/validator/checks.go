// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/textfold"
)

var (
	// prevalence phrasing, matched on the original sentence.
	prevalenceRe = regexp.MustCompile(`(?i)prevalece\s+sobre|prima\s+sobre|\bderoga\b|\banula\b|deja\s+sin\s+efecto|se\s+aplica\s+preferentemente|sustituye\s+a|\binvalida\b|se\s+impone\s+sobre`)

	regionalNormRe = regexp.MustCompile(`(?i)\b(?:Ley|Decreto|normativa|legislaci[oó]n)\s+(?:auton[oó]mica|(?:\d+/\d{4},?\s+)?(?:de\s+la\s+|del\s+|de\s+)(?:Comunidad\s+(?:Aut[oó]noma\s+)?de\s+\p{L}+|Andaluc[ií]a|Catalu[nñ]a|Pa[ií]s\s+Vasco|Madrid|Galicia|Arag[oó]n|Valencia|Canarias|Navarra|Generalitat|Junta\s+de\s+\p{L}+))[^.]{0,100}`)

	nonOrganicRe = regexp.MustCompile(`(?i)\b(?:Ley\s+\d+/\d{4}|Real\s+Decreto|Decreto[- ]ley|Orden\s+Ministerial|ley\s+ordinaria)\s+[^.]{0,100}?(?:regula|desarrolla|establece|aprueba)\s+[^.]{0,100}`)

	oldNormRe = regexp.MustCompile(`(?i)\b(?:Ley\s+Org[aá]nica|Real\s+Decreto(?:[- ]ley|\s+Legislativo)?|Ley)\s+\d+/(\d{4})\b`)
)

var vigenciaKeywords = []string{"vigente", "derogad", "modificad", "sustituid", "actualizad", "consolidad", "en vigor"}

type hierarchyResult struct {
	violations []Violation
	checks     int
}

// checkHierarchy runs the phrasing patterns over the whole text, then a
// structural pass per sentence: when a sentence says one norm prevails over
// another, the norm before the keyword must not rank below the one after it.
// EU law placed first is exempt since it does prevail.
func (v *Validator) checkHierarchy(output string) hierarchyResult {
	var res hierarchyResult

	for _, p := range v.kb.ViolationPatterns() {
		res.checks++
		for _, m := range p.FindAll(output) {
			res.violations = append(res.violations, Violation{
				Type:        p.Type,
				Severity:    p.Severity,
				Description: p.Description,
				Match:       textfold.Truncate(m, 200),
				Source:      "pattern",
			})
		}
	}

	for _, sentence := range textfold.Sentences(output) {
		res.checks++
		kws := prevalenceRe.FindAllStringIndex(sentence, -1)
		if len(kws) == 0 {
			continue
		}
		norms := v.kb.DetectNorms(sentence)
		if len(norms) < 2 {
			continue
		}
		if vi, ok := v.structuralInversion(sentence, norms, kws); ok {
			res.violations = append(res.violations, vi)
		}
	}
	return res
}

// structuralInversion compares the norms before a prevalence keyword with
// its object, the first norm after it. Norms further along the sentence
// belong to other clauses ("..., conforme a la Constitución").
func (v *Validator) structuralInversion(sentence string, norms []knowledge.NormMatch, kws [][]int) (Violation, bool) {
	for _, kw := range kws {
		var (
			before []knowledge.NormMatch
			hi     knowledge.NormMatch
			found  bool
		)
		for _, n := range norms {
			if n.End <= kw[0] {
				before = append(before, n)
			} else if n.Start >= kw[1] && !found {
				hi, found = n, true
			}
		}
		if !found {
			continue
		}
		for _, lo := range before {
			if lo.Rank.IsEU() || !v.kb.IsHigherRank(hi.Rank, lo.Rank) {
				continue
			}
			return Violation{
				Type:        TypeHierarchyInversionStructural,
				Severity:    knowledge.SeverityCritical,
				Description: fmt.Sprintf("Se afirma que %s (%s, rango %d) prevalece sobre %s (%s, rango %d)", lo.Text, v.label(lo.Rank), v.rank(lo.Rank), hi.Text, v.label(hi.Rank), v.rank(hi.Rank)),
				Match:       textfold.Truncate(sentence, 200),
				Source:      "structural",
			}, true
		}
	}
	return Violation{}, false
}

func (v *Validator) label(r knowledge.NormRank) string {
	if l, ok := v.kb.Level(r); ok {
		return l.Label
	}
	return string(r)
}

func (v *Validator) rank(r knowledge.NormRank) int {
	n, _ := v.kb.Rank(r)
	return n
}

type competenceResult struct {
	violations []Violation
	checks     int
}

// checkCompetence looks at every mention of a regional norm and flags the
// ones that regulate a State-exclusive matter.
func (v *Validator) checkCompetence(output string) competenceResult {
	var res competenceResult
	for _, m := range regionalNormRe.FindAllString(output, -1) {
		res.checks++
		c, ok := v.kb.IsStateExclusiveCompetence(m)
		if !ok {
			continue
		}
		res.violations = append(res.violations, Violation{
			Type:        TypeCompetenceViolation,
			Severity:    knowledge.SeverityCritical,
			Description: fmt.Sprintf("Se atribuye a normativa autonómica la regulación de %q (competencia exclusiva del Estado, Art. %s CE)", c.Label, c.Article),
			Match:       textfold.Truncate(m, 200),
			Source:      "competence_check",
		})
	}
	return res
}

// checkOrganicLaw flags non-organic norms said to regulate a matter reserved
// to Ley Orgánica.
func (v *Validator) checkOrganicLaw(output string) []Violation {
	var out []Violation
	for _, m := range nonOrganicRe.FindAllString(output, -1) {
		desc, ok := v.kb.RequiresOrganicLaw(m)
		if !ok {
			continue
		}
		out = append(out, Violation{
			Type:        TypeOrganicLawViolation,
			Severity:    knowledge.SeverityCritical,
			Description: fmt.Sprintf("Se afirma que una norma no orgánica regula materia reservada a Ley Orgánica: %s (Art. 81 CE)", desc),
			Match:       textfold.Truncate(m, 200),
			Source:      "organic_law_check",
		})
	}
	return out
}

// checkVigencia warns about old norms cited in a sentence that says nothing
// about whether they are still in force.
func (v *Validator) checkVigencia(output string) []Warning {
	var out []Warning
	seen := make(map[string]bool)
	sentences := textfold.Sentences(output)
	for _, m := range oldNormRe.FindAllStringSubmatch(output, -1) {
		year, err := strconv.Atoi(m[1])
		if err != nil || year >= v.opts.VigenciaCutoffYear || seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		if textfold.ContainsAny(textfold.Fold(sentenceContaining(sentences, m[0])), vigenciaKeywords) {
			continue
		}
		out = append(out, Warning{
			Type:     TypeVigenciaNotMentioned,
			Severity: knowledge.SeverityLow,
			Detail:   fmt.Sprintf("Norma anterior a %d citada sin mención de vigencia: %s. Recomendar verificación.", v.opts.VigenciaCutoffYear, m[0]),
			Match:    m[0],
		})
	}
	return out
}

func sentenceContaining(sentences []string, needle string) string {
	for _, s := range sentences {
		if strings.Contains(s, needle) {
			return s
		}
	}
	return ""
}

type contradictionPair struct {
	a, b *regexp.Regexp
	desc string
}

// Pairs of mutually exclusive statements, on folded text.
var contradictionPairs = []contradictionPair{
	{
		a:    regexp.MustCompile(`es\s+competencia\s+exclusiva\s+del\s+estado`),
		b:    regexp.MustCompile(`(?:las?\s+)?(?:ccaa|comunidades?\s+autonomas?)\s+(?:pueden|tienen?\s+competencia\s+para)\s+legislar`),
		desc: "Competencia exclusiva del Estado frente a legislación autonómica",
	},
	{
		a:    regexp.MustCompile(`no\s+tiene[n]?\s+efecto\s+retroactivo`),
		b:    regexp.MustCompile(`se\s+aplica[n]?\s+retroactivamente`),
		desc: "Irretroactividad frente a aplicación retroactiva",
	},
	{
		a:    regexp.MustCompile(`requiere[n]?\s+ley\s+organica`),
		b:    regexp.MustCompile(`(?:se\s+)?regula[n]?\s+(?:por|mediante)\s+(?:una?\s+)?(?:ley\s+ordinaria|decreto|reglamento)`),
		desc: "Reserva de Ley Orgánica frente a regulación por norma inferior",
	},
}

func checkInternalContradictions(output string) []Warning {
	folded := textfold.Fold(output)
	var out []Warning
	for _, p := range contradictionPairs {
		if p.a.MatchString(folded) && p.b.MatchString(folded) {
			out = append(out, Warning{
				Type:     TypeInternalContradiction,
				Severity: knowledge.SeverityMedium,
				Detail:   fmt.Sprintf("Posible contradicción interna: %s. Verificar contexto.", p.desc),
				Match:    p.desc,
			})
		}
	}
	return out
}

type falsePremise struct {
	re         *regexp.Regexp
	correction string
}

// Premises users often get wrong, matched on the folded query.
var falsePremises = []falsePremise{
	{regexp.MustCompile(`autonomo.*no.*coti[cz]a.*desempleo`), "Los autónomos sí pueden cotizar por cese de actividad (RETA)"},
	{regexp.MustCompile(`ley.*(?:catalana|vasca|gallega|andaluza|autonomica).*(?:penal|mercantil|laboral)`), "La legislación penal, mercantil y laboral es competencia exclusiva del Estado (Art. 149.1 CE)"},
	{regexp.MustCompile(`(?:municipio|ayuntamiento|ordenanza).*puede.*derogar.*ley`), "Las ordenanzas municipales no pueden derogar leyes"},
	{regexp.MustCompile(`(?:ccaa|comunidad\s+autonoma|comunidades\s+autonomas).*(?:legislar|aprobar).*(?:codigo\s+penal|legislacion\s+penal)`), "La legislación penal es competencia exclusiva estatal (Art. 149.1.6 CE)"},
	{regexp.MustCompile(`directiva.*no.*(?:efecto|aplicable).*(?:no\s+transpuesta|sin\s+transponer)`), "Las directivas con disposiciones claras, precisas e incondicionales sí tienen efecto directo vertical (Van Gend en Loos)"},
}

var correctionKeywords = []string{
	"sin embargo", "no obstante", "es incorrecto", "no es correcto", "en realidad",
	"conviene aclarar", "conviene precisar", "premisa", "matizar", "cabe senalar", "aclaracion",
}

// checkSycophancy flags a query built on a known false premise when the
// output never corrects it.
func checkSycophancy(output, query string) []Warning {
	q := textfold.Fold(query)
	corrected := textfold.ContainsAny(textfold.Fold(output), correctionKeywords)
	var out []Warning
	for _, p := range falsePremises {
		if !p.re.MatchString(q) || corrected {
			continue
		}
		out = append(out, Warning{
			Type:     TypeSycophancyRisk,
			Severity: knowledge.SeverityMedium,
			Detail:   fmt.Sprintf("La consulta puede contener una premisa incorrecta no corregida: %s", p.correction),
			Match:    textfold.Truncate(query, 200),
		})
	}
	return out
}

var (
	conflictKeywords   = []string{"contradice", "conflicto", "incompatible", "contrapone", "colision", "antinomia"}
	resolutionKeywords = []string{"lex posterior", "lex specialis", "norma posterior", "norma especial", "prevalece la", "se aplica preferentemente"}
)

// checkAntinomies warns when two norms of the same rank are said to conflict
// and no resolution criterion is given.
func (v *Validator) checkAntinomies(output string) []Warning {
	folded := textfold.Fold(output)
	if !textfold.ContainsAny(folded, conflictKeywords) || textfold.ContainsAny(folded, resolutionKeywords) {
		return nil
	}

	var order []knowledge.NormRank
	byRank := make(map[knowledge.NormRank][]string)
	for _, m := range v.kb.DetectNorms(output) {
		texts, ok := byRank[m.Rank]
		if !ok {
			order = append(order, m.Rank)
		}
		if !contains(texts, m.Text) {
			byRank[m.Rank] = append(texts, m.Text)
		}
	}

	var out []Warning
	for _, r := range order {
		norms := byRank[r]
		if len(norms) < 2 {
			continue
		}
		out = append(out, Warning{
			Type:     TypeUnresolvedAntinomy,
			Severity: knowledge.SeverityMedium,
			Detail: fmt.Sprintf("Se mencionan normas del mismo rango (%s) en posible conflicto sin criterio de resolución (lex posterior/lex specialis): %s",
				v.label(r), strings.Join(norms[:min(3, len(norms))], ", ")),
			Match: strings.Join(norms[:2], " vs "),
		})
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
