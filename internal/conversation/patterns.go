// SPDX-License-Identifier: Apache-2.0

package conversation

import "regexp"

// Patterns run on folded text (lower case, no diacritics).

// assertionRule tags a sentence with the position it asserts. Rules are
// tried in order and the first match wins for a sentence.
type assertionRule struct {
	position Position
	re       *regexp.Regexp
}

var assertionRules = []assertionRule{
	{
		position: PositionCompetence,
		re: regexp.MustCompile(`competencia\s+exclusiva\s+del\s+estado|` +
			`(?:corresponde|compete)\s+(?:en\s+exclusiva\s+|exclusivamente\s+)?al\s+estado|` +
			`art(?:iculo|\.)?\s*149\.1`),
	},
	{
		position: PositionPrimacy,
		re: regexp.MustCompile(`primacia\s+del\s+derecho\s+(?:de\s+la\s+)?(?:ue|union|comunitario|europeo)|` +
			`(?:derecho\s+(?:de\s+la\s+)?(?:ue|union(?:\s+europea)?|comunitario|europeo)|reglamento\s*\(ue\)|directiva)[^.]*?` +
			`(?:prevalece|prima|se\s+aplica\s+preferentemente|desplaza)`),
	},
	{
		position: PositionVigencia,
		re: regexp.MustCompile(`(?:esta|fue|ha\s+sido|quedo|queda|se\s+encuentra)\s+(?:totalmente\s+|parcialmente\s+|expresamente\s+)?derogad[ao]|` +
			`derogad[ao]\s+por|` +
			`ya\s+no\s+esta\s+(?:vigente|en\s+vigor)`),
	},
	{
		position: PositionOrganicReserve,
		re: regexp.MustCompile(`(?:requiere|requieren|exige|exigen|reservad[ao]s?\s+a|solo\s+(?:puede|pueden)\s+regularse\s+(?:por|mediante))\s+(?:una\s+)?ley\s+organica|` +
			`reserva\s+de\s+ley\s+organica|` +
			`art(?:iculo|\.)?\s*81\s+(?:de\s+la\s+)?(?:ce|constitucion)`),
	},
}

var (
	// regionalClaim: the autonomous communities legislate on something.
	regionalClaim = regexp.MustCompile(`(?:ccaa|comunidades?\s+autonomas?|autonomias|parlamentos?\s+autonomicos?|gobiernos?\s+autonomicos?|(?:ley|leyes|decreto|normativa)\s+autonomicas?)` +
		`[^.]*?(?:pueden|puede|podran|podra|tienen\s+competencia|son\s+competentes|es\s+competente|legislan|legisla|regulan|regula)`)
	regionalNegation = regexp.MustCompile(`\bno\s+(?:pueden|puede|podran|podra|tienen|tiene|son|es|legislan|legisla|regulan|regula)\b`)

	// domesticPrimacy: national law said to prevail over EU law.
	domesticPrimacy = regexp.MustCompile(`(?:constitucion|ley(?:\s+organica)?|derecho\s+(?:interno|nacional|espanol)|normativa\s+(?:nacional|espanola|interna)|legislacion\s+(?:nacional|espanola|interna))` +
		`[^.]*?(?:prevalece|prima|se\s+impone|se\s+aplica\s+preferentemente|desplaza)\s+[^.]*?` +
		`(?:derecho\s+(?:de\s+la\s+)?(?:ue|union|comunitario|europeo)|reglamento\s*\(ue\)|reglamento\s+europeo|directiva|normativa\s+(?:europea|comunitaria))`)

	inForce      = regexp.MustCompile(`\b(?:vigente|en\s+vigor|se\s+aplica|es\s+aplicable|resulta\s+(?:de\s+)?aplica|sigue\s+aplicandose|establece|dispone)`)
	derogationKw = regexp.MustCompile(`derog|anulad|ya\s+no|dejo\s+de|sustituid`)

	// subOrganicRegulation: a matter regulated by ordinary law or a decree.
	subOrganicRegulation = regexp.MustCompile(`(?:ley\s+ordinaria|ley\s+\d+/\d{4}|real\s+decreto|decreto(?:[- ]ley)?|reglamento|orden\s+ministerial)` +
		`[^.]*?(?:regula|pueden?\s+regular|desarrolla|establece|basta)|` +
		`(?:se\s+)?(?:regula(?:n|rse|r)?|pueden?\s+regular(?:se)?|basta\s+con)\s+(?:por\s+|mediante\s+)?(?:una?\s+)?(?:ley\s+ordinaria|real\s+decreto|decreto|reglamento)`)
	organicMention = regexp.MustCompile(`ley\s+organica`)
)
