// Package classifier assigns an intent to a free-text user message using
// deterministic pattern matching. Classification never fails: a message
// matching nothing is conversational, not an error.
package classifier

import (
	"regexp"
	"strings"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// Tunable scoring parameters. The numeric values are load-bearing for
// routing behavior; change them only together with the routing tables.
const (
	// CaseContextBoost is added to the case_query score when a case is
	// already open and the message uses case-referring language.
	CaseContextBoost = 0.3

	// ScoreFloor is the minimum winning score. Below it the message is
	// treated as general conversation.
	ScoreFloor = 0.1

	// DefaultConfidence is reported when no pattern set wins.
	DefaultConfidence = 0.5
)

// intentPatterns pairs an intent with its ordered pattern set. Slice
// order is the tie-break order: the first intent to reach the top score
// keeps it.
type intentPatterns struct {
	intent   domain.Intent
	patterns []*regexp.Regexp
}

var patternSets = []intentPatterns{
	{domain.IntentLegalAnalysis, compileAll(
		`anali[zc]a|an[áa]lisis`,
		`fundamentos?\s+(jur[íi]dic|legal)`,
		`jurisprudencia`,
		`viabilidad`,
		`argumentos?\s+legal`,
		`estrategia\s+(legal|procesal)`,
		`riesgos?\s+(legal|jur[íi]dic)`,
	)},
	{domain.IntentDocumentDrafting, compileAll(
		`redacta(r|me)?`,
		`borrador`,
		`escrito\s+de`,
		`prepara\s+(un|una|el|la)\s+(demanda|contrato|recurso|carta)`,
		`genera\s+(un|el)\s+documento`,
		`\bdraft\b`,
	)},
	{domain.IntentProceduralQuery, compileAll(
		`cu[áa]ntos?\s+d[íi]as`,
		`plazos?\b`,
		`apelar|apelaci[óo]n`,
		`recurso\s+de`,
		`procedimiento`,
		`c[óo]mo\s+(se\s+)?presenta`,
		`vencimiento`,
		`t[ée]rminos?\s+procesal`,
	)},
	{domain.IntentDocumentSummary, compileAll(
		`res[úu]me(n|me)?|resumir`,
		`sintetiza`,
		`puntos\s+(clave|principales)`,
		`de\s+qu[ée]\s+trata`,
		`summar(y|ize)`,
		`este\s+(contrato|documento|escrito)`,
	)},
	{domain.IntentCaseQuery, compileAll(
		`\bmi\s+caso\b|\bel\s+caso\b`,
		`expediente`,
		`estado\s+(del?|de\s+mi)`,
		`qu[ée]\s+tareas`,
		`pr[óo]xim[ao]s?\s+(audiencia|fecha|vencimiento)`,
		`notas\s+del\s+caso`,
	)},
	{domain.IntentGeneralChat, compileAll(
		`\bhola\b|buen[oa]s\s+(d[íi]as|tardes|noches)`,
		`\bgracias\b`,
		`qui[ée]n\s+eres|qu[ée]\s+puedes\s+hacer`,
		`\bhello\b|\bhi\b`,
	)},
}

// caseTerms marks case-referring language eligible for the context boost.
var caseTerms = regexp.MustCompile(`caso|expediente|asunto|\bcase\b`)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Classify scores message against every intent's pattern set and returns
// the best intent with a confidence in [0,1]. hasCaseContext indicates an
// open case accompanies the request, which biases ambiguous
// case-referring language toward case_query.
func Classify(message string, hasCaseContext bool) (domain.Intent, float64) {
	msg := strings.TrimSpace(message)

	best := domain.IntentGeneralChat
	bestScore := 0.0

	for _, set := range patternSets {
		matched := 0
		for _, p := range set.patterns {
			if p.MatchString(msg) {
				matched++
			}
		}
		score := float64(matched) / float64(len(set.patterns))

		if set.intent == domain.IntentCaseQuery && hasCaseContext && caseTerms.MatchString(msg) {
			score += CaseContextBoost
		}

		// Strictly greater: ties keep the first-found intent.
		if score > bestScore {
			bestScore = score
			best = set.intent
		}
	}

	if bestScore < ScoreFloor {
		return domain.IntentGeneralChat, DefaultConfidence
	}

	if bestScore > 1.0 {
		bestScore = 1.0
	}
	return best, bestScore
}
