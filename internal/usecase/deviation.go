package usecase

import (
	"fmt"
	"strings"

	"github.com/enempro/enem-pro-api/internal/domain"
)

// Fixed per-criterion scores by deviation kind. Unknown kinds score as a
// total departure.
var deviationScores = map[string]int{
	domain.DeviationTotal:      0,
	domain.DeviationTangential: 40,
}

// ScoreDeviation maps a gate verdict onto the deterministic off-topic score
// table. Pure: no I/O, same verdict in, same assessment out. The total
// always equals the sum of the five criterion scores.
func ScoreDeviation(verdict domain.ThemeVerdict) domain.Assessment {
	kind := verdict.DeviationKind
	perCriterion, ok := deviationScores[kind]
	if !ok {
		kind = domain.DeviationTotal
		perCriterion = deviationScores[kind]
	}

	competencies := make([]domain.CompetencyScore, 0, len(rubric.Competencies))
	total := 0
	for _, c := range rubric.Competencies {
		competencies = append(competencies, domain.CompetencyScore{
			Number:      c.Number,
			Name:        c.Name,
			Score:       perCriterion,
			Explanation: c.deviationExplanation(kind, verdict.Explanation),
			Suggestions: c.Suggestion,
		})
		total += perCriterion
	}

	return domain.Assessment{
		Competencies:   competencies,
		Total:          total,
		GeneralComment: deviationComment(kind, verdict),
		ThemeDeviation: true,
		DeviationKind:  kind,
		ThemeKeywords:  verdict.ThemeKeywords,
		FoundKeywords:  verdict.FoundKeywords,
	}
}

// deviationComment synthesizes the general comment from the verdict's
// reasoning and the keyword sets, noting explicitly when no theme keyword
// appeared in the essay.
func deviationComment(kind string, verdict domain.ThemeVerdict) string {
	label := "TANGENCIAMENTO"
	consequence := "a nota máxima seria 200 pontos"
	if kind == domain.DeviationTotal {
		label = "FUGA TOTAL"
		consequence = "isso resultaria em NOTA ZERO"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ ATENÇÃO: %s DO TEMA DETECTADO!\n\n", label)
	b.WriteString(verdict.Explanation)
	if len(verdict.ThemeKeywords) > 0 {
		fmt.Fprintf(&b, "\n\nPalavras-chave do tema que deveriam ser abordadas: %s", strings.Join(verdict.ThemeKeywords, ", "))
	}
	if len(verdict.FoundKeywords) > 0 {
		fmt.Fprintf(&b, "\n\nPalavras encontradas na redação: %s", strings.Join(verdict.FoundKeywords, ", "))
	} else {
		b.WriteString("\n\nNenhuma palavra-chave do tema foi encontrada na redação.")
	}
	fmt.Fprintf(&b, "\n\nNo ENEM real, %s!", consequence)
	return b.String()
}
