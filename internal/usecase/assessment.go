package usecase

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
	"github.com/enempro/enem-pro-api/pkg/jsonx"
)

// Generator sampling: higher temperature than the gate for varied prose,
// larger budget for five explanatory paragraphs.
const (
	assessmentTemperature = 0.7
	assessmentMaxTokens   = 2000
)

// Fallback score applied per criterion when the model response is unusable.
const fallbackCriterionScore = 140

const assessmentPromptFormat = `Você é um corretor especialista em redações do ENEM. Avalie a seguinte redação sobre o tema "%s" de acordo com as 5 competências do ENEM, atribuindo uma nota de 0 a 200 para cada competência e explicando o motivo da pontuação. Também forneça sugestões de melhoria para cada competência.

Competências do ENEM:
%s

Redação:
"%s"

Forneça a resposta no seguinte formato JSON:
{
  "competencias": [
    {
      "numero": 1,
      "nome": "Domínio da modalidade escrita formal",
      "nota": 160,
      "explicacao": "Explicação detalhada da nota",
      "sugestoes": "Sugestões específicas de melhoria"
    }
  ],
  "nota_total": 800,
  "comentario_geral": "Comentário geral sobre a redação"
}`

// fullAssessmentResponse is the JSON shape requested from the model.
type fullAssessmentResponse struct {
	Competencies   []domain.CompetencyScore `json:"competencias"`
	Total          int                      `json:"nota_total"`
	GeneralComment string                   `json:"comentario_geral"`
}

// GenerateAssessment produces the full five-competency breakdown via the
// second LLM call. A malformed or missing model response never surfaces as
// an error: it degrades to a neutral, clearly generic assessment that keeps
// the raw model text in the general comment so nothing is silently dropped.
//
// The model's nota_total is passed through as supplied, without being
// reconciled against the per-criterion sum.
func (s EssayService) GenerateAssessment(ctx domain.Context, essay, theme string) domain.Assessment {
	assessment, _ := s.generateAssessment(ctx, essay, theme)
	return assessment
}

// generateAssessment also reports which outcome was taken so the
// orchestrator can emit it to the observer.
func (s EssayService) generateAssessment(ctx domain.Context, essay, theme string) (domain.Assessment, string) {
	lg := obsctx.LoggerFromContext(ctx)
	prompt := fmt.Sprintf(assessmentPromptFormat, theme, competencyListing(), essay)

	text, err := s.Chat.Complete(ctx, prompt, assessmentTemperature, assessmentMaxTokens)
	if err != nil {
		lg.Warn("full assessment call failed, using fallback assessment",
			slog.String("stage", "full"), slog.Any("error", err))
		return fallbackAssessment(""), domain.OutcomeFallback
	}

	var parsed fullAssessmentResponse
	if err := jsonx.ExtractObject(text, &parsed); err != nil {
		lg.Warn("full assessment response had no parseable JSON, using fallback assessment",
			slog.String("stage", "full"), slog.Any("error", err))
		return fallbackAssessment(text), domain.OutcomeFallback
	}
	if len(parsed.Competencies) != len(rubric.Competencies) {
		lg.Warn("full assessment response malformed, using fallback assessment",
			slog.String("stage", "full"), slog.Int("competencies", len(parsed.Competencies)))
		return fallbackAssessment(text), domain.OutcomeFallback
	}

	return domain.Assessment{
		Competencies:   parsed.Competencies,
		Total:          parsed.Total,
		GeneralComment: parsed.GeneralComment,
		ThemeDeviation: false,
	}, domain.OutcomeAdherent
}

// competencyListing renders the numbered full competency names for the
// rubric prompt.
func competencyListing() string {
	lines := make([]string, 0, len(rubric.Competencies))
	for _, c := range rubric.Competencies {
		lines = append(lines, fmt.Sprintf("%d. %s", c.Number, c.FullName))
	}
	return strings.Join(lines, "\n")
}

// fallbackAssessment is the deterministic substitute for an unusable model
// response: every criterion at 140, total 700, the raw model text preserved
// as the general comment.
func fallbackAssessment(rawText string) domain.Assessment {
	competencies := make([]domain.CompetencyScore, 0, len(rubric.Competencies))
	total := 0
	for _, c := range rubric.Competencies {
		competencies = append(competencies, domain.CompetencyScore{
			Number:      c.Number,
			Name:        c.Name,
			Score:       fallbackCriterionScore,
			Explanation: rubric.FallbackExplanation,
			Suggestions: c.FallbackSuggestion,
		})
		total += fallbackCriterionScore
	}
	comment := rawText
	if comment == "" {
		comment = rubric.FallbackExplanation
	}
	return domain.Assessment{
		Competencies:   competencies,
		Total:          total,
		GeneralComment: comment,
		ThemeDeviation: false,
	}
}
