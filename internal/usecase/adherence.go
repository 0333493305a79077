package usecase

import (
	"fmt"

	"log/slog"

	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
	"github.com/enempro/enem-pro-api/pkg/jsonx"
)

// Gate sampling: low temperature for a stable classification, bounded output.
const (
	gateTemperature = 0.3
	gateMaxTokens   = 800
)

const adherencePromptFormat = `Você é um corretor especializado do ENEM. Analise se esta redação ESTÁ NO TEMA proposto.

TEMA PROPOSTO: "%s"

REDAÇÃO: "%s"

CRITÉRIOS RÍGIDOS (como no ENEM real):
- FUGA TOTAL: redação não menciona nada relacionado ao tema específico = NOTA ZERO automática
- TANGENCIAMENTO: aborda assunto geral mas não o recorte específico do tema = máximo 40 pontos por competência
- ADERENTE: aborda especificamente o tema proposto

Analise se há palavras-chave do tema na redação e se o foco está correto.

Responda APENAS no formato JSON:
{
  "aderente_ao_tema": true/false,
  "tipo_desvio": "nenhum" | "tangenciamento" | "fuga_total",
  "explicacao": "explicação detalhada do motivo",
  "palavras_chave_tema": ["palavra1", "palavra2"],
  "palavras_chave_encontradas": ["palavra1"],
  "pode_prosseguir": true/false,
  "nivel_gravidade": 0-10
}`

// CheckAdherence classifies the essay against its theme with a single LLM
// call. The gate fails open: any failure (endpoint unreachable, no JSON in
// the response, parse error) yields the default adherent verdict so an
// infrastructure fault never penalizes the candidate.
func (s EssayService) CheckAdherence(ctx domain.Context, essay, theme string) domain.ThemeVerdict {
	lg := obsctx.LoggerFromContext(ctx)
	prompt := fmt.Sprintf(adherencePromptFormat, theme, essay)

	text, err := s.Chat.Complete(ctx, prompt, gateTemperature, gateMaxTokens)
	if err != nil {
		lg.Warn("theme adherence check failed, assuming adherent",
			slog.String("stage", "gate"), slog.Any("error", err))
		return failOpenVerdict()
	}

	var verdict domain.ThemeVerdict
	if err := jsonx.ExtractObject(text, &verdict); err != nil {
		lg.Warn("theme adherence response had no parseable verdict, assuming adherent",
			slog.String("stage", "gate"), slog.Any("error", err))
		return failOpenVerdict()
	}
	verdict = normalizeVerdict(verdict)
	lg.Info("theme adherence verdict",
		slog.Bool("adherent", verdict.Adherent),
		slog.String("deviation", verdict.DeviationKind),
		slog.Int("severity", verdict.Severity))
	return verdict
}

// failOpenVerdict is returned whenever the automatic check cannot complete.
func failOpenVerdict() domain.ThemeVerdict {
	return domain.ThemeVerdict{
		Adherent:      true,
		DeviationKind: domain.DeviationNone,
		Explanation:   "Erro na verificação automática do tema",
		ThemeKeywords: []string{},
		FoundKeywords: []string{},
		MayProceed:    true,
		Severity:      0,
	}
}

// normalizeVerdict enforces the kind/flag invariant: deviation "nenhum" iff
// adherent. Models occasionally return contradictory pairs.
func normalizeVerdict(v domain.ThemeVerdict) domain.ThemeVerdict {
	if v.Adherent {
		v.DeviationKind = domain.DeviationNone
	} else if v.DeviationKind == domain.DeviationNone || v.DeviationKind == "" {
		v.DeviationKind = domain.DeviationTotal
	}
	if v.ThemeKeywords == nil {
		v.ThemeKeywords = []string{}
	}
	if v.FoundKeywords == nil {
		v.FoundKeywords = []string{}
	}
	return v
}
