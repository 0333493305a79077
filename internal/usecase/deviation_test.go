package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enempro/enem-pro-api/internal/domain"
)

func TestScoreDeviation_TotalDeparture(t *testing.T) {
	t.Parallel()
	verdict := domain.ThemeVerdict{
		Adherent:      false,
		DeviationKind: domain.DeviationTotal,
		Explanation:   "A redação fala sobre futebol, não sobre o tema proposto.",
		ThemeKeywords: []string{"educação", "digital"},
		FoundKeywords: []string{},
	}

	a := ScoreDeviation(verdict)

	require.Len(t, a.Competencies, 5)
	for _, c := range a.Competencies {
		assert.Equal(t, 0, c.Score)
		assert.NotEmpty(t, c.Explanation)
		assert.NotEmpty(t, c.Suggestions)
	}
	assert.Equal(t, 0, a.Total)
	assert.True(t, a.ThemeDeviation)
	assert.Equal(t, domain.DeviationTotal, a.DeviationKind)
	assert.Contains(t, a.GeneralComment, "FUGA TOTAL DO TEMA DETECTADO")
	assert.Contains(t, a.GeneralComment, "A redação fala sobre futebol")
	assert.Contains(t, a.GeneralComment, "educação, digital")
	assert.Contains(t, a.GeneralComment, "Nenhuma palavra-chave do tema foi encontrada na redação.")
	assert.Contains(t, a.GeneralComment, "NOTA ZERO")
}

func TestScoreDeviation_Tangential(t *testing.T) {
	t.Parallel()
	verdict := domain.ThemeVerdict{
		Adherent:      false,
		DeviationKind: domain.DeviationTangential,
		Explanation:   "Aborda tecnologia em geral, não o recorte do tema.",
		ThemeKeywords: []string{"acessibilidade"},
		FoundKeywords: []string{"tecnologia"},
	}

	a := ScoreDeviation(verdict)

	require.Len(t, a.Competencies, 5)
	for _, c := range a.Competencies {
		assert.Equal(t, 40, c.Score)
	}
	assert.Equal(t, 200, a.Total)
	assert.Equal(t, domain.DeviationTangential, a.DeviationKind)
	assert.Contains(t, a.GeneralComment, "TANGENCIAMENTO DO TEMA DETECTADO")
	assert.Contains(t, a.GeneralComment, "Palavras encontradas na redação: tecnologia")
	assert.Contains(t, a.GeneralComment, "a nota máxima seria 200 pontos")
}

func TestScoreDeviation_UnknownKindScoresAsTotal(t *testing.T) {
	t.Parallel()
	a := ScoreDeviation(domain.ThemeVerdict{DeviationKind: "desvio_misterioso"})
	assert.Equal(t, 0, a.Total)
	assert.Equal(t, domain.DeviationTotal, a.DeviationKind)
}

func TestScoreDeviation_TotalEqualsSum(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{domain.DeviationTotal, domain.DeviationTangential} {
		a := ScoreDeviation(domain.ThemeVerdict{DeviationKind: kind})
		sum := 0
		for _, c := range a.Competencies {
			sum += c.Score
		}
		assert.Equal(t, sum, a.Total, "kind %s", kind)
	}
}

func TestScoreDeviation_Deterministic(t *testing.T) {
	t.Parallel()
	verdict := domain.ThemeVerdict{
		DeviationKind: domain.DeviationTangential,
		Explanation:   "motivo",
		ThemeKeywords: []string{"a", "b"},
		FoundKeywords: []string{"a"},
	}
	first := ScoreDeviation(verdict)
	second := ScoreDeviation(verdict)
	assert.Equal(t, first, second)
}

func TestScoreDeviation_ExplanationCarriesGateReason(t *testing.T) {
	t.Parallel()
	a := ScoreDeviation(domain.ThemeVerdict{
		DeviationKind: domain.DeviationTotal,
		Explanation:   "não há relação com o tema",
	})
	// Competency 2 templates embed the gate's reasoning verbatim.
	assert.Contains(t, a.Competencies[1].Explanation, "não há relação com o tema")
}
