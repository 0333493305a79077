package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enempro/enem-pro-api/internal/domain"
)

// stubChat scripts the chat client: each Complete call consumes the next
// queued reply (the last one repeats) and records its arguments.
type stubChat struct {
	replies []string
	err     error

	calls       int
	prompts     []string
	temps       []float64
	tokenLimits []int
}

func (s *stubChat) Complete(_ domain.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.temps = append(s.temps, temperature)
	s.tokenLimits = append(s.tokenLimits, maxTokens)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

// recordingObserver captures the last reported outcome and total.
type recordingObserver struct {
	calls   int
	outcome string
	total   int
}

func (o *recordingObserver) AssessmentCompleted(outcome string, total int) {
	o.calls++
	o.outcome = outcome
	o.total = total
}

func TestCheckAdherence_ParsesVerdict(t *testing.T) {
	t.Parallel()
	chat := &stubChat{replies: []string{`Segue a análise:
{"aderente_ao_tema": false, "tipo_desvio": "tangenciamento", "explicacao": "recorte errado",
 "palavras_chave_tema": ["tema"], "palavras_chave_encontradas": [], "pode_prosseguir": false, "nivel_gravidade": 6}`}}
	svc := NewEssayService(chat, nil, 0)

	v := svc.CheckAdherence(context.Background(), "texto da redação", "tema proposto")

	assert.False(t, v.Adherent)
	assert.Equal(t, domain.DeviationTangential, v.DeviationKind)
	assert.Equal(t, "recorte errado", v.Explanation)
	assert.Equal(t, 6, v.Severity)
	require.Equal(t, 1, chat.calls)
	assert.InDelta(t, 0.3, chat.temps[0], 1e-9)
	assert.Equal(t, 800, chat.tokenLimits[0])
	assert.Contains(t, chat.prompts[0], "tema proposto")
	assert.Contains(t, chat.prompts[0], "texto da redação")
}

func TestCheckAdherence_FailsOpenOnChatError(t *testing.T) {
	t.Parallel()
	chat := &stubChat{err: errors.New("connection refused")}
	svc := NewEssayService(chat, nil, 0)

	v := svc.CheckAdherence(context.Background(), "redação", "tema")

	assert.True(t, v.Adherent)
	assert.Equal(t, domain.DeviationNone, v.DeviationKind)
	assert.True(t, v.MayProceed)
	assert.Equal(t, "Erro na verificação automática do tema", v.Explanation)
	require.NotNil(t, v.ThemeKeywords)
	require.NotNil(t, v.FoundKeywords)
}

func TestCheckAdherence_FailsOpenOnUnparseableReply(t *testing.T) {
	t.Parallel()
	chat := &stubChat{replies: []string{"Desculpe, não posso responder em JSON."}}
	svc := NewEssayService(chat, nil, 0)

	v := svc.CheckAdherence(context.Background(), "redação", "tema")

	assert.True(t, v.Adherent)
	assert.Equal(t, domain.DeviationNone, v.DeviationKind)
}

func TestNormalizeVerdict_Invariant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   domain.ThemeVerdict
		want string
	}{
		{"adherent forces nenhum", domain.ThemeVerdict{Adherent: true, DeviationKind: domain.DeviationTotal}, domain.DeviationNone},
		{"non-adherent nenhum becomes fuga_total", domain.ThemeVerdict{Adherent: false, DeviationKind: domain.DeviationNone}, domain.DeviationTotal},
		{"non-adherent empty becomes fuga_total", domain.ThemeVerdict{Adherent: false}, domain.DeviationTotal},
		{"consistent pair untouched", domain.ThemeVerdict{Adherent: false, DeviationKind: domain.DeviationTangential}, domain.DeviationTangential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeVerdict(tt.in)
			assert.Equal(t, tt.want, got.DeviationKind)
			assert.NotNil(t, got.ThemeKeywords)
			assert.NotNil(t, got.FoundKeywords)
		})
	}
}
