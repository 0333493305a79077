package httpserver_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/enempro/enem-pro-api/internal/adapter/httpserver"
	"github.com/enempro/enem-pro-api/internal/config"
	"github.com/enempro/enem-pro-api/internal/domain"
	"github.com/enempro/enem-pro-api/internal/usecase"
)

type stubSource struct {
	page        domain.UpstreamPage
	pageErr     error
	question    domain.UpstreamQuestion
	questionErr error
	examsBody   []byte
	examsErr    error
}

func (s *stubSource) FetchPage(domain.Context, domain.PageQuery) (domain.UpstreamPage, error) {
	return s.page, s.pageErr
}

func (s *stubSource) FindByIndex(domain.Context, int, int, string) (domain.UpstreamQuestion, error) {
	return s.question, s.questionErr
}

func (s *stubSource) Exams(domain.Context) ([]byte, error) { return s.examsBody, s.examsErr }

func (s *stubSource) Exam(domain.Context, int) ([]byte, error) { return s.examsBody, s.examsErr }

// scriptChat replays queued replies in order.
type scriptChat struct {
	replies []string
	err     error
}

func (s *scriptChat) Complete(domain.Context, string, float64, int) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

const gateAdherent = `{"aderente_ao_tema": true, "tipo_desvio": "nenhum", "explicacao": "ok",
 "palavras_chave_tema": [], "palavras_chave_encontradas": [], "pode_prosseguir": true, "nivel_gravidade": 0}`

const gateDeviation = `{"aderente_ao_tema": false, "tipo_desvio": "fuga_total", "explicacao": "outro assunto",
 "palavras_chave_tema": ["tema"], "palavras_chave_encontradas": [], "pode_prosseguir": false, "nivel_gravidade": 9}`

const fullAssessment = `{"competencias": [
	{"numero": 1, "nome": "Domínio da modalidade escrita formal", "nota": 160, "explicacao": "x", "sugestoes": "y"},
	{"numero": 2, "nome": "Compreensão da proposta", "nota": 180, "explicacao": "x", "sugestoes": "y"},
	{"numero": 3, "nome": "Organização de informações", "nota": 140, "explicacao": "x", "sugestoes": "y"},
	{"numero": 4, "nome": "Mecanismos linguísticos", "nota": 160, "explicacao": "x", "sugestoes": "y"},
	{"numero": 5, "nome": "Proposta de intervenção", "nota": 120, "explicacao": "x", "sugestoes": "y"}
], "nota_total": 760, "comentario_geral": "boa redação"}`

func newTestRouter(src domain.QuestionSource, chat domain.ChatClient) http.Handler {
	cfg := config.Config{AppEnv: "test"}
	srv := httpserver.NewServer(cfg,
		usecase.NewQuestionService(src),
		usecase.NewEssayService(chat, nil, 0),
		nil)
	r := chi.NewRouter()
	r.Get("/v1/questoes", srv.QuestionsHandler())
	r.Get("/v1/questoes/{ano}/{index}", srv.QuestionByIndexHandler())
	r.Get("/v1/provas", srv.ExamsHandler())
	r.Get("/v1/provas/{ano}", srv.ExamHandler())
	r.Post("/v1/corrigir-redacao", srv.EssayHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestQuestionsEndpoint_OK(t *testing.T) {
	t.Parallel()
	src := &stubSource{page: domain.UpstreamPage{
		Questions: []domain.UpstreamQuestion{{Index: 1, Discipline: domain.DisciplineMath, Year: 2023, Title: "t"}},
		Metadata:  domain.UpstreamMetadata{Total: 180},
	}}
	h := newTestRouter(src, &scriptChat{})

	rec := doRequest(t, h, http.MethodGet, "/v1/questoes?ano=2023&limit=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.QuestionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Questions, 1)
	assert.Equal(t, 180, page.Metadata.Total)
	assert.Equal(t, "todas", page.Metadata.Discipline)
}

func TestQuestionsEndpoint_BadParams(t *testing.T) {
	t.Parallel()
	h := newTestRouter(&stubSource{}, &scriptChat{})

	rec := doRequest(t, h, http.MethodGet, "/v1/questoes?limit=dez", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeErrorCode(t, rec))

	rec = doRequest(t, h, http.MethodGet, "/v1/questoes?ano=1500", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionsEndpoint_UpstreamErrors(t *testing.T) {
	t.Parallel()
	h := newTestRouter(&stubSource{pageErr: domain.ErrUpstream}, &scriptChat{})
	rec := doRequest(t, h, http.MethodGet, "/v1/questoes?ano=2023", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decodeErrorCode(t, rec))

	h = newTestRouter(&stubSource{pageErr: domain.ErrUpstreamTimeout}, &scriptChat{})
	rec = doRequest(t, h, http.MethodGet, "/v1/questoes?ano=2023", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPSTREAM_TIMEOUT", decodeErrorCode(t, rec))
}

func TestQuestionByIndexEndpoint(t *testing.T) {
	t.Parallel()
	src := &stubSource{question: domain.UpstreamQuestion{Index: 42, Discipline: domain.DisciplineMath, Year: 2023}}
	h := newTestRouter(src, &scriptChat{})

	rec := doRequest(t, h, http.MethodGet, "/v1/questoes/2023/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var q domain.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, 42, q.ID)

	rec = doRequest(t, h, http.MethodGet, "/v1/questoes/2023/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionByIndexEndpoint_NotFound(t *testing.T) {
	t.Parallel()
	h := newTestRouter(&stubSource{questionErr: domain.ErrNotFound}, &scriptChat{})
	rec := doRequest(t, h, http.MethodGet, "/v1/questoes/2023/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeErrorCode(t, rec))
}

func TestExamsEndpoint_Passthrough(t *testing.T) {
	t.Parallel()
	h := newTestRouter(&stubSource{examsBody: []byte(`[{"year": 2023}]`)}, &scriptChat{})
	rec := doRequest(t, h, http.MethodGet, "/v1/provas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"year": 2023}]`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestEssayEndpoint_Validation(t *testing.T) {
	t.Parallel()
	h := newTestRouter(&stubSource{}, &scriptChat{})

	rec := doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao", `{"redacao": "texto"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeErrorCode(t, rec))

	rec = doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao", `{"tema": "tema"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEssayEndpoint_FullAssessment(t *testing.T) {
	t.Parallel()
	chat := &scriptChat{replies: []string{gateAdherent, fullAssessment}}
	h := newTestRouter(&stubSource{}, chat)

	rec := doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao",
		`{"redacao": "uma redação completa no tema", "tema": "educação digital"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	require.Len(t, a.Competencies, 5)
	assert.Equal(t, 760, a.Total)
	assert.False(t, a.ThemeDeviation)
}

func TestEssayEndpoint_ThemeDeviation(t *testing.T) {
	t.Parallel()
	chat := &scriptChat{replies: []string{gateDeviation}}
	h := newTestRouter(&stubSource{}, chat)

	rec := doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao",
		`{"redacao": "texto sobre futebol", "tema": "educação digital"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.True(t, a.ThemeDeviation)
	assert.Equal(t, domain.DeviationTotal, a.DeviationKind)
	assert.Equal(t, 0, a.Total)
}

func TestEssayEndpoint_ModelFailureStillAnswers(t *testing.T) {
	t.Parallel()
	chat := &scriptChat{err: errors.New("provider down")}
	h := newTestRouter(&stubSource{}, chat)

	rec := doRequest(t, h, http.MethodPost, "/v1/corrigir-redacao",
		`{"redacao": "uma redação", "tema": "um tema"}`)

	require.Equal(t, http.StatusOK, rec.Code, "model failures degrade to fallbacks, never errors")
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 700, a.Total)
}

func TestReadyzEndpoint(t *testing.T) {
	t.Parallel()
	srv := httpserver.NewServer(config.Config{}, usecase.QuestionService{}, usecase.EssayService{}, func(domain.Context) error { return nil })
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	degraded := httpserver.NewServer(config.Config{}, usecase.QuestionService{}, usecase.EssayService{}, func(domain.Context) error { return errors.New("upstream down") })
	rec = httptest.NewRecorder()
	degraded.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
