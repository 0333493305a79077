package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/enempro/enem-pro-api/internal/config"
	"github.com/enempro/enem-pro-api/internal/domain"
	"github.com/enempro/enem-pro-api/internal/usecase"
)

// Listing defaults when the caller omits the parameters.
const (
	defaultYear   = 2023
	defaultLimit  = 10
	defaultOffset = 0
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Questions  usecase.QuestionService
	Essays     usecase.EssayService
	ReadyCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, questions usecase.QuestionService, essays usecase.EssayService, readyCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Questions: questions, Essays: essays, ReadyCheck: readyCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// intQuery parses an optional integer query parameter, applying def when the
// parameter is absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: parâmetro %q inválido: %q", domain.ErrInvalidArgument, name, raw)
	}
	return n, nil
}

// QuestionsHandler lists normalized questions for an exam year.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := intQuery(r, "ano", defaultYear)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "ano"})
			return
		}
		limit, err := intQuery(r, "limit", defaultLimit)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "limit"})
			return
		}
		offset, err := intQuery(r, "offset", defaultOffset)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "offset"})
			return
		}

		page, err := s.Questions.List(r.Context(), usecase.ListQuery{
			Year:       year,
			Limit:      limit,
			Offset:     offset,
			Discipline: r.URL.Query().Get("disciplina"),
			Language:   r.URL.Query().Get("language"),
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// QuestionByIndexHandler resolves one question by exam year and index.
func (s *Server) QuestionByIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(chi.URLParam(r, "ano"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: ano inválido", domain.ErrInvalidArgument), map[string]string{"field": "ano"})
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: index inválido", domain.ErrInvalidArgument), map[string]string{"field": "index"})
			return
		}
		q, err := s.Questions.Get(r.Context(), year, index, r.URL.Query().Get("language"))
		if err != nil {
			writeError(w, r, err, map[string]any{"ano": year, "index": index})
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// ExamsHandler forwards the upstream exams listing verbatim.
func (s *Server) ExamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.Questions.Exams(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(body)
	}
}

// ExamHandler forwards one exam's detail verbatim.
func (s *Server) ExamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(chi.URLParam(r, "ano"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: ano inválido", domain.ErrInvalidArgument), map[string]string{"field": "ano"})
			return
		}
		body, err := s.Questions.Exam(r.Context(), year)
		if err != nil {
			writeError(w, r, err, map[string]int{"ano": year})
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(body)
	}
}

type essayRequest struct {
	Essay string `json:"redacao" validate:"required"`
	Theme string `json:"tema" validate:"required"`
}

// EssayHandler runs the two-stage essay assessment and always answers with a
// complete assessment for valid input.
func (s *Server) EssayHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req essayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: corpo JSON inválido: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: redação e tema são obrigatórios", domain.ErrInvalidArgument), err.Error())
			return
		}
		assessment, err := s.Essays.Assess(r.Context(), req.Essay, req.Theme)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, assessment)
	}
}

// ReadyzHandler probes the upstream question repository with a short budget.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ReadyCheck == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ReadyCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "detail": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
