// Package usecase contains application business logic services.
package usecase

import (
	"fmt"

	"log/slog"

	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
)

// Earliest exam year available upstream.
const minExamYear = 1998

// QuestionService serves normalized question listings and lookups on top of
// the upstream question source.
type QuestionService struct {
	Source domain.QuestionSource
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(src domain.QuestionSource) QuestionService {
	return QuestionService{Source: src}
}

// ListQuery carries the inbound question-listing parameters.
type ListQuery struct {
	Year       int
	Limit      int
	Offset     int
	Discipline string
	Language   string
}

// List fetches a page of questions, filters it by the requested discipline
// (the upstream offers no discipline filter) and normalizes each record.
func (s QuestionService) List(ctx domain.Context, q ListQuery) (domain.QuestionPage, error) {
	if err := validateYear(q.Year); err != nil {
		return domain.QuestionPage{}, err
	}
	if q.Offset < 0 {
		return domain.QuestionPage{}, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidArgument)
	}

	page, err := s.Source.FetchPage(ctx, domain.PageQuery{
		Year:       q.Year,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Discipline: q.Discipline,
		Language:   q.Language,
	})
	if err != nil {
		return domain.QuestionPage{}, err
	}

	filtered := page.Questions
	if q.Discipline != "" {
		filtered = make([]domain.UpstreamQuestion, 0, len(page.Questions))
		for _, raw := range page.Questions {
			if raw.Discipline == q.Discipline {
				filtered = append(filtered, raw)
			}
		}
		obsctx.LoggerFromContext(ctx).Debug("filtered questions by discipline",
			slog.String("discipline", q.Discipline),
			slog.Int("kept", len(filtered)),
			slog.Int("fetched", len(page.Questions)))
	}

	questions := make([]domain.Question, 0, len(filtered))
	for i, raw := range filtered {
		questions = append(questions, NormalizeQuestion(raw, i, q.Year, q.Language))
	}

	meta := domain.PageMetadata{
		Total:      pageTotal(page.Metadata, len(questions)),
		Year:       q.Year,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Discipline: disciplineOrAll(q.Discipline),
	}
	// Metadata mirrors the record invariant: language only for linguagens.
	if q.Discipline == domain.DisciplineLanguages {
		meta.Language = effectiveLanguage(q.Language)
	}
	return domain.QuestionPage{Questions: questions, Metadata: meta}, nil
}

// Get resolves one question by exam year and index, including the
// two-attempt language-partition fallback performed by the source.
func (s QuestionService) Get(ctx domain.Context, year, index int, language string) (domain.Question, error) {
	if err := validateYear(year); err != nil {
		return domain.Question{}, err
	}
	if index <= 0 {
		return domain.Question{}, fmt.Errorf("%w: index must be positive", domain.ErrInvalidArgument)
	}
	raw, err := s.Source.FindByIndex(ctx, year, index, language)
	if err != nil {
		return domain.Question{}, err
	}
	return NormalizeQuestion(raw, 0, year, language), nil
}

// Exams forwards the upstream exams listing verbatim.
func (s QuestionService) Exams(ctx domain.Context) ([]byte, error) {
	return s.Source.Exams(ctx)
}

// Exam forwards one exam's detail verbatim.
func (s QuestionService) Exam(ctx domain.Context, year int) ([]byte, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return s.Source.Exam(ctx, year)
}

func validateYear(year int) error {
	if year < minExamYear {
		return fmt.Errorf("%w: invalid exam year %d", domain.ErrInvalidArgument, year)
	}
	return nil
}

func pageTotal(meta domain.UpstreamMetadata, fallback int) int {
	if meta.Total > 0 {
		return meta.Total
	}
	return fallback
}

func disciplineOrAll(d string) string {
	if d == "" {
		return "todas"
	}
	return d
}
