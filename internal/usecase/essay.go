package usecase

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
)

// EssayService runs the two-stage essay assessment pipeline: the
// theme-adherence gate, then either the deterministic deviation scorer or
// the full five-competency generation.
type EssayService struct {
	Chat     domain.ChatClient
	Observer domain.AssessmentObserver
	// MaxEssayChars bounds the essay (and thereby the prompt); 0 disables.
	MaxEssayChars int
}

// NewEssayService constructs an EssayService. A nil observer is replaced by
// a no-op.
func NewEssayService(chat domain.ChatClient, obs domain.AssessmentObserver, maxEssayChars int) EssayService {
	if obs == nil {
		obs = domain.NopObserver{}
	}
	return EssayService{Chat: chat, Observer: obs, MaxEssayChars: maxEssayChars}
}

// Assess sequences gate -> branch and always returns a complete assessment
// for valid input. Model-side failures are absorbed by the stage fallbacks;
// the only errors surfaced here are validation failures.
func (s EssayService) Assess(ctx domain.Context, essay, theme string) (domain.Assessment, error) {
	essay = strings.TrimSpace(essay)
	theme = strings.TrimSpace(theme)
	if essay == "" || theme == "" {
		return domain.Assessment{}, fmt.Errorf("%w: redação e tema são obrigatórios", domain.ErrInvalidArgument)
	}
	if s.MaxEssayChars > 0 && len(essay) > s.MaxEssayChars {
		return domain.Assessment{}, fmt.Errorf("%w: redação excede %d caracteres", domain.ErrInvalidArgument, s.MaxEssayChars)
	}

	lg := obsctx.LoggerFromContext(ctx)
	lg.Info("essay assessment started",
		slog.String("theme", theme),
		slog.Int("essay_chars", len(essay)))

	verdict := s.CheckAdherence(ctx, essay, theme)
	if !verdict.Adherent {
		assessment := ScoreDeviation(verdict)
		s.Observer.AssessmentCompleted(assessment.DeviationKind, assessment.Total)
		lg.Info("essay deviated from theme",
			slog.String("deviation", assessment.DeviationKind),
			slog.Int("total", assessment.Total))
		return assessment, nil
	}

	assessment, outcome := s.generateAssessment(ctx, essay, theme)
	s.Observer.AssessmentCompleted(outcome, assessment.Total)
	lg.Info("essay assessment completed",
		slog.String("outcome", outcome),
		slog.Int("total", assessment.Total))
	return assessment, nil
}
