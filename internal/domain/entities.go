// Package domain holds the core entities, error taxonomy and ports of the
// ENEM practice service. It has no dependency on transport or upstream
// details; adapters implement the ports declared here.
package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	// ErrInvalidArgument marks validation failures; no upstream call is
	// attempted once it is raised.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a question index that resolved in no upstream partition.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a non-success response from the question repository.
	// The upstream status and message are carried in the wrapping text.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamTimeout marks an exceeded deadline talking to the question
	// repository. Not retried automatically; the caller decides.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrModelUnavailable marks an unreachable or failing LLM endpoint.
	// Usecases absorb it into their documented fallbacks; it never reaches
	// the essay-assessment caller.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInternal is the catch-all for unexpected failures.
	ErrInternal = errors.New("internal error")
)

// Discipline slugs known to the upstream repository.
const (
	DisciplineLanguages  = "linguagens"
	DisciplineMath       = "matematica"
	DisciplineHumanities = "ciencias-humanas"
	DisciplineNature     = "ciencias-natureza"
)

// Languages accepted by the upstream "language" filter. Only meaningful for
// the linguagens discipline; LanguageEnglish is the default partition.
const (
	LanguageEnglish = "inglês"
	LanguageSpanish = "espanhol"
)

// Deviation kinds produced by the theme-adherence gate.
const (
	DeviationNone       = "nenhum"
	DeviationTangential = "tangenciamento"
	DeviationTotal      = "fuga_total"
)

// UpstreamAlternative is one answer option as returned by the question
// repository. Text and File are mutually optional; either may be empty.
type UpstreamAlternative struct {
	Letter    string `json:"letter"`
	Text      string `json:"text"`
	File      string `json:"file"`
	IsCorrect bool   `json:"isCorrect"`
}

// UpstreamQuestion is the raw question record shape of the repository.
// Every field is optional from the normalizer's point of view.
type UpstreamQuestion struct {
	Index                    int                   `json:"index"`
	ID                       int                   `json:"id"`
	Title                    string                `json:"title"`
	Discipline               string                `json:"discipline"`
	Year                     int                   `json:"year"`
	Context                  string                `json:"context"`
	Language                 string                `json:"language"`
	AlternativesIntroduction string                `json:"alternativesIntroduction"`
	CorrectAlternative       string                `json:"correctAlternative"`
	Alternatives             []UpstreamAlternative `json:"alternatives"`
	Files                    []string              `json:"files"`
}

// UpstreamPage is one page of the repository's question listing.
type UpstreamPage struct {
	Questions []UpstreamQuestion `json:"questions"`
	Metadata  UpstreamMetadata   `json:"metadata"`
}

// UpstreamMetadata is the pagination block attached by the repository.
type UpstreamMetadata struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore,omitempty"`
}

// PageQuery parameterizes a question page fetch. Discipline is not an
// upstream filter; the client only inspects it to decide whether the
// language parameter may be attached.
type PageQuery struct {
	Year       int
	Limit      int
	Offset     int
	Discipline string
	Language   string
}

// Question is the normalized record served to clients. Lifecycle: built
// per-request from an UpstreamQuestion, never persisted.
//
// Invariant: Language and LanguageLabel are populated only when Discipline
// is "linguagens"; they are absent on every other discipline.
type Question struct {
	ID                int      `json:"id"`
	Index             int      `json:"index"`
	Area              string   `json:"area"`
	Discipline        string   `json:"discipline"`
	Theme             string   `json:"tema"`
	Year              int      `json:"ano"`
	Prompt            string   `json:"enunciado"`
	Alternatives      []string `json:"alternativas"`
	CorrectLetter     string   `json:"gabarito"`
	Comment           string   `json:"comentario"`
	Files             []string `json:"files"`
	AlternativesIntro string   `json:"alternativesIntroduction,omitempty"`
	Language          string   `json:"idioma,omitempty"`
	LanguageLabel     string   `json:"tipoLinguagem,omitempty"`
}

// QuestionPage is the normalized listing response: questions plus the
// metadata block echoed back to the caller.
type QuestionPage struct {
	Questions []Question   `json:"questoes"`
	Metadata  PageMetadata `json:"metadata"`
}

// PageMetadata echoes the effective listing parameters. Language is present
// only for the linguagens discipline.
type PageMetadata struct {
	Total      int    `json:"total"`
	Year       int    `json:"ano"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	Discipline string `json:"disciplina"`
	Language   string `json:"language,omitempty"`
}

// ThemeVerdict is the gate's classification of an essay against its theme.
//
// Invariant: DeviationKind == "nenhum" if and only if Adherent is true.
type ThemeVerdict struct {
	Adherent      bool     `json:"aderente_ao_tema"`
	DeviationKind string   `json:"tipo_desvio"`
	Explanation   string   `json:"explicacao"`
	ThemeKeywords []string `json:"palavras_chave_tema"`
	FoundKeywords []string `json:"palavras_chave_encontradas"`
	MayProceed    bool     `json:"pode_prosseguir"`
	Severity      int      `json:"nivel_gravidade"`
}

// CompetencyScore is one of the five ENEM rubric criteria. Score is in
// [0,200]; Name is fixed per Number.
type CompetencyScore struct {
	Number      int    `json:"numero"`
	Name        string `json:"nome"`
	Score       int    `json:"nota"`
	Explanation string `json:"explicacao"`
	Suggestions string `json:"sugestoes"`
}

// Assessment is the unified essay-assessment result. Exactly five
// competencies, total in [0,1000]. When ThemeDeviation is true the
// deviation kind and keyword sets are carried alongside.
type Assessment struct {
	Competencies   []CompetencyScore `json:"competencias"`
	Total          int               `json:"nota_total"`
	GeneralComment string            `json:"comentario_geral"`
	ThemeDeviation bool              `json:"fuga_tema"`
	DeviationKind  string            `json:"tipo_desvio,omitempty"`
	ThemeKeywords  []string          `json:"palavras_chave_tema,omitempty"`
	FoundKeywords  []string          `json:"palavras_chave_encontradas,omitempty"`
}

// Ports

// QuestionSource fetches raw records from the exam-question repository.
// Implementations perform a single attempt per request; FindByIndex is the
// one exception and may issue a second, language-scoped request.
type QuestionSource interface {
	FetchPage(ctx Context, q PageQuery) (UpstreamPage, error)
	// FindByIndex resolves one question by exam year and index. When the
	// index is absent from the default partition and a valid language was
	// supplied, the lookup is reissued under that language partition before
	// ErrNotFound is returned.
	FindByIndex(ctx Context, year, index int, language string) (UpstreamQuestion, error)
	// Exams and Exam forward the upstream exams listing verbatim.
	Exams(ctx Context) ([]byte, error)
	Exam(ctx Context, year int) ([]byte, error)
}

// ChatClient sends one prompt to the LLM completion endpoint and returns the
// raw free-form text of the first choice. The text is expected, not
// guaranteed, to embed a JSON object.
type ChatClient interface {
	Complete(ctx Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Assessment pipeline outcomes reported to the observer.
const (
	OutcomeAdherent   = "aderente"
	OutcomeTangential = DeviationTangential
	OutcomeTotal      = DeviationTotal
	OutcomeFallback   = "fallback"
)

// AssessmentObserver receives structured pipeline events. The core emits to
// an injected observer instead of holding process-wide hooks; adapters map
// the events onto their metrics backend.
type AssessmentObserver interface {
	AssessmentCompleted(outcome string, total int)
}

// NopObserver discards all events.
type NopObserver struct{}

// AssessmentCompleted implements AssessmentObserver.
func (NopObserver) AssessmentCompleted(string, int) {}

// Context aliases context.Context so usecases read in domain vocabulary.
type Context = context.Context
