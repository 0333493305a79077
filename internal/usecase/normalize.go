package usecase

import (
	"fmt"

	"github.com/enempro/enem-pro-api/internal/domain"
)

// Fixed fallback strings used when an upstream record omits a field. The
// upstream payload shape varies across exam years, so every field read below
// goes through an ordered-priority helper instead of inline chained defaults.
const (
	placeholderDiscipline  = "Disciplina não especificada"
	placeholderPrompt      = "Enunciado não disponível"
	placeholderTheme       = "Questão ENEM"
	placeholderAlternative = "Alternativa com arquivo"
)

// disciplineLabels maps upstream discipline slugs to human-readable labels.
// Unrecognized slugs fall back to the raw slug itself.
var disciplineLabels = map[string]string{
	domain.DisciplineMath:       "Matemática",
	domain.DisciplineLanguages:  "Linguagens",
	domain.DisciplineHumanities: "Ciências Humanas",
	domain.DisciplineNature:     "Ciências da Natureza",
}

// languageLabels maps the upstream language partitions to their display
// names. Only ever consulted for the linguagens discipline.
var languageLabels = map[string]string{
	domain.LanguageEnglish: "Língua Inglesa",
	domain.LanguageSpanish: "Língua Espanhola",
}

// NormalizeQuestion maps one raw upstream record into the stable Question
// shape. Pure and total: it never fails, whatever optional fields the
// upstream omitted. position is the record's zero-based slot in its result
// set and feeds the last identifier fallback; requestedYear and
// requestedLanguage come from the originating query.
func NormalizeQuestion(raw domain.UpstreamQuestion, position, requestedYear int, requestedLanguage string) domain.Question {
	year := questionYear(raw, requestedYear)
	id := questionID(raw, position)
	q := domain.Question{
		ID:                id,
		Index:             raw.Index,
		Area:              DisciplineLabel(raw.Discipline),
		Discipline:        raw.Discipline,
		Theme:             questionTheme(raw),
		Year:              year,
		Prompt:            questionPrompt(raw),
		Alternatives:      renderAlternatives(raw.Alternatives),
		CorrectLetter:     raw.CorrectAlternative,
		Comment:           fmt.Sprintf("Questão %d do ENEM %d - %s", id, year, raw.Discipline),
		Files:             questionFiles(raw),
		AlternativesIntro: raw.AlternativesIntroduction,
	}
	// Language fields exist only on linguagens records; every other
	// discipline stays in português and must not carry them.
	if raw.Discipline == domain.DisciplineLanguages {
		lang := effectiveLanguage(requestedLanguage)
		q.Language = lang
		q.LanguageLabel = languageLabels[lang]
	}
	return q
}

// questionID resolves the identifier: upstream index, else upstream id,
// else the record's one-based position.
func questionID(raw domain.UpstreamQuestion, position int) int {
	if raw.Index != 0 {
		return raw.Index
	}
	if raw.ID != 0 {
		return raw.ID
	}
	return position + 1
}

// questionYear prefers the record's own year over the requested one.
func questionYear(raw domain.UpstreamQuestion, requestedYear int) int {
	if raw.Year != 0 {
		return raw.Year
	}
	return requestedYear
}

// questionPrompt resolves the free-text prompt: context, else title, else a
// fixed placeholder.
func questionPrompt(raw domain.UpstreamQuestion) string {
	if raw.Context != "" {
		return raw.Context
	}
	if raw.Title != "" {
		return raw.Title
	}
	return placeholderPrompt
}

// questionTheme resolves the theme/title string.
func questionTheme(raw domain.UpstreamQuestion) string {
	if raw.Title != "" {
		return raw.Title
	}
	return placeholderTheme
}

func questionFiles(raw domain.UpstreamQuestion) []string {
	if raw.Files == nil {
		return []string{}
	}
	return raw.Files
}

// DisciplineLabel maps a discipline slug to its human label, falling back to
// the raw slug, then to a fixed placeholder when absent.
func DisciplineLabel(slug string) string {
	if label, ok := disciplineLabels[slug]; ok {
		return label
	}
	if slug != "" {
		return slug
	}
	return placeholderDiscipline
}

// renderAlternatives renders each entry as "<letter>) <text>", where the
// text falls back to the entry's file reference, then to a placeholder.
func renderAlternatives(alts []domain.UpstreamAlternative) []string {
	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		out = append(out, fmt.Sprintf("%s) %s", alt.Letter, alternativeText(alt)))
	}
	return out
}

func alternativeText(alt domain.UpstreamAlternative) string {
	if alt.Text != "" {
		return alt.Text
	}
	if alt.File != "" {
		return alt.File
	}
	return placeholderAlternative
}

// effectiveLanguage resolves the language tag for a linguagens record:
// the requested language when valid, inglês otherwise.
func effectiveLanguage(requested string) string {
	if requested == domain.LanguageEnglish || requested == domain.LanguageSpanish {
		return requested
	}
	return domain.LanguageEnglish
}
