package usecase

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/enempro/enem-pro-api/internal/domain"
)

//go:embed rubric.yaml
var rubricYAML []byte

// Rubric is the fixed ENEM five-competency reference table. Read-only,
// loaded once at process startup.
type Rubric struct {
	Competencies        []RubricCompetency `yaml:"competencies"`
	FallbackExplanation string             `yaml:"fallback_explanation"`
}

// RubricCompetency describes one criterion: its short and full names, the
// explanation templates used by the deviation scorer and the fixed
// improvement suggestions.
type RubricCompetency struct {
	Number                int               `yaml:"number"`
	Name                  string            `yaml:"name"`
	FullName              string            `yaml:"full_name"`
	DeviationExplanations map[string]string `yaml:"deviation_explanations"`
	Suggestion            string            `yaml:"suggestion"`
	FallbackSuggestion    string            `yaml:"fallback_suggestion"`
}

var rubric = mustLoadRubric()

func mustLoadRubric() Rubric {
	var r Rubric
	if err := yaml.Unmarshal(rubricYAML, &r); err != nil {
		panic(fmt.Sprintf("usecase: invalid embedded rubric: %v", err))
	}
	if len(r.Competencies) != 5 {
		panic(fmt.Sprintf("usecase: rubric must have 5 competencies, has %d", len(r.Competencies)))
	}
	return r
}

// deviationExplanation resolves the criterion's explanation template for a
// deviation kind, substituting the gate's reasoning where the template asks
// for it.
func (c RubricCompetency) deviationExplanation(kind, reason string) string {
	tpl, ok := c.DeviationExplanations[kind]
	if !ok {
		tpl = c.DeviationExplanations[domain.DeviationTotal]
	}
	return strings.ReplaceAll(tpl, "{motivo}", reason)
}
