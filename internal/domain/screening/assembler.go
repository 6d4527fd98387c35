package screening

import (
	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/pkg/textnorm"
)

// Selection pairs a selected question key with its current result. A nil
// Result means the question has not produced a decision yet.
type Selection struct {
	Key    string
	Result *question.Result
}

// Assembly is the validated content of a case before persistence.
type Assembly struct {
	Results         []*question.Result
	SummaryClinics  []string
	SummarySymptoms []string
}

// Assemble validates the selections and computes the case summaries. Every
// selected question must have a result with at least one clinic; otherwise a
// *ValidationError naming the offending keys is returned and nothing is
// assembled.
func Assemble(selections []Selection) (*Assembly, error) {
	if len(selections) == 0 {
		return nil, &ValidationError{Message: "at least one question is required"}
	}

	var missing []string
	for _, s := range selections {
		if s.Result == nil || len(textnorm.CleanStrings(s.Result.Clinic)) == 0 {
			missing = append(missing, s.Key)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{
			Message:      "questions without a clinic decision",
			QuestionKeys: missing,
		}
	}

	a := &Assembly{Results: make([]*question.Result, 0, len(selections))}
	var clinics, symptoms []string
	for _, s := range selections {
		a.Results = append(a.Results, s.Result)
		clinics = append(clinics, s.Result.Clinic...)
		symptoms = append(symptoms, s.Result.Symptoms...)
	}
	a.SummaryClinics = textnorm.CleanStrings(clinics)
	a.SummarySymptoms = summarizeSymptoms(symptoms)
	return a, nil
}

func summarizeSymptoms(symptoms []string) []string {
	out := make([]string, 0, len(symptoms))
	for _, s := range textnorm.CleanStrings(symptoms) {
		if !textnorm.IsNoteLikeTag(s) {
			out = append(out, textnorm.CollapseSpaces(s))
		}
	}
	out = textnorm.CleanStrings(out)
	if len(out) == 0 {
		return []string{NoSymptoms}
	}
	return out
}
