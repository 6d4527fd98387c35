package question

import (
	"strings"
	"time"

	"github.com/ppk/screening/internal/domain/clinic"
	"github.com/ppk/screening/pkg/textnorm"
)

// Env carries the inputs an evaluator may read besides the answers.
type Env struct {
	Now     time.Time
	Clinics *clinic.Vocabulary
	Type    ResultType
}

// NewEnv returns an Env for a form evaluated now with the default vocabulary.
func NewEnv(now time.Time) Env {
	return Env{Now: now, Clinics: clinic.Default(), Type: TypeForm}
}

// Evaluator turns the answer state of one question into a Result. It
// returns ok=false while a required answer is missing; an evaluator never
// returns a Result with an empty clinic list.
type Evaluator interface {
	Describe() Meta
	Evaluate(env Env, a Answers) (res *Result, ok bool)
}

type base struct {
	meta Meta
}

func (b base) Describe() Meta {
	return b.meta
}

// outcome is the rule-derived part of a result.
type outcome struct {
	clinics  []string
	refer    bool
	symptoms []string
	notes    []string
}

func (o *outcome) route(refer bool, clinics ...string) {
	o.clinics = append(o.clinics, clinics...)
	o.refer = o.refer || refer
}

func (o *outcome) tag(symptoms ...string) {
	o.symptoms = append(o.symptoms, symptoms...)
}

func (o *outcome) note(fragments ...string) {
	o.notes = append(o.notes, fragments...)
}

// choiceRoute is one row of a pure choice-to-clinic table.
type choiceRoute struct {
	clinic string
	refer  bool
	tag    string
}

// choose applies the route for choice. It reports false when the choice is
// missing or not part of the table.
func (o *outcome) choose(choice string, routes map[string]choiceRoute) bool {
	r, ok := routes[choice]
	if !ok {
		return false
	}
	o.route(r.refer, r.clinic)
	if r.tag != "" {
		o.tag(r.tag)
	}
	return true
}

// build finalizes an outcome: free-text note and checkbox symptoms from the
// answers are merged in and symptoms are normalized against the question
// metadata.
func (b base) build(env Env, a Answers, o outcome) (*Result, bool) {
	clinics := textnorm.CleanStrings(lowerAll(o.clinics))
	if len(clinics) == 0 {
		return nil, false
	}

	raw := make([]any, 0, len(o.symptoms)+4)
	for _, s := range o.symptoms {
		raw = append(raw, s)
	}
	for _, s := range a.Strings(FieldNameSymptoms) {
		raw = append(raw, s)
	}

	typ := env.Type
	if typ == "" {
		typ = TypeForm
	}

	return &Result{
		QuestionCode:  b.meta.Code,
		QuestionKey:   b.meta.Key,
		QuestionTitle: b.meta.Title,
		Question:      b.meta.Question,
		Clinic:        clinics,
		Symptoms:      textnorm.NormalizeSymptoms(raw, b.meta.Title, b.meta.Key, b.meta.Question),
		Note:          JoinNotes(append(o.notes, a.String(FieldNameNote))...),
		IsReferCase:   o.refer,
		Type:          typ,
	}, true
}

// JoinNotes joins the non-blank fragments with NoteSeparator.
func JoinNotes(fragments ...string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, NoteSeparator)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// isClinicDay reports whether t falls on one of days.
func isClinicDay(t time.Time, days ...time.Weekday) bool {
	wd := t.Weekday()
	for _, d := range days {
		if wd == d {
			return true
		}
	}
	return false
}

// Shared field definitions.
var (
	noteField     = Field{Name: FieldNameNote, Kind: FieldText}
	symptomsField = Field{Name: FieldNameSymptoms, Kind: FieldMulti}
	genderField   = Field{Name: FieldNameGender, Kind: FieldChoice, Options: []string{GenderMale, GenderFemale, GenderOther}, Required: true}
	clinicField   = Field{Name: FieldNameClinic, Kind: FieldClinic}
)
