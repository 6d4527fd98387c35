package question

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownQuestion is returned when a code or key matches no evaluator.
var ErrUnknownQuestion = errors.New("unknown question")

// Registry is the lookup table of evaluators keyed by question code.
type Registry struct {
	byCode map[int]Evaluator
	byKey  map[string]Evaluator
}

// NewRegistry builds a registry from evaluators. Codes and keys must be
// unique.
func NewRegistry(evaluators ...Evaluator) (*Registry, error) {
	r := &Registry{
		byCode: make(map[int]Evaluator, len(evaluators)),
		byKey:  make(map[string]Evaluator, len(evaluators)),
	}
	for _, e := range evaluators {
		m := e.Describe()
		if m.Code <= 0 {
			return nil, fmt.Errorf("question %q: code must be positive", m.Key)
		}
		if m.Key == "" {
			return nil, fmt.Errorf("question %d: key is required", m.Code)
		}
		if _, dup := r.byCode[m.Code]; dup {
			return nil, fmt.Errorf("duplicate question code %d", m.Code)
		}
		k := strings.ToLower(m.Key)
		if _, dup := r.byKey[k]; dup {
			return nil, fmt.Errorf("duplicate question key %q", m.Key)
		}
		r.byCode[m.Code] = e
		r.byKey[k] = e
	}
	return r, nil
}

// Builtins returns the built-in evaluators in code order.
func Builtins() []Evaluator {
	return []Evaluator{
		newStrokeSuspect(),
		newChestPain(),
		newInjuryAssessment(),
		newPregnancy(),
		newUrinaryTract(),
		newCompartmentSyndrome(),
		newHIVExposure(),
		newAnimalBite(),
		newHypertension(),
		newDiabetes(),
		newFever(),
		newChildPatient(),
		newCancerScreening(),
		newEyeProblem(),
		newEarNoseThroat(),
		newDentalPain(),
		newSkinRash(),
		newBackPain(),
		newFractureSuspect(),
		newAbdominalPain(),
		newHeadache(),
		newDizziness(),
		newDepressionScreen(),
		newHealthCertificate(),
		newOtherConcern(),
	}
}

// DefaultRegistry returns a registry holding the built-in evaluators.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtins()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the evaluator registered under code.
func (r *Registry) Get(code int) (Evaluator, error) {
	e, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownQuestion, code)
	}
	return e, nil
}

// ByKey returns the evaluator registered under key, compared
// case-insensitively.
func (r *Registry) ByKey(key string) (Evaluator, error) {
	e, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrUnknownQuestion, key)
	}
	return e, nil
}

// Lookup accepts either a numeric code or a key.
func (r *Registry) Lookup(ref string) (Evaluator, error) {
	if code, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		return r.Get(code)
	}
	return r.ByKey(ref)
}

// All returns the metadata of every registered question in code order.
func (r *Registry) All() []Meta {
	out := make([]Meta, 0, len(r.byCode))
	for _, e := range r.byCode {
		out = append(out, e.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of registered questions.
func (r *Registry) Len() int {
	return len(r.byCode)
}

// Evaluate looks up ref and evaluates answers with it.
func (r *Registry) Evaluate(env Env, ref string, answers Answers) (*Result, bool, error) {
	e, err := r.Lookup(ref)
	if err != nil {
		return nil, false, err
	}
	res, ok := e.Evaluate(env, answers)
	return res, ok, nil
}
