package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/domain/clinic"
	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/auth"
	"github.com/ppk/screening/internal/platform/metrics"
	"github.com/ppk/screening/pkg/daterange"
)

// SummaryInvalidator drops cached report summaries after a write.
type SummaryInvalidator interface {
	InvalidateSummaries(ctx context.Context)
}

// Evaluation is the outcome of evaluating one question interactively.
type Evaluation struct {
	Result   *question.Result `json:"result"`
	Complete bool             `json:"complete"`
	Changed  bool             `json:"changed"`
}

type Service struct {
	cases       CaseRepository
	results     ResultRepository
	registry    *question.Registry
	vocab       *clinic.Vocabulary
	resolver    *daterange.Resolver
	tracker     *question.Tracker
	invalidator SummaryInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(cases CaseRepository, results ResultRepository, registry *question.Registry) *Service {
	return &Service{
		cases:    cases,
		results:  results,
		registry: registry,
		vocab:    clinic.Default(),
		resolver: daterange.NewResolver(time.UTC),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

// SetVocabulary replaces the clinic vocabulary used by evaluators.
func (s *Service) SetVocabulary(v *clinic.Vocabulary) {
	s.vocab = v
}

// SetResolver sets the resolver used for case listing filters.
func (s *Service) SetResolver(r *daterange.Resolver) {
	s.resolver = r
}

// SetTracker attaches the change tracker used by interactive evaluation.
func (s *Service) SetTracker(t *question.Tracker) {
	s.tracker = t
}

// SetInvalidator attaches the report cache to invalidate after writes.
func (s *Service) SetInvalidator(inv SummaryInvalidator) {
	s.invalidator = inv
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

func (s *Service) SetClock(fn func() time.Time) {
	s.now = fn
}

func (s *Service) env(t question.ResultType) question.Env {
	return question.Env{Now: s.now().In(s.resolver.Location()), Clinics: s.vocab, Type: t}
}

// Questions lists the question catalogue in code order.
func (s *Service) Questions() []question.Meta {
	return s.registry.All()
}

// Clinics lists the clinic vocabulary.
func (s *Service) Clinics() []clinic.Entry {
	return s.vocab.Entries()
}

// Evaluate runs one question against the given answers. With a session id,
// a result that differs from the session's previous one is reported as
// changed and published; notifier failures are logged, not returned.
func (s *Service) Evaluate(ctx context.Context, ref string, answers question.Answers, sessionID string) (*Evaluation, error) {
	e, err := s.registry.Lookup(ref)
	if err != nil {
		return nil, err
	}
	meta := e.Describe()
	res, ok := e.Evaluate(s.env(question.TypeForm), answers)
	recordEvaluation(meta.Key, res, ok)

	ev := &Evaluation{Complete: ok}
	if ok {
		ev.Result = res
	}
	if s.tracker == nil || sessionID == "" {
		return ev, nil
	}
	changed, err := s.tracker.Observe(ctx, sessionID, meta.Code, ev.Result)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Str("question", meta.Key).Msg("notify result change")
	}
	ev.Changed = changed
	return ev, nil
}

// EndSession forgets the tracked results of a session.
func (s *Service) EndSession(sessionID string) {
	if s.tracker != nil {
		s.tracker.Forget(sessionID)
	}
}

func recordEvaluation(key string, res *question.Result, ok bool) {
	switch {
	case !ok:
		metrics.RecordEvaluation(key, metrics.OutcomeIncomplete)
	case res.IsReferCase:
		metrics.RecordEvaluation(key, metrics.OutcomeReferral)
	default:
		metrics.RecordEvaluation(key, metrics.OutcomeComplete)
	}
}

// assemble evaluates every selected question and validates the whole set.
func (s *Service) assemble(req *CaseRequest) (*Assembly, error) {
	env := s.env(question.TypeForm)
	seen := make(map[int]bool, len(req.Questions))
	selections := make([]Selection, 0, len(req.Questions))
	for _, q := range req.Questions {
		e, err := s.registry.Lookup(q.Question)
		if err != nil {
			return nil, err
		}
		meta := e.Describe()
		if seen[meta.Code] {
			return nil, &ValidationError{
				Message:      "question selected more than once",
				QuestionKeys: []string{meta.Key},
			}
		}
		seen[meta.Code] = true

		sel := Selection{Key: meta.Key}
		if res, ok := e.Evaluate(env, q.Answers); ok {
			sel.Result = res
		}
		selections = append(selections, sel)
	}
	return Assemble(selections)
}

// CreateCase evaluates the selected questions and stores the case. Nothing
// is written when any selected question is incomplete.
func (s *Service) CreateCase(ctx context.Context, req *CaseRequest) (*PatientCase, error) {
	patientRef := strings.TrimSpace(req.PatientRef)
	if patientRef == "" {
		return nil, fmt.Errorf("%w: patient_ref is required", ErrInvalidRequest)
	}
	a, err := s.assemble(req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actor := auth.UserIDFromContext(ctx)
	c := &PatientCase{
		ID:         req.ID,
		PatientRef: patientRef,
		CreatedBy:  actor,
		UpdatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.apply(c, a, actor, now)

	err = s.cases.CreateCase(ctx, c)
	metrics.RecordCaseWrite("create", err)
	if err != nil {
		return nil, fmt.Errorf("store case: %w", err)
	}
	s.invalidate(ctx)
	return c, nil
}

// UpdateCase replaces the whole result set of an existing case. Creation
// provenance is kept; every row is re-stamped with the updating actor.
func (s *Service) UpdateCase(ctx context.Context, id uuid.UUID, req *CaseRequest) (*PatientCase, error) {
	existing, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.assemble(req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actor := auth.UserIDFromContext(ctx)
	c := &PatientCase{
		ID:         existing.ID,
		PatientRef: existing.PatientRef,
		CreatedBy:  existing.CreatedBy,
		UpdatedBy:  actor,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  now,
	}
	if ref := strings.TrimSpace(req.PatientRef); ref != "" {
		c.PatientRef = ref
	}
	s.apply(c, a, actor, now)

	err = s.cases.ReplaceCaseQuestionResults(ctx, c)
	metrics.RecordCaseWrite("update", err)
	if err != nil {
		return nil, fmt.Errorf("store case: %w", err)
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *Service) apply(c *PatientCase, a *Assembly, actor string, now time.Time) {
	c.SummaryClinics = a.SummaryClinics
	c.SummarySymptoms = a.SummarySymptoms
	c.Results = make([]*StoredResult, 0, len(a.Results))
	for _, r := range a.Results {
		c.Results = append(c.Results, &StoredResult{
			ID:        uuid.New(),
			CaseID:    &c.ID,
			Result:    *r,
			CreatedBy: actor,
			CreatedAt: now,
		})
	}
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*PatientCase, error) {
	return s.cases.GetByID(ctx, id)
}

// ListCases resolves the date criteria against created_at and pages the
// matching cases, newest first.
func (s *Service) ListCases(ctx context.Context, criteria daterange.Criteria, clinicCode string, limit, offset int) ([]*PatientCase, int, error) {
	w, err := s.resolver.Resolve(criteria)
	if err != nil {
		return nil, 0, err
	}
	filter := CaseFilter{Window: w}
	if clinicCode = strings.TrimSpace(clinicCode); clinicCode != "" {
		if code, ok := s.vocab.Resolve(clinicCode); ok {
			clinicCode = code
		}
		filter.Clinic = clinicCode
	}
	return s.cases.List(ctx, filter, limit, offset)
}

func (s *Service) DeleteCase(ctx context.Context, id uuid.UUID) error {
	err := s.cases.DeleteCase(ctx, id)
	metrics.RecordCaseWrite("delete", err)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RecordAdvisory evaluates one question in an advisory workflow and stores
// the result without a case.
func (s *Service) RecordAdvisory(ctx context.Context, req *AdvisoryRequest) (*StoredResult, error) {
	if !req.Type.Advisory() {
		return nil, fmt.Errorf("%w: type must be one of guide, referral, kiosk", ErrInvalidRequest)
	}
	e, err := s.registry.Lookup(req.Question)
	if err != nil {
		return nil, err
	}
	meta := e.Describe()
	res, ok := e.Evaluate(s.env(req.Type), req.Answers)
	recordEvaluation(meta.Key, res, ok)
	if !ok {
		return nil, &ValidationError{
			Message:      "questions without a clinic decision",
			QuestionKeys: []string{meta.Key},
		}
	}

	row := &StoredResult{
		ID:        uuid.New(),
		Result:    *res,
		CreatedBy: auth.UserIDFromContext(ctx),
		CreatedAt: s.now().UTC(),
	}
	row.Type = req.Type
	if err := s.results.CreateAdvisory(ctx, row); err != nil {
		return nil, fmt.Errorf("store advisory: %w", err)
	}
	metrics.RecordAdvisory(string(req.Type))
	s.invalidate(ctx)
	return row, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateSummaries(ctx)
	s.logger.Debug().Msg("summary cache invalidated")
}
