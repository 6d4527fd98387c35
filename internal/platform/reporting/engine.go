// Package reporting aggregates stored question results into symptom and
// clinic summaries.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/domain/clinic"
	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/domain/screening"
	"github.com/ppk/screening/internal/platform/cache"
	"github.com/ppk/screening/internal/platform/metrics"
	"github.com/ppk/screening/pkg/daterange"
	"github.com/ppk/screening/pkg/textnorm"
)

var (
	ErrUnknownType = errors.New("unknown summary type")
	// ErrSummaryUnavailable wraps store failures so callers can tell a
	// failed fetch from zero matches.
	ErrSummaryUnavailable = errors.New("summary unavailable")
)

// Summary types.
const (
	TypeTotal = "total"
	TypeForm  = "form"
	TypeGuide = "guide"
)

const (
	symptomKeyPrefix = "symptom_summary:"
	clinicKeyPrefix  = "clinic_summary:"
)

// DefaultCacheTTL is the freshness window for unfiltered summaries.
const DefaultCacheTTL = 10 * time.Minute

// typeSets maps a summary type to the stored row types it covers.
var typeSets = map[string][]question.ResultType{
	TypeForm:  {question.TypeForm, question.TypeFormLegacy},
	TypeGuide: {question.TypeGuide},
	TypeTotal: {question.TypeForm, question.TypeFormLegacy, question.TypeGuide, question.TypeReferral, question.TypeKiosk},
}

// SymptomCount is one deduplicated symptom label and the number of rows
// mentioning it.
type SymptomCount struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}

// ClinicCount is the number of rows routed to one clinic.
type ClinicCount struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Total int    `json:"total"`
}

// NormalizeType lower-cases t; an empty type means total.
func NormalizeType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		t = TypeTotal
	}
	if _, ok := typeSets[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return t, nil
}

// TypeSet returns the stored row types covered by summary type t.
func TypeSet(t string) ([]question.ResultType, error) {
	t, err := NormalizeType(t)
	if err != nil {
		return nil, err
	}
	return typeSets[t], nil
}

// Engine computes summaries from the result store. Unfiltered summaries are
// cached per type when a cache is attached; windowed ones never are.
type Engine struct {
	results  screening.ResultRepository
	resolver *daterange.Resolver
	vocab    *clinic.Vocabulary
	cache    cache.Store
	gen      cache.Generation
	ttl      time.Duration
	logger   zerolog.Logger
}

func NewEngine(results screening.ResultRepository, resolver *daterange.Resolver) *Engine {
	if resolver == nil {
		resolver = daterange.NewResolver(time.UTC)
	}
	return &Engine{
		results:  results,
		resolver: resolver,
		vocab:    clinic.Default(),
		ttl:      DefaultCacheTTL,
		logger:   zerolog.Nop(),
	}
}

// SetCache attaches a cache store with the given freshness window.
func (e *Engine) SetCache(store cache.Store, ttl time.Duration) {
	e.cache = store
	if ttl > 0 {
		e.ttl = ttl
	}
}

func (e *Engine) SetVocabulary(v *clinic.Vocabulary) {
	e.vocab = v
}

func (e *Engine) SetLogger(l zerolog.Logger) {
	e.logger = l
}

// Symptoms returns the symptom summary for type t within the criteria
// window, in first-seen order.
func (e *Engine) Symptoms(ctx context.Context, t string, criteria daterange.Criteria) ([]SymptomCount, error) {
	return summarize(ctx, e, "symptoms", symptomKeyPrefix, t, criteria, AggregateSymptoms)
}

// Clinics returns the clinic summary for type t within the criteria window.
func (e *Engine) Clinics(ctx context.Context, t string, criteria daterange.Criteria) ([]ClinicCount, error) {
	return summarize(ctx, e, "clinics", clinicKeyPrefix, t, criteria, func(rows []*screening.StoredResult) []ClinicCount {
		return AggregateClinics(rows, e.vocab)
	})
}

func summarize[T any](ctx context.Context, e *Engine, report, prefix, t string, criteria daterange.Criteria, aggregate func([]*screening.StoredResult) []T) ([]T, error) {
	t, err := NormalizeType(t)
	if err != nil {
		return nil, err
	}
	w, err := e.resolver.Resolve(criteria)
	if err != nil {
		return nil, err
	}

	compute := func() ([]T, error) {
		rows, err := e.results.FetchQuestionResults(ctx, typeSets[t], w)
		if err != nil {
			e.logger.Error().Err(err).Str("report", report).Str("type", t).Msg("fetch question results")
			return nil, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
		}
		return aggregate(rows), nil
	}

	if e.cache == nil || !w.IsZero() {
		metrics.RecordSummaryRequest(report, t, metrics.CacheBypass)
		return compute()
	}

	out, hit, err := cache.RememberAt(e.cache, &e.gen, prefix+t, e.ttl, compute)
	if err != nil {
		return nil, err
	}
	if hit {
		metrics.RecordSummaryRequest(report, t, metrics.CacheHit)
	} else {
		metrics.RecordSummaryRequest(report, t, metrics.CacheMiss)
	}
	return out, nil
}

// InvalidateSummaries drops every cached summary. It is called after any
// question result is written or deleted. Summaries still being computed from
// before the call are not cached.
func (e *Engine) InvalidateSummaries(_ context.Context) {
	if e.cache == nil {
		return
	}
	var n int
	e.gen.Invalidate(func() {
		n = e.cache.DeletePrefix(symptomKeyPrefix) + e.cache.DeletePrefix(clinicKeyPrefix)
	})
	e.logger.Debug().Int("keys", n).Msg("summary cache invalidated")
}

// AggregateSymptoms re-normalizes each row's stored symptoms under the
// current rules and counts them case-insensitively. The first-seen casing
// of a label is kept, and a label counts at most once per row.
func AggregateSymptoms(rows []*screening.StoredResult) []SymptomCount {
	index := make(map[string]int)
	var out []SymptomCount
	for _, row := range rows {
		fallback := textnorm.FallbackLabel(row.QuestionTitle, row.QuestionKey, row.Question)
		labels := textnorm.NormalizeSymptoms(textnorm.ToValues(row.Symptoms), fallback, "", "")

		counted := make(map[string]bool, len(labels))
		for _, label := range labels {
			label = textnorm.CollapseSpaces(label)
			fold := strings.ToLower(label)
			if label == "" || counted[fold] {
				continue
			}
			counted[fold] = true
			if i, ok := index[fold]; ok {
				out[i].Total++
				continue
			}
			index[fold] = len(out)
			out = append(out, SymptomCount{Label: label, Total: 1})
		}
	}
	if out == nil {
		out = []SymptomCount{}
	}
	return out
}

// AggregateClinics counts rows per clinic code. Labels come from vocab;
// unknown codes are shown raw.
func AggregateClinics(rows []*screening.StoredResult, vocab *clinic.Vocabulary) []ClinicCount {
	index := make(map[string]int)
	out := []ClinicCount{}
	for _, row := range rows {
		codes := make([]string, len(row.Clinic))
		for i, c := range row.Clinic {
			codes[i] = strings.ToLower(c)
		}
		for _, code := range textnorm.CleanStrings(codes) {
			if i, ok := index[code]; ok {
				out[i].Total++
				continue
			}
			index[code] = len(out)
			out = append(out, ClinicCount{Code: code, Label: vocab.Label(code), Total: 1})
		}
	}
	return out
}

// RankSymptoms orders counts by total, highest first. Ties keep their order.
func RankSymptoms(counts []SymptomCount) []SymptomCount {
	out := make([]SymptomCount, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// RankClinics orders counts by total, highest first. Ties keep their order.
func RankClinics(counts []ClinicCount) []ClinicCount {
	out := make([]ClinicCount, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
