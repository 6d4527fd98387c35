package screening

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/sqlite"
	"github.com/ppk/screening/pkg/daterange"
)

func newSQLiteRepos(t *testing.T) (CaseRepository, ResultRepository) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return NewCaseRepoSQLite(db), NewResultRepoSQLite(db)
}

func storedCase(createdAt time.Time, rows ...*StoredResult) *PatientCase {
	c := &PatientCase{
		ID:              uuid.New(),
		PatientRef:      "HN-" + uuid.NewString()[:8],
		SummaryClinics:  []string{},
		SummarySymptoms: []string{NoSymptoms},
		CreatedBy:       "nurse-1",
		UpdatedBy:       "nurse-1",
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		Results:         rows,
	}
	for _, r := range rows {
		c.SummaryClinics = append(c.SummaryClinics, r.Clinic...)
	}
	return c
}

func storedRow(key string, typ question.ResultType, createdAt time.Time, clinics []string, symptoms ...string) *StoredResult {
	return &StoredResult{
		Result: question.Result{
			QuestionCode:  1,
			QuestionKey:   key,
			QuestionTitle: key + " title",
			Question:      key + "?",
			Clinic:        clinics,
			Symptoms:      symptoms,
			Type:          typ,
		},
		CreatedBy: "nurse-1",
		CreatedAt: createdAt,
	}
}

func TestCaseRepoSQLite_CreateAndGet(t *testing.T) {
	cases, _ := newSQLiteRepos(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)

	c := storedCase(at,
		storedRow("Pregnancy", question.TypeForm, at, []string{"lr"}, "ปวดครรภ์"),
		storedRow("Fever", question.TypeForm, at, []string{"med"}, "ไข้"),
	)
	c.Results[0].IsReferCase = true
	c.Results[0].Note = "ปวดครรภ์ ≥ 25 สัปดาห์"
	require.NoError(t, cases.CreateCase(ctx, c))

	got, err := cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.PatientRef, got.PatientRef)
	assert.Equal(t, []string{"lr", "med"}, got.SummaryClinics)
	assert.True(t, got.CreatedAt.Equal(at))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Pregnancy", got.Results[0].QuestionKey)
	assert.Equal(t, "Fever", got.Results[1].QuestionKey)
	assert.True(t, got.Results[0].IsReferCase)
	assert.Equal(t, "ปวดครรภ์ ≥ 25 สัปดาห์", got.Results[0].Note)
	require.NotNil(t, got.Results[0].CaseID)
	assert.Equal(t, c.ID, *got.Results[0].CaseID)
	assert.True(t, got.ReferCase())
}

func TestCaseRepoSQLite_CreateExistingIDConflicts(t *testing.T) {
	cases, results := newSQLiteRepos(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	first := storedCase(at, storedRow("CompartmentSyndrome", question.TypeForm, at, []string{"ortho"}))
	require.NoError(t, cases.CreateCase(ctx, first))

	second := storedCase(at.Add(time.Hour), storedRow("HIVExposure", question.TypeForm, at, []string{"er"}))
	second.ID = first.ID
	second.CreatedBy = "nurse-2"
	require.ErrorIs(t, cases.CreateCase(ctx, second), ErrConflict)

	got, err := cases.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PatientRef, got.PatientRef)
	assert.Equal(t, "nurse-1", got.CreatedBy)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "CompartmentSyndrome", got.Results[0].QuestionKey)

	all, err := results.FetchQuestionResults(ctx, nil, daterange.Window{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCaseRepoSQLite_ReplaceRemovesOldRows(t *testing.T) {
	cases, results := newSQLiteRepos(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	c := storedCase(at,
		storedRow("Pregnancy", question.TypeForm, at, []string{"lr"}),
		storedRow("Fever", question.TypeForm, at, []string{"med"}),
	)
	require.NoError(t, cases.ReplaceCaseQuestionResults(ctx, c))

	c.Results = []*StoredResult{storedRow("ChildPatient", question.TypeForm, at, []string{"ped"})}
	c.UpdatedBy = "nurse-2"
	require.NoError(t, cases.ReplaceCaseQuestionResults(ctx, c))

	got, err := cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "ChildPatient", got.Results[0].QuestionKey)
	assert.Equal(t, "nurse-2", got.UpdatedBy)

	all, err := results.FetchQuestionResults(ctx, nil, daterange.Window{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "replaced rows must not be orphaned")
}

func TestCaseRepoSQLite_GetNotFound(t *testing.T) {
	cases, _ := newSQLiteRepos(t)
	_, err := cases.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaseRepoSQLite_DeleteCascades(t *testing.T) {
	cases, results := newSQLiteRepos(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	c := storedCase(at, storedRow("Fever", question.TypeForm, at, []string{"med"}))
	require.NoError(t, cases.ReplaceCaseQuestionResults(ctx, c))
	require.NoError(t, results.CreateAdvisory(ctx, storedRow("Fever", question.TypeGuide, at, []string{"med"})))

	require.NoError(t, cases.DeleteCase(ctx, c.ID))
	assert.ErrorIs(t, cases.DeleteCase(ctx, c.ID), ErrNotFound)

	rows, err := results.FetchQuestionResults(ctx, nil, daterange.Window{})
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the advisory row should remain")
	assert.Nil(t, rows[0].CaseID)
}

func TestCaseRepoSQLite_ListFilters(t *testing.T) {
	cases, _ := newSQLiteRepos(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	c1 := storedCase(day1, storedRow("Fever", question.TypeForm, day1, []string{"med"}))
	c2 := storedCase(day2, storedRow("ChestPain", question.TypeForm, day2, []string{"er", "cardio"}))
	c3 := storedCase(day3, storedRow("Fever", question.TypeForm, day3, []string{"med"}))
	for _, c := range []*PatientCase{c1, c2, c3} {
		require.NoError(t, cases.ReplaceCaseQuestionResults(ctx, c))
	}

	all, total, err := cases.List(ctx, CaseFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, c3.ID, all[0].ID, "newest first")
	for _, c := range all {
		assert.Len(t, c.Results, 1)
	}

	page, total, err := cases.List(ctx, CaseFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, c2.ID, page[0].ID)

	window := daterange.Window{
		Start: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 12, 23, 59, 59, 999999999, time.UTC),
	}
	ranged, total, err := cases.List(ctx, CaseFilter{Window: window}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, ranged, 2)

	med, total, err := cases.List(ctx, CaseFilter{Clinic: "med"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, c := range med {
		assert.Contains(t, c.SummaryClinics, "med")
	}
}

func TestResultRepoSQLite_FetchByTypeAndWindow(t *testing.T) {
	cases, results := newSQLiteRepos(t)
	ctx := context.Background()
	mar10 := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	mar11 := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	c := storedCase(mar10,
		storedRow("Fever", question.TypeForm, mar10, []string{"med"}, "ไข้"),
		storedRow("Legacy", question.TypeFormLegacy, mar11, []string{"med"}, "ไอ"),
	)
	require.NoError(t, cases.ReplaceCaseQuestionResults(ctx, c))
	require.NoError(t, results.CreateAdvisory(ctx, storedRow("Guide", question.TypeGuide, mar11, []string{"fm"}, "Chest Pain")))
	require.NoError(t, results.CreateAdvisory(ctx, storedRow("Kiosk", question.TypeKiosk, mar11, []string{"er"}, "chest pain")))

	forms, err := results.FetchQuestionResults(ctx, []question.ResultType{question.TypeForm, question.TypeFormLegacy}, daterange.Window{})
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	guides, err := results.FetchQuestionResults(ctx, []question.ResultType{question.TypeGuide}, daterange.Window{})
	require.NoError(t, err)
	require.Len(t, guides, 1)
	assert.Equal(t, []string{"Chest Pain"}, guides[0].Symptoms)
	assert.Nil(t, guides[0].CaseID)

	day := daterange.Window{Start: mar11, End: mar11.Add(24*time.Hour - time.Nanosecond)}
	onDay, err := results.FetchQuestionResults(ctx, nil, day)
	require.NoError(t, err)
	assert.Len(t, onDay, 3, "bounds are inclusive and the earlier row is excluded")
}

func TestResultRepoSQLite_AdvisoryIgnoresCaseID(t *testing.T) {
	_, results := newSQLiteRepos(t)
	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	row := storedRow("Guide", question.TypeGuide, at, []string{"fm"})
	stray := uuid.New()
	row.CaseID = &stray

	require.NoError(t, results.CreateAdvisory(context.Background(), row))
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Nil(t, row.CaseID)
}
