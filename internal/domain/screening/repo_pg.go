package screening

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/db"
	"github.com/ppk/screening/pkg/daterange"
)

// queryable abstracts pgxpool.Pool and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const caseColumns = `id, patient_ref, summary_clinics, summary_symptoms, created_by, updated_by, created_at, updated_at`

const resultColumns = `id, case_id, question_code, question_key, question_title, question,
	clinic, symptoms, note, is_refer_case, type, created_by, created_at`

// -- Case Repository --

type caseRepoPG struct {
	pool *pgxpool.Pool
}

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *caseRepoPG) CreateCase(ctx context.Context, c *PatientCase) error {
	err := r.write(ctx, c, `INSERT INTO patient_case (`+caseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *caseRepoPG) ReplaceCaseQuestionResults(ctx context.Context, c *PatientCase) error {
	return r.write(ctx, c, `
		INSERT INTO patient_case (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			patient_ref = EXCLUDED.patient_ref,
			summary_clinics = EXCLUDED.summary_clinics,
			summary_symptoms = EXCLUDED.summary_symptoms,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`)
}

func (r *caseRepoPG) write(ctx context.Context, c *PatientCase, header string) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		_, err := q.Exec(ctx, header,
			c.ID, c.PatientRef, encodeList(c.SummaryClinics), encodeList(c.SummarySymptoms),
			c.CreatedBy, c.UpdatedBy, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("write case: %w", err)
		}

		if _, err := q.Exec(ctx, `DELETE FROM question_result WHERE case_id = $1`, c.ID); err != nil {
			return fmt.Errorf("delete case results: %w", err)
		}

		for i, row := range c.Results {
			row.CaseID = &c.ID
			if err := insertResultPG(ctx, q, row, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertResultPG(ctx context.Context, q queryable, row *StoredResult, position int) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO question_result (
			id, case_id, position, question_code, question_key, question_title, question,
			clinic, symptoms, note, is_refer_case, type, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		row.ID, row.CaseID, position, row.QuestionCode, row.QuestionKey, row.QuestionTitle, row.Question,
		encodeList(row.Clinic), encodeList(row.Symptoms), row.Note, row.IsReferCase, string(row.Type),
		row.CreatedBy, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert question result %s: %w", row.QuestionKey, err)
	}
	return nil
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientCase, error) {
	c, err := scanCasePG(r.conn(ctx).QueryRow(ctx, `SELECT `+caseColumns+` FROM patient_case WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachResults(ctx, []*PatientCase{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *caseRepoPG) List(ctx context.Context, filter CaseFilter, limit, offset int) ([]*PatientCase, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if !filter.Window.IsZero() {
		where += fmt.Sprintf(` AND created_at BETWEEN $%d AND $%d`, idx, idx+1)
		args = append(args, filter.Window.Start, filter.Window.End)
		idx += 2
	}
	if filter.Clinic != "" {
		where += fmt.Sprintf(` AND summary_clinics ? $%d`, idx)
		args = append(args, filter.Clinic)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_case`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + caseColumns + ` FROM patient_case` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cases []*PatientCase
	for rows.Next() {
		c, err := scanCasePG(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachResults(ctx, cases); err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

func (r *caseRepoPG) attachResults(ctx context.Context, cases []*PatientCase) error {
	if len(cases) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*PatientCase, len(cases))
	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
		ids = append(ids, c.ID.String())
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resultColumns+` FROM question_result
		WHERE case_id = ANY($1::uuid[]) ORDER BY case_id, position`, ids)
	if err != nil {
		return fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		res, err := scanResultPG(rows)
		if err != nil {
			return err
		}
		if res.CaseID == nil {
			continue
		}
		if c, ok := byID[*res.CaseID]; ok {
			c.Results = append(c.Results, res)
		}
	}
	return rows.Err()
}

func (r *caseRepoPG) DeleteCase(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_case WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCasePG(row rowScanner) (*PatientCase, error) {
	var c PatientCase
	var clinics, symptoms []byte
	err := row.Scan(&c.ID, &c.PatientRef, &clinics, &symptoms, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SummaryClinics = decodeList(clinics)
	c.SummarySymptoms = decodeList(symptoms)
	return &c, nil
}

// -- Result Repository --

type resultRepoPG struct {
	pool *pgxpool.Pool
}

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

func (r *resultRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *resultRepoPG) CreateAdvisory(ctx context.Context, res *StoredResult) error {
	res.CaseID = nil
	return insertResultPG(ctx, r.conn(ctx), res, 0)
}

func (r *resultRepoPG) FetchQuestionResults(ctx context.Context, types []question.ResultType, w daterange.Window) ([]*StoredResult, error) {
	query := `SELECT ` + resultColumns + ` FROM question_result WHERE 1=1`
	var args []interface{}
	idx := 1

	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += fmt.Sprintf(` AND type = ANY($%d)`, idx)
		args = append(args, names)
		idx++
	}
	if !w.IsZero() {
		query += fmt.Sprintf(` AND created_at BETWEEN $%d AND $%d`, idx, idx+1)
		args = append(args, w.Start, w.End)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch question results: %w", err)
	}
	defer rows.Close()

	var out []*StoredResult
	for rows.Next() {
		res, err := scanResultPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResultPG(row rowScanner) (*StoredResult, error) {
	var res StoredResult
	var clinics, symptoms []byte
	var typ string
	err := row.Scan(
		&res.ID, &res.CaseID, &res.QuestionCode, &res.QuestionKey, &res.QuestionTitle, &res.Question,
		&clinics, &symptoms, &res.Note, &res.IsReferCase, &typ, &res.CreatedBy, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Clinic = decodeList(clinics)
	res.Symptoms = decodeList(symptoms)
	res.Type = question.ResultType(typ)
	return &res, nil
}
