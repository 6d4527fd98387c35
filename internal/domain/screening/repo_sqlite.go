package screening

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/sqlite"
	"github.com/ppk/screening/pkg/daterange"
)

// sqlExecer is satisfied by *sql.DB and *sql.Tx.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// -- Case Repository --

type caseRepoSQLite struct {
	db *sqlite.DB
}

func NewCaseRepoSQLite(db *sqlite.DB) CaseRepository {
	return &caseRepoSQLite{db: db}
}

func (r *caseRepoSQLite) CreateCase(ctx context.Context, c *PatientCase) error {
	err := r.write(ctx, c, `INSERT INTO patient_case (`+caseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if sqlite.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *caseRepoSQLite) ReplaceCaseQuestionResults(ctx context.Context, c *PatientCase) error {
	return r.write(ctx, c, `
		INSERT INTO patient_case (`+caseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			patient_ref = excluded.patient_ref,
			summary_clinics = excluded.summary_clinics,
			summary_symptoms = excluded.summary_symptoms,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`)
}

// write runs header for the case row, then swaps its result rows, in one
// transaction.
func (r *caseRepoSQLite) write(ctx context.Context, c *PatientCase, header string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, header,
		c.ID.String(), c.PatientRef, encodeList(c.SummaryClinics), encodeList(c.SummarySymptoms),
		c.CreatedBy, c.UpdatedBy, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write case: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_result WHERE case_id = ?`, c.ID.String()); err != nil {
		return fmt.Errorf("delete case results: %w", err)
	}

	for i, row := range c.Results {
		row.CaseID = &c.ID
		if err := insertResultSQLite(ctx, tx, row, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertResultSQLite(ctx context.Context, q sqlExecer, row *StoredResult, position int) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	var caseID sql.NullString
	if row.CaseID != nil {
		caseID = sql.NullString{String: row.CaseID.String(), Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO question_result (
			id, case_id, position, question_code, question_key, question_title, question,
			clinic, symptoms, note, is_refer_case, type, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID.String(), caseID, position, row.QuestionCode, row.QuestionKey, row.QuestionTitle, row.Question,
		encodeList(row.Clinic), encodeList(row.Symptoms), row.Note, row.IsReferCase, string(row.Type),
		row.CreatedBy, row.CreatedAt.UnixNano(),
	)
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert question result %s: %w", row.QuestionKey, err)
	}
	return nil
}

func (r *caseRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*PatientCase, error) {
	c, err := scanCaseSQLite(r.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM patient_case WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
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

func (r *caseRepoSQLite) List(ctx context.Context, filter CaseFilter, limit, offset int) ([]*PatientCase, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if !filter.Window.IsZero() {
		where += ` AND created_at BETWEEN ? AND ?`
		args = append(args, filter.Window.Start.UnixNano(), filter.Window.End.UnixNano())
	}
	if filter.Clinic != "" {
		where += ` AND EXISTS (SELECT 1 FROM json_each(patient_case.summary_clinics) WHERE json_each.value = ?)`
		args = append(args, filter.Clinic)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patient_case`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM patient_case`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	var cases []*PatientCase
	for rows.Next() {
		c, err := scanCaseSQLite(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	// The pool holds one connection, so release it before the next query.
	rows.Close()

	if err := r.attachResults(ctx, cases); err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

func (r *caseRepoSQLite) attachResults(ctx context.Context, cases []*PatientCase) error {
	if len(cases) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*PatientCase, len(cases))
	placeholders := make([]string, 0, len(cases))
	args := make([]interface{}, 0, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
		placeholders = append(placeholders, "?")
		args = append(args, c.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM question_result
		WHERE case_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY case_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		res, err := scanResultSQLite(rows)
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

func (r *caseRepoSQLite) DeleteCase(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patient_case WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCaseSQLite(row rowScanner) (*PatientCase, error) {
	var c PatientCase
	var id, clinics, symptoms string
	var createdAt, updatedAt int64
	err := row.Scan(&id, &c.PatientRef, &clinics, &symptoms, &c.CreatedBy, &c.UpdatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse case id %q: %w", id, err)
	}
	c.SummaryClinics = decodeList([]byte(clinics))
	c.SummarySymptoms = decodeList([]byte(symptoms))
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	c.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &c, nil
}

// -- Result Repository --

type resultRepoSQLite struct {
	db *sqlite.DB
}

func NewResultRepoSQLite(db *sqlite.DB) ResultRepository {
	return &resultRepoSQLite{db: db}
}

func (r *resultRepoSQLite) CreateAdvisory(ctx context.Context, res *StoredResult) error {
	res.CaseID = nil
	return insertResultSQLite(ctx, r.db, res, 0)
}

func (r *resultRepoSQLite) FetchQuestionResults(ctx context.Context, types []question.ResultType, w daterange.Window) ([]*StoredResult, error) {
	query := `SELECT ` + resultColumns + ` FROM question_result WHERE 1=1`
	var args []interface{}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	if !w.IsZero() {
		query += ` AND created_at BETWEEN ? AND ?`
		args = append(args, w.Start.UnixNano(), w.End.UnixNano())
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch question results: %w", err)
	}
	defer rows.Close()

	var out []*StoredResult
	for rows.Next() {
		res, err := scanResultSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResultSQLite(row rowScanner) (*StoredResult, error) {
	var res StoredResult
	var id, clinics, symptoms, typ string
	var caseID sql.NullString
	var createdAt int64
	err := row.Scan(
		&id, &caseID, &res.QuestionCode, &res.QuestionKey, &res.QuestionTitle, &res.Question,
		&clinics, &symptoms, &res.Note, &res.IsReferCase, &typ, &res.CreatedBy, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if res.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse result id %q: %w", id, err)
	}
	if caseID.Valid {
		cid, err := uuid.Parse(caseID.String)
		if err != nil {
			return nil, fmt.Errorf("parse case id %q: %w", caseID.String, err)
		}
		res.CaseID = &cid
	}
	res.Clinic = decodeList([]byte(clinics))
	res.Symptoms = decodeList([]byte(symptoms))
	res.Type = question.ResultType(typ)
	res.CreatedAt = time.Unix(0, createdAt).UTC()
	return &res, nil
}
