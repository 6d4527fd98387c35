package question

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ResultType is the workflow context that produced a result.
type ResultType string

const (
	TypeForm     ResultType = "form"
	TypeGuide    ResultType = "guide"
	TypeReferral ResultType = "referral"
	TypeKiosk    ResultType = "kiosk"

	// TypeFormLegacy is the form alias written by older releases. It is read,
	// never written.
	TypeFormLegacy ResultType = "formppk"
)

// Valid reports whether t may be written by the current release.
func (t ResultType) Valid() bool {
	switch t {
	case TypeForm, TypeGuide, TypeReferral, TypeKiosk:
		return true
	}
	return false
}

// Advisory reports whether results of this type are unattached to a patient.
func (t ResultType) Advisory() bool {
	return t == TypeGuide || t == TypeReferral || t == TypeKiosk
}

// NoteSeparator joins rule-derived note fragments and free text.
const NoteSeparator = " | "

// Result is the normalized decision record of one question.
type Result struct {
	QuestionCode  int        `json:"question_code"`
	QuestionKey   string     `json:"question_key"`
	QuestionTitle string     `json:"question_title"`
	Question      string     `json:"question"`
	Clinic        []string   `json:"clinic"`
	Symptoms      []string   `json:"symptoms"`
	Note          string     `json:"note"`
	IsReferCase   bool       `json:"is_refer_case"`
	Type          ResultType `json:"type"`
}

// Fingerprint is a stable digest of the result's content. Two results with
// the same fingerprint are structurally identical.
func (r *Result) Fingerprint() string {
	if r == nil {
		return ""
	}
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FieldKind describes the input control behind an answer field.
type FieldKind string

const (
	FieldChoice FieldKind = "choice"
	FieldMulti  FieldKind = "multi"
	FieldNumber FieldKind = "number"
	FieldText   FieldKind = "text"
	FieldBool   FieldKind = "bool"
	FieldClinic FieldKind = "clinic"
)

// Field describes one answer field an evaluator reads.
type Field struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required,omitempty"`
}

// Meta is the static description of a question.
type Meta struct {
	Code     int     `json:"code"`
	Key      string  `json:"key"`
	Title    string  `json:"title"`
	Question string  `json:"question"`
	Fields   []Field `json:"fields"`
}
