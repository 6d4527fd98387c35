package question

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ppk/screening/pkg/textnorm"
)

// Common answer field names shared by several questions.
const (
	FieldNameNote     = "note"
	FieldNameSymptoms = "symptoms"
	FieldNameGender   = "gender"
	FieldNameClinic   = "clinic"
	FieldNameRefer    = "refer"
)

// Gender answer values.
const (
	GenderMale   = "1"
	GenderFemale = "2"
	GenderOther  = "3"
)

// Answers is the answer state of one question as submitted by a form.
// Missing optional fields read as their zero value.
type Answers map[string]any

// Has reports whether key carries a non-empty value.
func (a Answers) Has(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the trimmed string value of key.
func (a Answers) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Bool returns the boolean value of key. Checkbox encodings such as "1",
// "on" and "true" count as true.
func (a Answers) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "yes", "y":
			return true
		}
	}
	return false
}

// Float returns the numeric value of key and whether one was present.
func (a Answers) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the integer part of the numeric value of key.
func (a Answers) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	return int(f), ok
}

// Strings returns the cleaned string list stored under key. A single string
// is read as a one-element list.
func (a Answers) Strings(key string) []string {
	return textnorm.CleanStringArray(textnorm.ToValues(a[key]))
}

// Contains reports whether the list under key holds value.
func (a Answers) Contains(key, value string) bool {
	for _, s := range a.Strings(key) {
		if s == value {
			return true
		}
	}
	return false
}
