// Package textnorm cleans free-form tag collections so that question results
// can be compared, deduplicated and displayed consistently.
package textnorm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	plainSlugPattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)
	scoreTagPattern  = regexp.MustCompile(`(^|_)(scale|score|grade)(_\d+)?$`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// excludedTags are administrative markers that never describe a symptom.
var excludedTags = map[string]struct{}{
	"within72": {},
	"flag":     {},
	"note":     {},
}

// CleanStringArray keeps the string-like members of values, trimmed, with
// empty strings and exact duplicates removed. Order follows the input and the
// first occurrence of a duplicate wins. Scalars are stringified; nested
// arrays, maps and nil are dropped.
func CleanStringArray(values []any) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		s, ok := scalarString(v)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CleanStrings is CleanStringArray for an already typed slice.
func CleanStrings(values []string) []string {
	anys := make([]any, len(values))
	for i, v := range values {
		anys[i] = v
	}
	return CleanStringArray(anys)
}

// ToValues coerces a stored symptoms value into a list suitable for
// CleanStringArray. It accepts []string, []any, a JSON array encoded as a
// string or []byte, and a single plain string. Any other shape is treated as
// "no symptoms" so that one malformed row never aborts a caller.
func ToValues(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case json.RawMessage:
		return decodeJSONList([]byte(v))
	case []byte:
		return decodeJSONList(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			return decodeJSONList([]byte(trimmed))
		}
		if trimmed == "" {
			return nil
		}
		return []any{trimmed}
	default:
		return nil
	}
}

func decodeJSONList(b []byte) []any {
	var list []any
	if err := json.Unmarshal(b, &list); err != nil {
		var single string
		if err := json.Unmarshal(b, &single); err == nil && strings.TrimSpace(single) != "" {
			return []any{single}
		}
		return nil
	}
	return list
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// IsNoteLikeTag reports whether tag is an administrative marker (a note
// flag, the 72-hour marker, or a scale/score/grade value) rather than a
// clinical symptom.
func IsNoteLikeTag(tag string) bool {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return false
	}
	if _, ok := excludedTags[t]; ok {
		return true
	}
	if strings.HasSuffix(t, "_note") {
		return true
	}
	return scoreTagPattern.MatchString(t)
}

// IsPlainSlug reports whether tag, with underscores read as spaces, consists
// only of ASCII letters, digits and spaces.
func IsPlainSlug(tag string) bool {
	return plainSlugPattern.MatchString(strings.ReplaceAll(tag, "_", " "))
}

// CollapseSpaces trims s and folds every whitespace run into one space.
func CollapseSpaces(s string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// FallbackLabel returns the first non-empty, non note-like candidate.
func FallbackLabel(candidates ...string) string {
	for _, c := range candidates {
		c = CollapseSpaces(c)
		if c == "" || IsNoteLikeTag(c) {
			continue
		}
		return c
	}
	return ""
}

// NormalizeSymptoms turns raw symptom candidates into display tags.
//
// Note-like tags are dropped. A list made only of plain slugs collapses to
// the title when one is available, since slugs alone read poorly in a
// summary. An empty list falls back to the first usable value among title,
// key and question. The result is never nil.
func NormalizeSymptoms(symptoms []any, title, key, question string) []string {
	cleaned := CleanStringArray(symptoms)

	kept := make([]string, 0, len(cleaned))
	for _, s := range cleaned {
		if IsNoteLikeTag(s) {
			continue
		}
		kept = append(kept, s)
	}

	if len(kept) > 0 {
		allSlugs := true
		for _, s := range kept {
			if !IsPlainSlug(s) {
				allSlugs = false
				break
			}
		}
		if t := CollapseSpaces(title); allSlugs && t != "" {
			return []string{t}
		}

		out := make([]string, 0, len(kept))
		seen := make(map[string]struct{}, len(kept))
		for _, s := range kept {
			s = CollapseSpaces(s)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
		return out
	}

	if label := FallbackLabel(title, key, question); label != "" {
		return []string{label}
	}
	return []string{}
}
