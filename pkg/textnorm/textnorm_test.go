package textnorm

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCleanStringArray(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want []string
	}{
		{"nil", nil, []string{}},
		{"trims and drops empty", []any{"  a ", "", "   ", "b"}, []string{"a", "b"}},
		{"first duplicate wins", []any{"x", "y", "x", " y "}, []string{"x", "y"}},
		{"stringifies scalars", []any{1, 2.5, true, json.Number("7")}, []string{"1", "2.5", "true", "7"}},
		{"drops complex values", []any{[]any{"a"}, map[string]any{"k": "v"}, nil, "ok"}, []string{"ok"}},
		{"case sensitive", []any{"Chest Pain", "chest pain"}, []string{"Chest Pain", "chest pain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanStringArray(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanStringArray_Properties(t *testing.T) {
	in := []any{"a", " a", "b ", "", 3, "3", nil, []string{"z"}, "c", "c"}
	got := CleanStringArray(in)

	seen := map[string]bool{}
	for _, s := range got {
		if s == "" {
			t.Error("output contains an empty string")
		}
		if seen[s] {
			t.Errorf("output contains duplicate %q", s)
		}
		seen[s] = true
	}
	for _, s := range got {
		found := false
		for _, v := range in {
			if str, ok := scalarString(v); ok && trimEq(str, s) {
				found = true
			}
		}
		if !found {
			t.Errorf("%q is not derived from the input", s)
		}
	}
}

func trimEq(a, b string) bool {
	return CollapseSpaces(a) == b
}

func TestToValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"string slice", []string{"a", "b"}, 2},
		{"any slice", []any{"a", 1}, 2},
		{"json array string", `["a","b","c"]`, 3},
		{"json bytes", []byte(`["a"]`), 1},
		{"raw message", json.RawMessage(`["a","b"]`), 2},
		{"plain string", "ไข้", 1},
		{"blank string", "  ", 0},
		{"broken json", `["a",`, 0},
		{"json object", []byte(`{"a":1}`), 0},
		{"number", 42, 0},
		{"map", map[string]any{"a": 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToValues(tt.in); len(got) != tt.want {
				t.Errorf("got %d values (%v), want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestIsNoteLikeTag(t *testing.T) {
	yes := []string{"note", "NOTE", "has_case_doc_note", "_note", "within72", "flag", "pain_scale_3", "score_2", "score", "grade_1"}
	no := []string{"", "notes", "chest_pain", "ปวดท้อง", "scoreboard", "notebook"}
	for _, tag := range yes {
		if !IsNoteLikeTag(tag) {
			t.Errorf("IsNoteLikeTag(%q) = false, want true", tag)
		}
	}
	for _, tag := range no {
		if IsNoteLikeTag(tag) {
			t.Errorf("IsNoteLikeTag(%q) = true, want false", tag)
		}
	}
}

func TestIsPlainSlug(t *testing.T) {
	tests := map[string]bool{
		"chest_pain ":   true,
		"injury":        true,
		"score 2":       true,
		"ปวดท้อง":       false,
		"pain-severe":   false,
		"":              false,
		"เจ็บ_chest":    false,
		"Open Fracture": true,
	}
	for in, want := range tests {
		if got := IsPlainSlug(in); got != want {
			t.Errorf("IsPlainSlug(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFallbackLabel(t *testing.T) {
	if got := FallbackLabel("", "note", "  question  text "); got != "question text" {
		t.Errorf("got %q", got)
	}
	if got := FallbackLabel("", ""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestNormalizeSymptoms(t *testing.T) {
	tests := []struct {
		name     string
		symptoms []any
		title    string
		key      string
		question string
		want     []string
	}{
		{
			name:     "all slugs collapse to title",
			symptoms: []any{"injury", "severe"},
			title:    "ประเมินเคสบาดเจ็บ",
			want:     []string{"ประเมินเคสบาดเจ็บ"},
		},
		{
			name:     "all slugs without title are kept",
			symptoms: []any{"injury", "severe"},
			want:     []string{"injury", "severe"},
		},
		{
			name:     "clinical language is kept",
			symptoms: []any{"ปวดท้อง", "fever", "ปวดท้อง"},
			title:    "Abdominal",
			want:     []string{"ปวดท้อง", "fever"},
		},
		{
			name:     "note-like tags dropped before slug check",
			symptoms: []any{"เจ็บหน้าอก", "has_case_doc_note", "pain_scale_4", "within72"},
			title:    "Chest",
			want:     []string{"เจ็บหน้าอก"},
		},
		{
			name:     "only note-like tags fall back to title",
			symptoms: []any{"note", "score_3"},
			title:    "Question Title",
			want:     []string{"Question Title"},
		},
		{
			name:     "empty uses title",
			title:    "Question Title",
			key:      "key",
			question: "question text",
			want:     []string{"Question Title"},
		},
		{
			name:     "empty uses key when title missing",
			key:      "StrokeSuspect",
			question: "question text",
			want:     []string{"StrokeSuspect"},
		},
		{
			name:     "note-like key skipped",
			key:      "note",
			question: "question text",
			want:     []string{"question text"},
		},
		{
			name: "nothing survives",
			want: []string{},
		},
		{
			name:     "whitespace collapsed",
			symptoms: []any{"ปวด   ศีรษะ", "ปวด ศีรษะ"},
			want:     []string{"ปวด ศีรษะ"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSymptoms(tt.symptoms, tt.title, tt.key, tt.question)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
