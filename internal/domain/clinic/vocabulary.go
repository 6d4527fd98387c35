package clinic

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Clinic codes used by the built-in question rules.
const (
	ER        = "er"
	Surgery   = "surg"
	Ortho     = "ortho"
	Medicine  = "med"
	Neuro     = "neuro"
	Cardio    = "cardio"
	ENT       = "ent"
	Eye       = "eye"
	Obstetric = "ob"
	Labour    = "lr"
	Antenatal = "anc"
	Gyn       = "gyn"
	Pediatric = "ped"
	Urology   = "uro"
	Psych     = "psych"
	Dental    = "dent"
	Derm      = "derm"
	Family    = "fm"
	Rehab     = "rehab"
	Infect    = "id"
	Vaccine   = "vaccine"
	Occmed    = "occmed"
	OPD       = "opd"
)

// Entry is a single code/label pair.
type Entry struct {
	Code  string `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
}

// Vocabulary maps clinic codes to display labels. It is read-only after
// construction and safe for concurrent use.
type Vocabulary struct {
	labels map[string]string
	order  []string
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return New([]Entry{
		{ER, "ห้องฉุกเฉิน"},
		{Surgery, "ศัลยกรรม"},
		{Ortho, "ศัลยกรรมกระดูกและข้อ"},
		{Medicine, "อายุรกรรม"},
		{Neuro, "ประสาทวิทยา"},
		{Cardio, "โรคหัวใจ"},
		{ENT, "หู คอ จมูก"},
		{Eye, "จักษุ"},
		{Obstetric, "สูติกรรม"},
		{Labour, "ห้องคลอด"},
		{Antenatal, "ฝากครรภ์"},
		{Gyn, "นรีเวช"},
		{Pediatric, "กุมารเวชกรรม"},
		{Urology, "ศัลยกรรมทางเดินปัสสาวะ"},
		{Psych, "จิตเวช"},
		{Dental, "ทันตกรรม"},
		{Derm, "ผิวหนัง"},
		{Family, "เวชศาสตร์ครอบครัว"},
		{Rehab, "เวชศาสตร์ฟื้นฟู"},
		{Infect, "โรคติดเชื้อ"},
		{Vaccine, "คลินิกวัคซีน"},
		{Occmed, "อาชีวเวชกรรม"},
		{OPD, "ผู้ป่วยนอกทั่วไป"},
	})
}

// New builds a vocabulary from entries. Later entries override earlier ones
// with the same code; blank codes are ignored.
func New(entries []Entry) *Vocabulary {
	v := &Vocabulary{labels: make(map[string]string, len(entries))}
	for _, e := range entries {
		code := normalizeCode(e.Code)
		if code == "" {
			continue
		}
		if _, exists := v.labels[code]; !exists {
			v.order = append(v.order, code)
		}
		v.labels[code] = strings.TrimSpace(e.Label)
	}
	return v
}

// Label resolves code to its display label. Unknown codes are valid and
// render as the raw code.
func (v *Vocabulary) Label(code string) string {
	if label, ok := v.labels[normalizeCode(code)]; ok && label != "" {
		return label
	}
	return code
}

// Has reports whether code is part of the vocabulary.
func (v *Vocabulary) Has(code string) bool {
	_, ok := v.labels[normalizeCode(code)]
	return ok
}

// Resolve maps a submitted value, either a code or a display label, to its
// clinic code. Unknown values are returned unchanged, lower-cased, with
// ok=false.
func (v *Vocabulary) Resolve(value string) (code string, ok bool) {
	code = normalizeCode(value)
	if _, known := v.labels[code]; known {
		return code, true
	}
	trimmed := strings.TrimSpace(value)
	for _, c := range v.order {
		if v.labels[c] != "" && v.labels[c] == trimmed {
			return c, true
		}
	}
	return code, false
}

// Entries returns every entry in declaration order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, 0, len(v.order))
	for _, code := range v.order {
		out = append(out, Entry{Code: code, Label: v.labels[code]})
	}
	return out
}

// Labels maps each code to its label, preserving order.
func (v *Vocabulary) Labels(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = v.Label(c)
	}
	return out
}

// Merge returns a new vocabulary with extra entries layered over v.
func (v *Vocabulary) Merge(extra []Entry) *Vocabulary {
	return New(append(v.Entries(), extra...))
}

// fileFormat is the on-disk layout of a vocabulary override file:
//
//	clinics:
//	  - code: er
//	    label: Emergency
type fileFormat struct {
	Clinics []Entry `yaml:"clinics"`
}

// LoadFile layers the entries of a YAML file over base.
func LoadFile(base *Vocabulary, path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clinic vocabulary file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse clinic vocabulary file: %w", err)
	}
	return base.Merge(f.Clinics), nil
}

// SortedCodes returns the codes in lexical order.
func (v *Vocabulary) SortedCodes() []string {
	codes := append([]string(nil), v.order...)
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
