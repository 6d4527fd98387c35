package question

import (
	"fmt"
	"strings"

	"github.com/ppk/screening/internal/domain/clinic"
)

// -- 9 Hypertension --

type hypertension struct{ base }

func newHypertension() Evaluator {
	return hypertension{base{Meta{
		Code:     9,
		Key:      "Hypertension",
		Title:    "ความดันโลหิตสูง",
		Question: "สถานะการควบคุมความดันโลหิต",
		Fields: []Field{
			{Name: "status", Kind: FieldChoice, Options: []string{"stable", "treated", "severe"}, Required: true},
			{Name: "bp", Kind: FieldText},
			noteField,
		},
	}}}
}

var hypertensionRoutes = map[string]choiceRoute{
	"stable":  {clinic.Family, false, "ความดันโลหิตคงที่"},
	"treated": {clinic.Medicine, false, "ความดันโลหิตสูงระหว่างรักษา"},
	"severe":  {clinic.ER, true, "ความดันโลหิตสูงรุนแรง"},
}

func (q hypertension) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if !o.choose(a.String("status"), hypertensionRoutes) {
		return nil, false
	}
	if bp := a.String("bp"); bp != "" {
		o.note("BP " + bp)
	}
	return q.build(env, a, o)
}

// -- 10 Diabetes --

type diabetes struct{ base }

// CriticalGlucose is the blood glucose (mg/dL) routed to the emergency room.
const CriticalGlucose = 400

func newDiabetes() Evaluator {
	return diabetes{base{Meta{
		Code:     10,
		Key:      "Diabetes",
		Title:    "เบาหวาน",
		Question: "ระดับน้ำตาลในเลือดล่าสุด (mg/dL)",
		Fields: []Field{
			{Name: "glucose", Kind: FieldNumber, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q diabetes) Evaluate(env Env, a Answers) (*Result, bool) {
	glucose, ok := a.Float("glucose")
	if !ok || glucose <= 0 {
		return nil, false
	}
	var o outcome
	if glucose >= CriticalGlucose {
		o.route(true, clinic.ER)
		o.tag("น้ำตาลในเลือดสูงมาก")
	} else {
		o.route(false, clinic.Medicine)
		o.tag("ติดตามเบาหวาน")
	}
	o.note(fmt.Sprintf("ระดับน้ำตาล %.0f mg/dL", glucose))
	return q.build(env, a, o)
}

// -- 18 BackPain --

type backPain struct{ base }

// SeverePainScale is the pain score routed to orthopedics instead of rehab.
const SeverePainScale = 7

var backPainRedFlags = map[string]string{
	"weakness":     "ขาอ่อนแรง",
	"incontinence": "กลั้นปัสสาวะอุจจาระไม่ได้",
	"trauma":       "ปวดหลังหลังอุบัติเหตุ",
}

func newBackPain() Evaluator {
	return backPain{base{Meta{
		Code:     18,
		Key:      "BackPain",
		Title:    "ปวดหลัง",
		Question: "ระดับความปวดและอาการเตือน",
		Fields: []Field{
			{Name: "red_flags", Kind: FieldMulti, Options: []string{"weakness", "incontinence", "trauma"}},
			{Name: "pain_scale", Kind: FieldNumber},
			noteField,
		},
	}}}
}

func (q backPain) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	o.tag("ปวดหลัง")

	var flags []string
	for _, f := range a.Strings("red_flags") {
		if label, ok := backPainRedFlags[f]; ok {
			flags = append(flags, label)
		}
	}
	if len(flags) > 0 {
		o.route(true, clinic.ER)
		o.tag(flags...)
		o.note("อาการเตือน: " + strings.Join(flags, ", "))
		return q.build(env, a, o)
	}

	scale, ok := a.Int("pain_scale")
	if !ok {
		return nil, false
	}
	o.tag(fmt.Sprintf("pain_scale_%d", scale))
	if scale >= SeverePainScale {
		o.route(false, clinic.Ortho)
	} else {
		o.route(false, clinic.Rehab)
	}
	o.note(fmt.Sprintf("ระดับความปวด %d/10", scale))
	return q.build(env, a, o)
}

// -- 23 DepressionScreen --

type depressionScreen struct{ base }

// PHQ-9 cut points.
const (
	SevereDepressionScore   = 19
	ModerateDepressionScore = 7
)

func newDepressionScreen() Evaluator {
	return depressionScreen{base{Meta{
		Code:     23,
		Key:      "DepressionScreen",
		Title:    "คัดกรองภาวะซึมเศร้า",
		Question: "คะแนนแบบประเมิน 9Q และความคิดทำร้ายตนเอง",
		Fields: []Field{
			{Name: "score", Kind: FieldNumber},
			{Name: "self_harm", Kind: FieldBool},
			noteField,
		},
	}}}
}

func (q depressionScreen) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	score, hasScore := a.Int("score")
	if hasScore {
		o.tag(fmt.Sprintf("score_%d", score))
		o.note(fmt.Sprintf("คะแนน 9Q = %d", score))
	}

	switch {
	case a.Bool("self_harm"):
		o.route(true, clinic.Psych)
		o.tag("มีความคิดทำร้ายตนเอง")
	case !hasScore:
		return nil, false
	case score >= SevereDepressionScore:
		o.route(true, clinic.Psych)
		o.tag("ซึมเศร้ารุนแรง")
	case score >= ModerateDepressionScore:
		o.route(false, clinic.Psych)
		o.tag("ซึมเศร้า")
	default:
		o.route(false, clinic.Family)
		o.tag("ความเครียด")
	}
	return q.build(env, a, o)
}
