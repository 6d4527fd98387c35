package question

import (
	"fmt"
	"time"

	"github.com/ppk/screening/internal/domain/clinic"
)

// -- 12 ChildPatient --

type childPatient struct{ base }

// PediatricAgeLimit is the first age, in years, seen by adult clinics.
const PediatricAgeLimit = 15

func newChildPatient() Evaluator {
	return childPatient{base{Meta{
		Code:     12,
		Key:      "ChildPatient",
		Title:    "ผู้ป่วยเด็ก",
		Question: "อายุของผู้ป่วย (ปี)",
		Fields: []Field{
			{Name: "age", Kind: FieldNumber, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q childPatient) Evaluate(env Env, a Answers) (*Result, bool) {
	age, ok := a.Int("age")
	if !ok || age < 0 {
		return nil, false
	}
	var o outcome
	if age < PediatricAgeLimit {
		o.route(false, clinic.Pediatric)
	} else {
		o.route(false, clinic.Family)
	}
	o.note(fmt.Sprintf("อายุ %d ปี", age))
	return q.build(env, a, o)
}

// -- 14 EyeProblem --

type eyeProblem struct{ base }

var eyeRoutes = map[string]choiceRoute{
	"chemical":    {clinic.ER, true, "สารเคมีเข้าตา"},
	"injury":      {clinic.Eye, true, "อุบัติเหตุทางตา"},
	"vision_loss": {clinic.Eye, true, "ตามัวเฉียบพลัน"},
	"red_eye":     {clinic.Eye, false, "ตาแดง"},
}

func newEyeProblem() Evaluator {
	return eyeProblem{base{Meta{
		Code:     14,
		Key:      "EyeProblem",
		Title:    "ปัญหาทางตา",
		Question: "ลักษณะปัญหาทางตา",
		Fields: []Field{
			{Name: "problem", Kind: FieldChoice, Options: []string{"chemical", "injury", "vision_loss", "red_eye"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q eyeProblem) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if !o.choose(a.String("problem"), eyeRoutes) {
		return nil, false
	}
	if a.String("problem") == "chemical" {
		o.note("ล้างตาทันทีก่อนส่งต่อ")
	}
	return q.build(env, a, o)
}

// -- 15 EarNoseThroat --

type earNoseThroat struct{ base }

var entRoutes = map[string]choiceRoute{
	"foreign_body": {clinic.ENT, true, "สิ่งแปลกปลอมในหู คอ จมูก"},
	"hearing_loss": {clinic.ENT, false, "การได้ยินลดลง"},
	"sore_throat":  {clinic.Family, false, "เจ็บคอ"},
	"epistaxis":    {clinic.ER, false, "เลือดกำเดาไหล"},
}

func newEarNoseThroat() Evaluator {
	return earNoseThroat{base{Meta{
		Code:     15,
		Key:      "EarNoseThroat",
		Title:    "ปัญหาหู คอ จมูก",
		Question: "ลักษณะปัญหาหู คอ จมูก",
		Fields: []Field{
			{Name: "problem", Kind: FieldChoice, Options: []string{"foreign_body", "hearing_loss", "sore_throat", "epistaxis"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q earNoseThroat) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if !o.choose(a.String("problem"), entRoutes) {
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 16 DentalPain --

type dentalPain struct{ base }

var dentalRoutes = map[string]choiceRoute{
	"toothache":    {clinic.Dental, false, "ปวดฟัน"},
	"broken_tooth": {clinic.Dental, false, "ฟันหัก"},
	"gum_bleeding": {clinic.Dental, false, "เลือดออกตามไรฟัน"},
}

func newDentalPain() Evaluator {
	return dentalPain{base{Meta{
		Code:     16,
		Key:      "DentalPain",
		Title:    "ปัญหาช่องปากและฟัน",
		Question: "ลักษณะปัญหาช่องปากและฟัน",
		Fields: []Field{
			{Name: "problem", Kind: FieldChoice, Options: []string{"toothache", "broken_tooth", "gum_bleeding"}},
			{Name: "facial_swelling", Kind: FieldBool},
			symptomsField, noteField,
		},
	}}}
}

func (q dentalPain) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if a.Bool("facial_swelling") {
		o.route(true, clinic.ER)
		o.tag("บวมลามใบหน้า")
		o.note("เสี่ยงทางเดินหายใจอุดกั้น")
		if r, ok := dentalRoutes[a.String("problem")]; ok {
			o.tag(r.tag)
		}
		return q.build(env, a, o)
	}
	if !o.choose(a.String("problem"), dentalRoutes) {
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 17 SkinRash --

type skinRash struct{ base }

var skinRoutes = map[string]choiceRoute{
	"angioedema": {clinic.ER, true, "ผื่นลมพิษร่วมกับปากบวม"},
	"infected":   {clinic.Derm, false, "ผื่นติดเชื้อ"},
	"chronic":    {clinic.Derm, false, "ผื่นเรื้อรัง"},
	"acute":      {clinic.Family, false, "ผื่นคัน"},
}

func newSkinRash() Evaluator {
	return skinRash{base{Meta{
		Code:     17,
		Key:      "SkinRash",
		Title:    "ผื่นผิวหนัง",
		Question: "ลักษณะผื่นผิวหนัง",
		Fields: []Field{
			{Name: "type", Kind: FieldChoice, Options: []string{"angioedema", "infected", "chronic", "acute"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q skinRash) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if !o.choose(a.String("type"), skinRoutes) {
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 22 Dizziness --

type dizziness struct{ base }

var dizzinessRoutes = map[string]choiceRoute{
	"vertigo": {clinic.ENT, false, "บ้านหมุน"},
	"syncope": {clinic.Cardio, true, "หน้ามืดหมดสติ"},
	"general": {clinic.Medicine, false, "เวียนศีรษะ"},
}

func newDizziness() Evaluator {
	return dizziness{base{Meta{
		Code:     22,
		Key:      "Dizziness",
		Title:    "เวียนศีรษะ",
		Question: "ลักษณะอาการเวียนศีรษะ",
		Fields: []Field{
			{Name: "pattern", Kind: FieldChoice, Options: []string{"vertigo", "syncope", "general"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q dizziness) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	if !o.choose(a.String("pattern"), dizzinessRoutes) {
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 24 HealthCertificate --

type healthCertificate struct{ base }

// Occupational medicine clinic days for walk-in certificates.
var certificateDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

func newHealthCertificate() Evaluator {
	return healthCertificate{base{Meta{
		Code:     24,
		Key:      "HealthCertificate",
		Title:    "ตรวจสุขภาพและใบรับรองแพทย์",
		Question: "วัตถุประสงค์ของการตรวจสุขภาพ",
		Fields: []Field{
			{Name: "purpose", Kind: FieldChoice, Options: []string{"work", "checkup", "driving", "other"}},
			noteField,
		},
	}}}
}

func (q healthCertificate) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	purpose := a.String("purpose")
	o.tag("health_certificate")
	switch purpose {
	case "work":
		o.route(false, clinic.Occmed)
	case "checkup":
		o.route(false, clinic.Family)
	default:
		if isClinicDay(env.Now, certificateDays...) {
			o.route(false, clinic.Occmed)
		} else {
			o.route(false, clinic.OPD)
		}
	}
	if purpose != "" {
		o.tag(purpose)
	}
	return q.build(env, a, o)
}

// -- 25 OtherConcern --

type otherConcern struct{ base }

func newOtherConcern() Evaluator {
	return otherConcern{base{Meta{
		Code:     25,
		Key:      "OtherConcern",
		Title:    "อาการอื่นๆ",
		Question: "อาการหรือปัญหาอื่นที่ไม่อยู่ในรายการ",
		Fields: []Field{
			{Name: FieldNameClinic, Kind: FieldClinic, Required: true},
			{Name: FieldNameRefer, Kind: FieldBool},
			symptomsField, noteField,
		},
	}}}
}

func (q otherConcern) Evaluate(env Env, a Answers) (*Result, bool) {
	code := resolveClinic(env, a.String(FieldNameClinic))
	if code == "" {
		return nil, false
	}
	var o outcome
	o.route(a.Bool(FieldNameRefer), code)
	return q.build(env, a, o)
}
