package question

import (
	"github.com/ppk/screening/internal/domain/clinic"
)

// -- 1 StrokeSuspect --

type strokeSuspect struct{ base }

func newStrokeSuspect() Evaluator {
	return strokeSuspect{base{Meta{
		Code:     1,
		Key:      "StrokeSuspect",
		Title:    "สงสัยโรคหลอดเลือดสมอง",
		Question: "มีอาการแขนขาอ่อนแรง ปากเบี้ยว หรือพูดไม่ชัดหรือไม่",
		Fields: []Field{
			{Name: "onset", Kind: FieldChoice, Options: []string{"within72", "over72"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q strokeSuspect) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String("onset") {
	case "within72":
		o.route(true, clinic.ER)
		o.tag("within72", "สงสัยหลอดเลือดสมองเฉียบพลัน")
		o.note("อาการเริ่มภายใน 72 ชั่วโมง")
	case "over72":
		o.route(false, clinic.Neuro)
		o.tag("อ่อนแรงครึ่งซีก")
		o.note("อาการเกิน 72 ชั่วโมง")
	default:
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 2 ChestPain --

type chestPain struct{ base }

func newChestPain() Evaluator {
	return chestPain{base{Meta{
		Code:     2,
		Key:      "ChestPain",
		Title:    "เจ็บหน้าอก",
		Question: "ลักษณะอาการเจ็บหน้าอก",
		Fields: []Field{
			{Name: "pattern", Kind: FieldChoice, Options: []string{"typical", "atypical", "musculoskeletal"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q chestPain) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String("pattern") {
	case "typical":
		o.route(true, clinic.ER)
		o.tag("เจ็บแน่นหน้าอกร้าวไปแขน")
		o.note("สงสัยกล้ามเนื้อหัวใจขาดเลือด")
	case "atypical":
		o.route(false, clinic.Cardio)
		o.tag("เจ็บหน้าอกไม่จำเพาะ")
	case "musculoskeletal":
		o.route(false, clinic.Medicine)
		o.tag("เจ็บหน้าอกจากกล้ามเนื้อ")
	default:
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 3 InjuryAssessment --

type injuryAssessment struct{ base }

func newInjuryAssessment() Evaluator {
	return injuryAssessment{base{Meta{
		Code:     3,
		Key:      "InjuryAssessment",
		Title:    "ประเมินเคสบาดเจ็บ",
		Question: "ระดับความรุนแรงของการบาดเจ็บ",
		Fields: []Field{
			{Name: "severity", Kind: FieldChoice, Options: []string{"mild", "moderate", "severe"}, Required: true},
			{Name: "mechanism", Kind: FieldText},
			noteField,
		},
	}}}
}

func (q injuryAssessment) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	severity := a.String("severity")
	switch severity {
	case "severe":
		o.route(true, clinic.ER)
	case "moderate":
		o.route(false, clinic.Surgery)
	case "mild":
		o.route(false, clinic.OPD)
	default:
		return nil, false
	}
	o.tag("injury", severity)
	if m := a.String("mechanism"); m != "" {
		o.note("กลไกการบาดเจ็บ: " + m)
	}
	return q.build(env, a, o)
}

// -- 6 CompartmentSyndrome --

type compartmentSyndrome struct{ base }

func newCompartmentSyndrome() Evaluator {
	return compartmentSyndrome{base{Meta{
		Code:     6,
		Key:      "CompartmentSyndrome",
		Title:    "ภาวะความดันในช่องกล้ามเนื้อสูง (Compartment syndrome)",
		Question: "ปวดบวมตึงแขนขาอย่างรุนแรงหลังบาดเจ็บหรือใส่เฝือก",
		Fields:   []Field{symptomsField, noteField},
	}}}
}

func (q compartmentSyndrome) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	o.route(true, clinic.Ortho)
	o.tag("ปวดบวมตึงกล้ามเนื้อ")
	o.note("ส่งต่อด่วน")
	return q.build(env, a, o)
}

// -- 19 FractureSuspect --

type fractureSuspect struct{ base }

func newFractureSuspect() Evaluator {
	return fractureSuspect{base{Meta{
		Code:     19,
		Key:      "FractureSuspect",
		Title:    "สงสัยกระดูกหัก",
		Question: "ลักษณะของบาดแผลบริเวณที่สงสัยกระดูกหัก",
		Fields: []Field{
			{Name: "wound", Kind: FieldChoice, Options: []string{"open", "closed"}, Required: true},
			{Name: "deformity", Kind: FieldBool},
			symptomsField, noteField,
		},
	}}}
}

func (q fractureSuspect) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String("wound") {
	case "open":
		o.route(true, clinic.ER)
		o.tag("กระดูกหักแบบเปิด")
	case "closed":
		o.route(false, clinic.Ortho)
		o.tag("สงสัยกระดูกหัก")
	default:
		return nil, false
	}
	if a.Bool("deformity") {
		o.tag("อวัยวะผิดรูป")
		o.note("มีการผิดรูป")
	}
	return q.build(env, a, o)
}

// -- 20 AbdominalPain --

type abdominalPain struct{ base }

func newAbdominalPain() Evaluator {
	return abdominalPain{base{Meta{
		Code:     20,
		Key:      "AbdominalPain",
		Title:    "ปวดท้อง",
		Question: "ตำแหน่งและลักษณะอาการปวดท้อง",
		Fields: []Field{
			{Name: "location", Kind: FieldChoice, Options: []string{"rlq", "epigastric", "lower", "diffuse_severe"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q abdominalPain) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String("location") {
	case "rlq":
		o.route(true, clinic.Surgery)
		o.tag("ปวดท้องน้อยด้านขวา")
		o.note("สงสัยไส้ติ่งอักเสบ")
	case "epigastric":
		o.route(false, clinic.Medicine)
		o.tag("ปวดลิ้นปี่")
	case "lower":
		o.route(false, clinic.Gyn)
		o.tag("ปวดท้องน้อย")
	case "diffuse_severe":
		o.route(true, clinic.ER)
		o.tag("ปวดท้องรุนแรงทั่วท้อง")
	default:
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 21 Headache --

type headache struct{ base }

func newHeadache() Evaluator {
	return headache{base{Meta{
		Code:     21,
		Key:      "Headache",
		Title:    "ปวดศีรษะ",
		Question: "ลักษณะอาการปวดศีรษะ",
		Fields: []Field{
			{Name: "pattern", Kind: FieldChoice, Options: []string{"sudden_severe", "chronic", "tension"}, Required: true},
			symptomsField, noteField,
		},
	}}}
}

func (q headache) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String("pattern") {
	case "sudden_severe":
		o.route(true, clinic.ER)
		o.tag("ปวดศีรษะรุนแรงเฉียบพลัน")
	case "chronic":
		o.route(false, clinic.Neuro)
		o.tag("ปวดศีรษะเรื้อรัง")
	case "tension":
		o.route(false, clinic.Family)
		o.tag("ปวดศีรษะจากความเครียด")
	default:
		return nil, false
	}
	return q.build(env, a, o)
}
