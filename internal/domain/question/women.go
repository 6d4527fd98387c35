package question

import (
	"fmt"

	"github.com/ppk/screening/internal/domain/clinic"
)

// LabourWeekCutoff is the gestational week from which pregnancy complaints
// go to the labour room.
const LabourWeekCutoff = 25

// -- 4 Pregnancy --

type pregnancy struct{ base }

func newPregnancy() Evaluator {
	return pregnancy{base{Meta{
		Code:     4,
		Key:      "Pregnancy",
		Title:    "ตั้งครรภ์",
		Question: "อายุครรภ์และอาการที่มา",
		Fields: []Field{
			{Name: "gestWeek", Kind: FieldNumber, Required: true},
			{Name: "symptom", Kind: FieldChoice, Options: []string{"pain_pregnancy", "bleeding", "decreased_movement", "checkup"}, Required: true},
			noteField,
		},
	}}}
}

func (q pregnancy) Evaluate(env Env, a Answers) (*Result, bool) {
	week, ok := a.Int("gestWeek")
	if !ok || week <= 0 {
		return nil, false
	}
	late := week >= LabourWeekCutoff
	cmp := "<"
	if late {
		cmp = "≥"
	}

	var o outcome
	switch a.String("symptom") {
	case "pain_pregnancy":
		o.tag("ปวดครรภ์")
		o.note(fmt.Sprintf("ปวดครรภ์ %s %d สัปดาห์", cmp, LabourWeekCutoff))
		if late {
			o.route(true, clinic.Labour)
		} else {
			o.route(false, clinic.Obstetric)
		}
	case "bleeding":
		o.tag("เลือดออกทางช่องคลอด")
		o.note(fmt.Sprintf("เลือดออกทางช่องคลอด %s %d สัปดาห์", cmp, LabourWeekCutoff))
		if late {
			o.route(true, clinic.Labour)
		} else {
			o.route(true, clinic.Obstetric)
		}
	case "decreased_movement":
		o.tag("ลูกดิ้นน้อย")
		if late {
			o.route(true, clinic.Labour)
		} else {
			o.route(false, clinic.Obstetric)
		}
	case "checkup":
		o.route(false, clinic.Antenatal)
		o.tag("ฝากครรภ์")
		o.note(fmt.Sprintf("อายุครรภ์ %d สัปดาห์", week))
	default:
		return nil, false
	}
	return q.build(env, a, o)
}

// -- 5 UrinaryTract --

type urinaryTract struct{ base }

func newUrinaryTract() Evaluator {
	return urinaryTract{base{Meta{
		Code:     5,
		Key:      "UrinaryTract",
		Title:    "ปัสสาวะแสบขัด",
		Question: "อาการปัสสาวะแสบขัด ปัสสาวะบ่อย หรือปัสสาวะเป็นเลือด",
		Fields: []Field{
			genderField,
			clinicField,
			{Name: "fever", Kind: FieldBool},
			{Name: "flank_pain", Kind: FieldBool},
			symptomsField, noteField,
		},
	}}}
}

func (q urinaryTract) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	switch a.String(FieldNameGender) {
	case GenderMale:
		o.route(false, clinic.Urology)
	case GenderFemale:
		o.route(false, clinic.Family)
	case GenderOther:
		code := resolveClinic(env, a.String(FieldNameClinic))
		if code == "" {
			return nil, false
		}
		o.route(false, code)
	default:
		return nil, false
	}
	o.tag("ปัสสาวะแสบขัด")
	if a.Bool("fever") && a.Bool("flank_pain") {
		o.refer = true
		o.tag("ไข้ร่วมกับปวดบั้นเอว")
		o.note("สงสัยกรวยไตอักเสบ")
	}
	return q.build(env, a, o)
}

// -- 13 CancerScreening --

type cancerScreening struct{ base }

// Risk checkbox values.
const (
	riskBreastLump       = "breast_lump"
	riskAbnormalBleeding = "abnormal_bleeding"
	riskUrinaryChange    = "urinary_change"
	riskBowelChange      = "bowel_change"
	riskWeightLoss       = "weight_loss"
)

func newCancerScreening() Evaluator {
	return cancerScreening{base{Meta{
		Code:     13,
		Key:      "CancerScreening",
		Title:    "คัดกรองความเสี่ยงมะเร็ง",
		Question: "เพศและอาการเสี่ยงที่พบ",
		Fields: []Field{
			genderField,
			{Name: "risks", Kind: FieldMulti, Required: true, Options: []string{
				riskBreastLump, riskAbnormalBleeding, riskUrinaryChange, riskBowelChange, riskWeightLoss,
			}},
			noteField,
		},
	}}}
}

func (q cancerScreening) Evaluate(env Env, a Answers) (*Result, bool) {
	gender := a.String(FieldNameGender)
	risks := a.Strings("risks")
	if gender == "" || len(risks) == 0 {
		return nil, false
	}

	var o outcome
	for _, risk := range risks {
		switch risk {
		case riskBreastLump:
			o.route(true, clinic.Surgery)
			o.tag("คลำพบก้อนที่เต้านม")
		case riskAbnormalBleeding:
			if gender == GenderFemale {
				o.route(true, clinic.Gyn)
				o.tag("เลือดออกผิดปกติทางช่องคลอด")
			}
		case riskUrinaryChange:
			if gender == GenderMale {
				o.route(false, clinic.Urology)
				o.tag("ปัสสาวะผิดปกติ")
			}
		case riskBowelChange:
			o.route(false, clinic.Surgery)
			o.tag("การขับถ่ายเปลี่ยนแปลง")
		case riskWeightLoss:
			o.route(false, clinic.Medicine)
			o.tag("น้ำหนักลดไม่ทราบสาเหตุ")
		}
	}
	if len(o.clinics) == 0 {
		o.route(false, clinic.Family)
		o.note("ไม่พบความเสี่ยงที่สอดคล้องกับเพศ")
	}
	return q.build(env, a, o)
}

// resolveClinic maps a freeform clinic answer to a code through the
// vocabulary. Unknown codes pass through unchanged.
func resolveClinic(env Env, value string) string {
	if value == "" {
		return ""
	}
	if env.Clinics == nil {
		return value
	}
	code, _ := env.Clinics.Resolve(value)
	return code
}
