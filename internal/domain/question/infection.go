package question

import (
	"fmt"
	"time"

	"github.com/ppk/screening/internal/domain/clinic"
)

// -- 7 HIVExposure --

type hivExposure struct{ base }

func newHIVExposure() Evaluator {
	return hivExposure{base{Meta{
		Code:     7,
		Key:      "HIVExposure",
		Title:    "สัมผัสเชื้อเอชไอวี",
		Question: "มีประวัติสัมผัสเลือดหรือสารคัดหลั่งที่เสี่ยงต่อเชื้อเอชไอวี",
		Fields:   []Field{symptomsField, noteField},
	}}}
}

func (q hivExposure) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	o.route(true, clinic.Infect)
	o.tag("within72", "สัมผัสเชื้อเอชไอวี")
	o.note("ประเมินยาต้านไวรัสหลังสัมผัสภายใน 72 ชั่วโมง")
	return q.build(env, a, o)
}

// -- 8 AnimalBite --

type animalBite struct{ base }

// Rabies vaccine clinic days.
var vaccineDays = []time.Weekday{time.Tuesday, time.Thursday}

func newAnimalBite() Evaluator {
	return animalBite{base{Meta{
		Code:     8,
		Key:      "AnimalBite",
		Title:    "ถูกสัตว์กัดหรือข่วน",
		Question: "ลักษณะบาดแผลจากสัตว์กัดหรือข่วน",
		Fields: []Field{
			{Name: "wound", Kind: FieldChoice, Options: []string{"bleeding", "minor"}},
			{Name: "animal", Kind: FieldText},
			symptomsField, noteField,
		},
	}}}
}

func (q animalBite) Evaluate(env Env, a Answers) (*Result, bool) {
	var o outcome
	o.tag("ถูกสัตว์กัด")
	if a.String("wound") == "bleeding" {
		o.route(true, clinic.ER)
		o.tag("แผลลึกมีเลือดออก")
	} else if isClinicDay(env.Now, vaccineDays...) {
		o.route(false, clinic.Vaccine)
		o.note("ฉีดวัคซีนป้องกันพิษสุนัขบ้า")
	} else {
		o.route(false, clinic.ER)
		o.note("นอกวันคลินิกวัคซีน")
	}
	if animal := a.String("animal"); animal != "" {
		o.note("สัตว์: " + animal)
	}
	return q.build(env, a, o)
}

// -- 11 Fever --

type fever struct{ base }

// HighFeverCelsius is the temperature routed to the emergency room.
const HighFeverCelsius = 39.0

func newFever() Evaluator {
	return fever{base{Meta{
		Code:     11,
		Key:      "Fever",
		Title:    "ไข้",
		Question: "อุณหภูมิร่างกายและอาการร่วม",
		Fields: []Field{
			{Name: "temperature", Kind: FieldNumber, Required: true},
			{Name: "rash", Kind: FieldBool},
			symptomsField, noteField,
		},
	}}}
}

func (q fever) Evaluate(env Env, a Answers) (*Result, bool) {
	temp, ok := a.Float("temperature")
	if !ok || temp <= 0 {
		return nil, false
	}

	var o outcome
	o.note(fmt.Sprintf("อุณหภูมิ %.1f °C", temp))
	switch {
	case temp >= HighFeverCelsius:
		o.route(false, clinic.ER)
		o.tag("ไข้สูง")
	case a.Bool("rash"):
		o.route(false, clinic.Medicine)
		o.tag("ไข้")
	default:
		o.route(false, clinic.OPD)
		o.tag("ไข้")
	}
	if a.Bool("rash") {
		o.tag("ผื่น")
		o.note("สงสัยไข้เลือดออก")
	}
	return q.build(env, a, o)
}
