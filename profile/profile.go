// Package profile derives a student's weighted skill profile from graded
// subjects. The profile is ephemeral: rebuilt on every request from the
// durable grade records, never persisted itself.
package profile

import (
	"fmt"
	"sort"

	"github.com/SiddhiSinghal/elective-recommender/catalog"
)

// gradeScale maps letter grades to quality values on a fixed 0-10 scale.
var gradeScale = map[string]float64{
	"A+": 10,
	"A":  9,
	"B+": 8,
	"B":  7,
	"C+": 6,
	"C":  5,
	"D+": 4,
	"D":  3,
	"F":  0,
}

const maxGradeValue = 10.0

// GradeValue returns the numeric quality value for a letter grade.
func GradeValue(grade string) (float64, error) {
	v, ok := gradeScale[grade]
	if !ok {
		return 0, fmt.Errorf("unrecognized grade %q", grade)
	}
	return v, nil
}

// KnownGrade reports whether the letter grade is in the recognized enumeration.
func KnownGrade(grade string) bool {
	_, ok := gradeScale[grade]
	return ok
}

// RejectedRecord describes a grade record dropped during profile building.
// Rejected records are reported, not silently coerced, so a bad grade cannot
// pollute the skill profile.
type RejectedRecord struct {
	SubjectCode string `json:"subject_code"`
	Grade       string `json:"grade"`
	Reason      string `json:"reason"`
}

// SkillProfile maps skill label to normalized strength in [0,1]. Skills with
// no graded evidence are absent, not zero.
type SkillProfile map[string]float64

// Strength returns the profile's strength for a label and whether any
// evidence exists for it.
func (p SkillProfile) Strength(label string) (float64, bool) {
	v, ok := p[label]
	return v, ok
}

// Top returns the n strongest skills, ordered by strength descending, then
// label ascending for a stable listing.
func (p SkillProfile) Top(n int) []RankedSkill {
	out := make([]RankedSkill, 0, len(p))
	for label, strength := range p {
		out = append(out, RankedSkill{Label: label, Strength: strength})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RankedSkill is one entry of a profile listing.
type RankedSkill struct {
	Label    string  `json:"skill"`
	Strength float64 `json:"strength"`
}

// Build converts {subject code -> letter grade} into a skill profile using
// the catalog's per-subject skill weights.
//
// For every graded subject, each of its required skills accumulates
// gradeValue*weight; the accumulated value is then normalized by the maximum
// attainable (sum of contributing weights times the top grade), so a
// straight-A+ student saturates a skill at 1.0.
//
// Records with an unknown grade or a subject code absent from the catalog are
// rejected and reported. Output does not depend on map iteration order.
func Build(grades map[string]string, cat *catalog.Catalog) (SkillProfile, []RejectedRecord) {
	codes := make([]string, 0, len(grades))
	for code := range grades {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	accumulated := make(map[string]float64)
	weightSum := make(map[string]float64)
	var rejected []RejectedRecord

	for _, code := range codes {
		grade := grades[code]

		value, err := GradeValue(grade)
		if err != nil {
			rejected = append(rejected, RejectedRecord{SubjectCode: code, Grade: grade, Reason: err.Error()})
			continue
		}

		subject, ok := cat.ByCode(code)
		if !ok {
			rejected = append(rejected, RejectedRecord{SubjectCode: code, Grade: grade, Reason: "subject code not in catalog"})
			continue
		}

		for label, weight := range subject.RequiredSkills {
			accumulated[label] += value * weight
			weightSum[label] += weight
		}
	}

	p := make(SkillProfile, len(accumulated))
	for label, total := range accumulated {
		if weightSum[label] == 0 {
			continue
		}
		p[label] = total / (weightSum[label] * maxGradeValue)
	}
	return p, rejected
}
