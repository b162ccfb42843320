package domain

import "strings"

// SubjectCategory selects which fixed description template is interpolated
// into the image prompt.
type SubjectCategory string

const (
	SubjectPortrait SubjectCategory = "portrait"
	SubjectHumans   SubjectCategory = "humans"
	SubjectNature   SubjectCategory = "nature"
	SubjectCustom   SubjectCategory = "custom"
)

// NormalizeSubject sanitizes free-form user input into a supported category.
func NormalizeSubject(subject string) SubjectCategory {
	switch strings.ToLower(strings.TrimSpace(subject)) {
	case string(SubjectHumans):
		return SubjectHumans
	case string(SubjectNature):
		return SubjectNature
	case string(SubjectCustom):
		return SubjectCustom
	default:
		return SubjectPortrait
	}
}

// Valid reports whether the category is one of the supported values.
func (s SubjectCategory) Valid() bool {
	switch s {
	case SubjectPortrait, SubjectHumans, SubjectNature, SubjectCustom:
		return true
	}
	return false
}
