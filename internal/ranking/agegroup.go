package ranking

import "time"

// AgeGroups lists the canonical groups in ascending order.
var AgeGroups = []string{"U10", "U12", "U14", "U16", "U18"}

// AgeLimits is the inclusive age span of a group.
type AgeLimits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var ageGroupLimits = map[string]AgeLimits{
	"U10": {Min: 8, Max: 10},
	"U12": {Min: 11, Max: 12},
	"U14": {Min: 13, Max: 14},
	"U16": {Min: 15, Max: 16},
	"U18": {Min: 17, Max: 18},
}

// AgeGroup buckets a date of birth by calendar age. Anything above 16 is
// U18. An unparseable date yields "".
func AgeGroup(dob string, now time.Time) string {
	age, ok := Age(dob, now)
	if !ok {
		return ""
	}
	switch {
	case age <= 10:
		return "U10"
	case age <= 12:
		return "U12"
	case age <= 14:
		return "U14"
	case age <= 16:
		return "U16"
	default:
		return "U18"
	}
}

// AgeGroupLimits returns the age span of group, or 0-99 for unknown groups.
func AgeGroupLimits(group string) AgeLimits {
	if l, ok := ageGroupLimits[group]; ok {
		return l
	}
	return AgeLimits{Min: 0, Max: 99}
}
