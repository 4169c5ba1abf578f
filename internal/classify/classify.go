// Package classify implements the NIS2 regulatory classification rule
// and the persistence of the tier assigned at registration.
package classify

import (
	"strings"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
)

// regulatedSectors is the fixed set of sectors covered by the directive,
// matched case-insensitively.
var regulatedSectors = map[string]bool{
	"energy":                 true,
	"transport":              true,
	"banking":                true,
	"financial market":       true,
	"health":                 true,
	"drinking water":         true,
	"waste water":            true,
	"digital infrastructure": true,
	"ict service management": true,
	"public administration":  true,
	"space":                  true,
	"postal services":        true,
	"waste management":       true,
	"chemicals":              true,
	"food":                   true,
	"manufacturing":          true,
	"digital providers":      true,
	"research":               true,
}

// Classify maps (sector, employee-count bracket, revenue bracket) to a
// regulatory tier. Unregulated sectors are always Out of Scope. For
// regulated sectors: Essential when either size bracket is the top one,
// Important when both are the middle ones. A regulated entity matching
// neither condition stays Out of Scope; the rule table has no branch
// that promotes small regulated entities. Bracket tokens are compared
// exactly; any other encoding falls through to Out of Scope.
func Classify(sector, employeeCount, revenue string) model.Tier {
	if !Regulated(sector) {
		return model.TierOutOfScope
	}
	if employeeCount == model.BracketEmployeesLarge || revenue == model.BracketRevenueLarge {
		return model.TierEssential
	}
	if employeeCount == model.BracketEmployeesMedium && revenue == model.BracketRevenueMedium {
		return model.TierImportant
	}
	return model.TierOutOfScope
}

// Regulated reports whether the sector belongs to the enumerated set.
func Regulated(sector string) bool {
	return regulatedSectors[strings.ToLower(strings.TrimSpace(sector))]
}
