// Package policy holds the grade-based spending rules: per-category
// amount ceilings, permitted travel modes, and self-declaration limits.
// Unknown grade or category combinations are treated as over limit.
package policy

import (
	"fmt"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

// categoryLimits is amount ceiling per grade per category, in rupees
var categoryLimits = map[models.Grade]map[models.Category]float64{
	models.GradeA: {
		models.CategoryTravel:        1500,
		models.CategoryFood:          500,
		models.CategoryAccommodation: 2000,
		models.CategoryMedical:       1000,
		models.CategoryCommunication: 300,
		models.CategoryOther:         500,
	},
	models.GradeB: {
		models.CategoryTravel:        2000,
		models.CategoryFood:          700,
		models.CategoryAccommodation: 3000,
		models.CategoryMedical:       1500,
		models.CategoryCommunication: 500,
		models.CategoryOther:         700,
	},
	models.GradeC: {
		models.CategoryTravel:        3000,
		models.CategoryFood:          1000,
		models.CategoryAccommodation: 5000,
		models.CategoryMedical:       2000,
		models.CategoryCommunication: 700,
		models.CategoryOther:         1000,
	},
	models.GradeD: {
		models.CategoryTravel:        5000,
		models.CategoryFood:          1500,
		models.CategoryAccommodation: 7000,
		models.CategoryMedical:       3000,
		models.CategoryCommunication: 1000,
		models.CategoryOther:         1500,
	},
}

// travelModes lists the modes each grade may claim. Higher grades
// inherit everything below them.
var travelModes = map[models.Grade][]models.TravelMode{
	models.GradeA: {models.TravelBus, models.TravelTrain},
	models.GradeB: {models.TravelBus, models.TravelTrain, models.TravelCab},
	models.GradeC: {models.TravelBus, models.TravelTrain, models.TravelCab, models.TravelFlightEconomy},
	models.GradeD: {models.TravelBus, models.TravelTrain, models.TravelCab, models.TravelFlightEconomy, models.TravelFlightBusiness},
}

// selfDeclarationLimits is the max amount claimable without a bill,
// per claim. Junior grades get more slack since small cash expenses
// rarely come with receipts.
var selfDeclarationLimits = map[models.Grade]float64{
	models.GradeA: 300,
	models.GradeB: 250,
	models.GradeC: 200,
	models.GradeD: 150,
}

// declarationBudget caps self-declarations per calendar month: a
// running amount total and a claim count
type declarationBudget struct {
	MonthlyTotal float64
	MaxCount     int
}

var declarationBudgets = map[models.Grade]declarationBudget{
	models.GradeA: {MonthlyTotal: 500, MaxCount: 3},
	models.GradeB: {MonthlyTotal: 400, MaxCount: 3},
	models.GradeC: {MonthlyTotal: 300, MaxCount: 3},
	models.GradeD: {MonthlyTotal: 200, MaxCount: 3},
}

// CategoryLimit returns the ceiling for the grade and category.
// ok is false for unknown combinations.
func CategoryLimit(grade models.Grade, category models.Category) (float64, bool) {
	limits, ok := categoryLimits[grade]
	if !ok {
		return 0, false
	}
	limit, ok := limits[category]
	return limit, ok
}

// TravelModeAllowed reports whether the grade may claim the travel mode
func TravelModeAllowed(grade models.Grade, mode models.TravelMode) bool {
	for _, m := range travelModes[grade] {
		if m == mode {
			return true
		}
	}
	return false
}

// AllowedTravelModes returns the modes claimable by the grade
func AllowedTravelModes(grade models.Grade) []models.TravelMode {
	return travelModes[grade]
}

// SelfDeclarationLimit returns the per-claim no-bill ceiling for the grade
func SelfDeclarationLimit(grade models.Grade) (float64, bool) {
	limit, ok := selfDeclarationLimits[grade]
	return limit, ok
}

// MonthlyDeclarationBudget returns the monthly self-declaration caps
// for the grade: total amount and claim count
func MonthlyDeclarationBudget(grade models.Grade) (total float64, maxCount int, ok bool) {
	b, ok := declarationBudgets[grade]
	return b.MonthlyTotal, b.MaxCount, ok
}

// Check validates a claim against the grade rules. It returns the full
// list of violations rather than stopping at the first, so the employee
// sees everything wrong at once. An empty slice means within limits.
func Check(grade models.Grade, category models.Category, amount float64, travelMode models.TravelMode, selfDeclared bool) []string {
	var violations []string

	limit, ok := CategoryLimit(grade, category)
	if !ok {
		violations = append(violations,
			fmt.Sprintf("no spending limit defined for grade %s category %s", grade, category))
	} else if amount > limit {
		violations = append(violations,
			fmt.Sprintf("amount %.2f exceeds grade %s limit of %.2f for %s", amount, grade, limit, category))
	}

	if category == models.CategoryTravel && travelMode != "" {
		if !travelMode.IsValid() {
			violations = append(violations, fmt.Sprintf("unknown travel mode %q", travelMode))
		} else if !TravelModeAllowed(grade, travelMode) {
			violations = append(violations,
				fmt.Sprintf("travel mode %s is not permitted for grade %s", travelMode, grade))
		}
	}

	if selfDeclared {
		if category == models.CategoryAccommodation {
			violations = append(violations, "accommodation claims require a bill")
		}
		sdLimit, ok := SelfDeclarationLimit(grade)
		if !ok {
			violations = append(violations,
				fmt.Sprintf("no self-declaration limit defined for grade %s", grade))
		} else if amount > sdLimit {
			violations = append(violations,
				fmt.Sprintf("self-declared amount %.2f exceeds grade %s limit of %.2f", amount, grade, sdLimit))
		}
	}

	return violations
}
