package meals

import (
	"strings"

	"github.com/shopspring/decimal"

	"gomeals.io/market/models"
)

// Filter narrows a fetched catalog in memory. Zero-valued fields do not
// constrain; set fields are combined conjunctively.
type Filter struct {
	Query        string
	CuisineTypes []string
	Vegetarian   bool
	Vegan        bool
	GlutenFree   bool
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	MinRating    float64
}

// Apply returns the meals matching every set constraint, preserving order.
func (f Filter) Apply(catalog []*models.Meal) []*models.Meal {
	matched := make([]*models.Meal, 0, len(catalog))
	for _, meal := range catalog {
		if f.matches(meal) {
			matched = append(matched, meal)
		}
	}
	return matched
}

func (f Filter) matches(meal *models.Meal) bool {
	if f.Query != "" {
		query := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(meal.Name), query) &&
			!strings.Contains(strings.ToLower(meal.Description), query) {
			return false
		}
	}

	if len(f.CuisineTypes) > 0 && !hasAnyCuisine(meal, f.CuisineTypes) {
		return false
	}

	if f.Vegetarian && !meal.DietaryInfo.IsVegetarian {
		return false
	}
	if f.Vegan && !meal.DietaryInfo.IsVegan {
		return false
	}
	if f.GlutenFree && !meal.DietaryInfo.IsGlutenFree {
		return false
	}

	if f.MinPrice.IsPositive() && meal.Price.LessThan(f.MinPrice) {
		return false
	}
	if f.MaxPrice.IsPositive() && meal.Price.GreaterThan(f.MaxPrice) {
		return false
	}

	if f.MinRating > 0 && meal.Rating < f.MinRating {
		return false
	}

	return true
}

func hasAnyCuisine(meal *models.Meal, wanted []string) bool {
	for _, w := range wanted {
		for _, c := range meal.CuisineTypes {
			if strings.EqualFold(c, w) {
				return true
			}
		}
	}
	return false
}
