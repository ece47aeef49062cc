package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DietaryInfo carries the dietary flags a consumer can filter on.
type DietaryInfo struct {
	IsVegetarian bool     `json:"is_vegetarian"`
	IsVegan      bool     `json:"is_vegan"`
	IsGlutenFree bool     `json:"is_gluten_free"`
	IsDairyFree  bool     `json:"is_dairy_free"`
	IsNutFree    bool     `json:"is_nut_free"`
	IsSpicy      bool     `json:"is_spicy"`
	Allergens    []string `json:"allergens,omitempty"`
}

// Meal is a vendor-published dish. Price is per unit.
type Meal struct {
	ID               string          `json:"id"`
	VendorID         string          `json:"vendor_id"`
	VendorName       string          `json:"vendor_name,omitempty"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	CuisineTypes     []string        `json:"cuisine_types,omitempty"`
	DietaryInfo      DietaryInfo     `json:"dietary_info"`
	MinOrderQuantity uint64          `json:"min_order_quantity,omitempty"`
	MaxOrderQuantity uint64          `json:"max_order_quantity,omitempty"`
	Rating           float64         `json:"rating"`
	ReviewCount      uint64          `json:"review_count"`
	CreatedAt        time.Time       `json:"created_at"`
}

func NewMeal() *Meal {
	return new(Meal)
}
