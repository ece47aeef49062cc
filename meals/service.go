// Package meals exposes the vendor meal catalog: fetching it from the
// backend and the client-side filtering consumers browse with.
package meals

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"gomeals.io/market/api"
	"gomeals.io/market/models"
)

// CreateMealParams is the form payload for publishing a new meal.
type CreateMealParams struct {
	Name             string
	Description      string
	Price            string
	CuisineTypes     []string
	MinOrderQuantity string
}

type Service interface {
	FetchMeals(ctx context.Context) ([]*models.Meal, error)
	AddMeal(ctx context.Context, params CreateMealParams) (*models.Meal, error)
	DeleteMeal(ctx context.Context, mealID string) error
}

var _ Service = (*service)(nil)

type service struct {
	client *api.Client
	logger *zap.Logger
}

func NewService(client *api.Client, logger *zap.Logger) Service {
	return &service{client: client, logger: logger}
}

func (s *service) FetchMeals(ctx context.Context) ([]*models.Meal, error) {
	var fetched []*models.Meal
	if err := s.client.Get(ctx, "/meal", &fetched); err != nil {
		return nil, fmt.Errorf("failed to fetch meals: %w", err)
	}
	return fetched, nil
}

func (s *service) AddMeal(ctx context.Context, params CreateMealParams) (*models.Meal, error) {
	form := url.Values{}
	form.Set("name", params.Name)
	form.Set("description", params.Description)
	form.Set("price", params.Price)
	form.Set("cuisine_types", strings.Join(params.CuisineTypes, ","))
	if params.MinOrderQuantity != "" {
		form.Set("min_order_quantity", params.MinOrderQuantity)
	}

	meal := models.NewMeal()
	if err := s.client.PostForm(ctx, "/meal", form, meal); err != nil {
		return nil, fmt.Errorf("failed to add meal: %w", err)
	}

	s.logger.Info("Meal published", zap.String("meal_id", meal.ID), zap.String("name", meal.Name))

	return meal, nil
}

func (s *service) DeleteMeal(ctx context.Context, mealID string) error {
	if err := s.client.Delete(ctx, "/meal/"+mealID); err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", mealID, err)
	}
	return nil
}
