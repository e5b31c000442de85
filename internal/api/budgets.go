package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// List returns all budgets.
func (s BudgetsService) List(ctx context.Context) ([]Budget, error) {
	var result []Budget
	if err := s.do(ctx, http.MethodGet, "/api/budgets", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Create creates a budget.
func (s BudgetsService) Create(ctx context.Context, req CreateBudgetRequest) (*Budget, error) {
	if req.Name == "" {
		return nil, errors.New("budget name is required")
	}
	if req.LimitUSD <= 0 {
		return nil, errors.New("budget limit must be greater than zero")
	}
	var result Budget
	if err := s.do(ctx, http.MethodPost, "/api/budgets", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete deletes a budget by ID.
func (s BudgetsService) Delete(ctx context.Context, id string) error {
	return s.Client.Delete(ctx, "/api/budgets/"+url.PathEscape(id))
}
