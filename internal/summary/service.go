// Package summary computes the per-month spending view: the entries of a
// calendar month and their totals grouped by category.
package summary

import (
	"context"
	"fmt"

	"budgetwatch/internal/core"
)

// Store is the persistence surface the service needs.
type Store interface {
	ListEntriesByMonth(ctx context.Context, userID int64, year, month int) ([]core.Entry, error)
	CategoryTotalsByMonth(ctx context.Context, userID int64, year, month int) ([]core.CategoryTotal, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Monthly returns the user's entries for the given calendar month (UTC)
// together with the summed totals per category. Months are 1-12.
func (s *Service) Monthly(ctx context.Context, user *core.User, year, month int) (*core.MonthlySummary, error) {
	if month < 1 || month > 12 {
		return nil, core.NewValidationError("month", "must be between 1 and 12")
	}

	entries, err := s.store.ListEntriesByMonth(ctx, user.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	totals, err := s.store.CategoryTotalsByMonth(ctx, user.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}

	return &core.MonthlySummary{
		Year:       year,
		Month:      month,
		Entries:    entries,
		ByCategory: totals,
	}, nil
}
