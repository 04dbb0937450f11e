// Package entry implements the purchase-entry use cases: creating,
// editing and deleting entries on behalf of their owner.
package entry

import (
	"context"
	"fmt"
	"time"

	"budgetwatch/internal/core"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateEntry(ctx context.Context, e core.Entry) (*core.Entry, error)
	GetEntry(ctx context.Context, id int64) (*core.Entry, error)
	UpdateEntry(ctx context.Context, e core.Entry) error
	DeleteEntry(ctx context.Context, id int64) error
}

// Input carries the raw form values for a new or edited entry. Price is
// the unparsed decimal string as typed by the user. Date is optional
// (YYYY-MM-DD); when empty, Create stamps the current time and Update
// preserves the entry's existing date.
type Input struct {
	Item     string
	Category string
	Price    string
	Location string
	Date     string
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create records a new entry owned by user. Item, category and location
// are normalized to leading-uppercase.
func (s *Service) Create(ctx context.Context, user *core.User, in Input) (*core.Entry, error) {
	e, err := s.buildEntry(in)
	if err != nil {
		return nil, err
	}
	e.UserID = user.ID
	e.DatePosted = s.now().UTC()
	if in.Date != "" {
		posted, err := parseEntryDate(in.Date)
		if err != nil {
			return nil, err
		}
		e.DatePosted = posted
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateEntry(ctx, *e)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return created, nil
}

// Get returns the entry only if user owns it.
func (s *Service) Get(ctx context.Context, user *core.User, id int64) (*core.Entry, error) {
	return s.owned(ctx, user, id)
}

// Update replaces the editable fields of an owned entry, including the
// posted date when the form supplies one.
func (s *Service) Update(ctx context.Context, user *core.User, id int64, in Input) (*core.Entry, error) {
	existing, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	e, err := s.buildEntry(in)
	if err != nil {
		return nil, err
	}
	e.ID = existing.ID
	e.UserID = existing.UserID
	e.DatePosted = existing.DatePosted
	if in.Date != "" {
		posted, err := parseEntryDate(in.Date)
		if err != nil {
			return nil, err
		}
		e.DatePosted = posted
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateEntry(ctx, *e); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return e, nil
}

// Delete removes an owned entry.
func (s *Service) Delete(ctx context.Context, user *core.User, id int64) error {
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// buildEntry normalizes the input-derived fields; the caller fills in
// owner and date before validating the assembled entry.
func (s *Service) buildEntry(in Input) (*core.Entry, error) {
	cents, err := core.ParseDecimalToCents(in.Price)
	if err != nil {
		return nil, err
	}
	return &core.Entry{
		Item:     core.Capitalize(in.Item),
		Category: core.Capitalize(in.Category),
		Price:    core.Money{Cents: cents},
		Location: core.Capitalize(in.Location),
	}, nil
}

func parseEntryDate(value string) (time.Time, error) {
	posted, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, core.NewValidationError("date", "must be a date in YYYY-MM-DD format")
	}
	return posted.UTC(), nil
}

func (s *Service) owned(ctx context.Context, user *core.User, id int64) (*core.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != user.ID {
		return nil, core.ErrForbidden
	}
	return e, nil
}
