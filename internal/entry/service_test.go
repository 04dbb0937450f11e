package entry

import (
	"context"
	"testing"
	"time"

	"budgetwatch/internal/core"
	"budgetwatch/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type EntryServiceTestSuite struct {
	suite.Suite
	repo    *storage.SQLiteRepository
	service *Service
	alice   *core.User
	bob     *core.User
	ctx     context.Context
}

func (s *EntryServiceTestSuite) SetupTest() {
	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(s.T(), err)
	s.repo = repo
	s.service = NewService(repo)
	s.ctx = context.Background()

	s.alice, err = repo.CreateUser(s.ctx, "alice", "alice@example.com", "hash")
	require.NoError(s.T(), err)
	s.bob, err = repo.CreateUser(s.ctx, "bob", "bob@example.com", "hash")
	require.NoError(s.T(), err)
}

func (s *EntryServiceTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *EntryServiceTestSuite) TestCreate() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item:     "coffee beans",
		Category: "FOOD",
		Price:    "12.50",
		Location: "corner store",
	})
	require.NoError(s.T(), err)

	assert.NotZero(s.T(), e.ID)
	assert.Equal(s.T(), "Coffee beans", e.Item)
	assert.Equal(s.T(), "Food", e.Category)
	assert.Equal(s.T(), "Corner store", e.Location)
	assert.Equal(s.T(), int64(1250), e.Price.Cents)
	assert.Equal(s.T(), s.alice.ID, e.UserID)
	assert.WithinDuration(s.T(), time.Now().UTC(), e.DatePosted, 5*time.Second)
}

func (s *EntryServiceTestSuite) TestCreateRejectsBadInput() {
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{"bad price", Input{Item: "a", Category: "b", Price: "abc", Location: "c"}, core.ErrInvalidAmount},
		{"negative price", Input{Item: "a", Category: "b", Price: "-1", Location: "c"}, core.ErrInvalidAmount},
		{"empty item", Input{Item: "  ", Category: "b", Price: "1", Location: "c"}, core.ErrEmptyItem},
		{"empty category", Input{Item: "a", Category: "", Price: "1", Location: "c"}, core.ErrEmptyCategory},
		{"empty location", Input{Item: "a", Category: "b", Price: "1", Location: " "}, core.ErrEmptyLocation},
	}
	for _, tc := range cases {
		_, err := s.service.Create(s.ctx, s.alice, tc.in)
		assert.ErrorIs(s.T(), err, tc.want, tc.name)
	}
}

func (s *EntryServiceTestSuite) TestCreateWithExplicitDate() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
		Date: "2024-03-05",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), e.DatePosted)

	var verr *core.ValidationError
	_, err = s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
		Date: "05/03/2024",
	})
	require.ErrorAs(s.T(), err, &verr)
	assert.Equal(s.T(), "date", verr.Field)
}

func (s *EntryServiceTestSuite) TestCreateAllowsZeroPrice() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "freebie", Category: "Misc", Price: "0", Location: "Work",
	})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), e.Price.Cents)
}

func (s *EntryServiceTestSuite) TestUpdate() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
	})
	require.NoError(s.T(), err)

	updated, err := s.service.Update(s.ctx, s.alice, e.ID, Input{
		Item: "sourdough", Category: "food", Price: "4.25", Location: "bakery",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Sourdough", updated.Item)
	assert.Equal(s.T(), int64(425), updated.Price.Cents)
	assert.Equal(s.T(), e.DatePosted, updated.DatePosted, "editing without a date must not move the entry")

	got, err := s.service.Get(s.ctx, s.alice, e.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Sourdough", got.Item)
}

func (s *EntryServiceTestSuite) TestUpdateChangesDate() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
		Date: "2024-03-05",
	})
	require.NoError(s.T(), err)

	updated, err := s.service.Update(s.ctx, s.alice, e.ID, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
		Date: "2024-04-10",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), updated.DatePosted)

	got, err := s.service.Get(s.ctx, s.alice, e.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), time.April, got.DatePosted.Month())

	var verr *core.ValidationError
	_, err = s.service.Update(s.ctx, s.alice, e.ID, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
		Date: "10/04/2024",
	})
	require.ErrorAs(s.T(), err, &verr)
	assert.Equal(s.T(), "date", verr.Field)
}

func (s *EntryServiceTestSuite) TestOwnershipGate() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
	})
	require.NoError(s.T(), err)

	_, err = s.service.Get(s.ctx, s.bob, e.ID)
	assert.ErrorIs(s.T(), err, core.ErrForbidden)

	_, err = s.service.Update(s.ctx, s.bob, e.ID, Input{
		Item: "x", Category: "y", Price: "1", Location: "z",
	})
	assert.ErrorIs(s.T(), err, core.ErrForbidden)

	err = s.service.Delete(s.ctx, s.bob, e.ID)
	assert.ErrorIs(s.T(), err, core.ErrForbidden)

	// The owner can still see it untouched
	got, err := s.service.Get(s.ctx, s.alice, e.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Bread", got.Item)
}

func (s *EntryServiceTestSuite) TestDelete() {
	e, err := s.service.Create(s.ctx, s.alice, Input{
		Item: "bread", Category: "Food", Price: "3.00", Location: "Bakery",
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.Delete(s.ctx, s.alice, e.ID))
	_, err = s.service.Get(s.ctx, s.alice, e.ID)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *EntryServiceTestSuite) TestMissingEntry() {
	_, err := s.service.Get(s.ctx, s.alice, 9999)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	_, err = s.service.Update(s.ctx, s.alice, 9999, Input{
		Item: "x", Category: "y", Price: "1", Location: "z",
	})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	err = s.service.Delete(s.ctx, s.alice, 9999)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func TestEntryServiceSuite(t *testing.T) {
	suite.Run(t, new(EntryServiceTestSuite))
}
