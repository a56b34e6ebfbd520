package gormstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	repository "github.com/okian/rsvp/internal/adapters/repository"
	model "github.com/okian/rsvp/internal/domain/model"
)

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rsvp.db"), opts...)
	require.NoError(t, err, "failed to open test database")
	s.db.Logger = s.db.Logger.LogMode(gormlogger.Silent)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresLocation(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	require.Error(t, err)
	_, err = OpenMySQL(context.Background(), " ")
	require.Error(t, err)
}

func TestInsertGroupAndReadBack(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := setupTestStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	rec, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "Jane Smith", Dinner: model.DinnerFish},
		{Name: "John Smith", Dinner: model.DinnerMeat},
	}, "jane@example.com", "Looking forward to it")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.GuestCount)

	rows, err := s.ListRSVPsByGroup(ctx, rec.GroupID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane Smith", rows[0].GuestName)
	assert.Equal(t, "John Smith", rows[1].GuestName)
	assert.Equal(t, "Looking forward to it", rows[1].Comments)
	assert.True(t, rows[0].CreatedAt.Equal(now))
}

func TestInsertGroupIsAtomic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "Jane Smith", Dinner: model.DinnerFish},
		{Name: "John Smith", Dinner: "tofu"},
	}, "", "")
	require.Error(t, err)

	rows, err := s.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows, "no row of a failed group may be visible")
}

func TestStatsAndDelete(t *testing.T) {
	clock := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := setupTestStore(t, WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	_, err := s.InsertGroup(ctx, []model.GuestEntry{{Name: "A", Dinner: model.DinnerVegetarian}}, "", "")
	require.NoError(t, err)
	newest, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "B", Dinner: model.DinnerMeat},
		{Name: "C", Dinner: model.DinnerMeat},
	}, "", "")
	require.NoError(t, err)

	rows, err := s.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, newest.GroupID, rows[0].GroupID)
	assert.Equal(t, "C", rows[0].GuestName)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalGuests: 3, TotalParties: 2, VegetarianCount: 1, MeatCount: 2}, st)

	n, err := s.DeleteAllRSVPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInvitees(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zoe adams", "jane smith"} {
		_, err := s.InsertInvitee(ctx, name)
		require.NoError(t, err)
	}

	_, err := s.InsertInvitee(ctx, "jane smith")
	assert.True(t, errors.Is(err, repository.ErrDuplicateInvitee), "got %v", err)

	list, err := s.ListInvitees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "jane smith", list[0].NameNormalized)

	n, err := s.CountInvitees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err := s.DeleteAllInvitees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestConcurrentDuplicateInvitees(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dup     int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertInvitee(ctx, "jane smith")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if errors.Is(err, repository.ErrDuplicateInvitee) {
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 7, dup)
}

func TestConcurrentGroups(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.InsertGroup(ctx, []model.GuestEntry{
				{Name: fmt.Sprintf("g%d-a", i), Dinner: model.DinnerFish},
				{Name: fmt.Sprintf("g%d-b", i), Dinner: model.DinnerFish},
			}, "", "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, st.TotalGuests)
	assert.Equal(t, 8, st.TotalParties)
}
