package sqlstore

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

	repository "github.com/okian/rsvp/internal/adapters/repository"
	model "github.com/okian/rsvp/internal/domain/model"
)

func openTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "rsvp.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rsvp.db")
	first, err := Open(context.Background(), path)
	require.NoError(t, err)
	_, err = first.InsertInvitee(context.Background(), "jane smith")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer second.Close()

	n, err := second.CountInvitees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsertGroupRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := openTempStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	rec, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "Jane Smith", Dinner: model.DinnerFish},
		{Name: "John Smith", Dinner: model.DinnerVegetarian},
	}, " jane@example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.GuestCount)

	rows, err := s.ListRSVPsByGroup(ctx, rec.GroupID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane Smith", rows[0].GuestName)
	assert.Equal(t, model.DinnerVegetarian, rows[1].DinnerChoice)
	assert.Equal(t, "jane@example.com", rows[0].Email)
	assert.Empty(t, rows[0].Comments)
	assert.True(t, rows[0].CreatedAt.Equal(now))
}

func TestInsertGroupRollsBackOnFailingRow(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()

	_, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "Jane Smith", Dinner: model.DinnerFish},
		{Name: "John Smith", Dinner: "tofu"},
	}, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrInvalidRecord))

	all, err := s.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, st)
}

func TestInsertGroupRejectsBlankName(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	_, err := s.InsertGroup(context.Background(), []model.GuestEntry{{Name: "  ", Dinner: model.DinnerMeat}}, "", "")
	assert.True(t, errors.Is(err, repository.ErrInvalidRecord))

	_, err = s.InsertGroup(context.Background(), nil, "", "")
	assert.True(t, errors.Is(err, repository.ErrEmptyGroup))
}

func TestListRSVPsNewestFirstAndStats(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := openTempStore(t, WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	older, err := s.InsertGroup(ctx, []model.GuestEntry{{Name: "A", Dinner: model.DinnerMeat}}, "", "first")
	require.NoError(t, err)
	newer, err := s.InsertGroup(ctx, []model.GuestEntry{
		{Name: "B", Dinner: model.DinnerFish},
		{Name: "C", Dinner: model.DinnerMeat},
	}, "", "")
	require.NoError(t, err)

	rows, err := s.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, newer.GroupID, rows[0].GroupID)
	assert.Equal(t, "C", rows[0].GuestName)
	assert.Equal(t, older.GroupID, rows[2].GroupID)
	assert.Equal(t, "first", rows[2].Comments)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalGuests: 3, TotalParties: 2, FishCount: 1, MeatCount: 2}, st)

	n, err := s.DeleteAllRSVPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInviteesUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()

	_, err := s.InsertInvitee(ctx, "zoe adams")
	require.NoError(t, err)
	inv, err := s.InsertInvitee(ctx, "jane smith")
	require.NoError(t, err)
	assert.NotZero(t, inv.ID)

	_, err = s.InsertInvitee(ctx, "jane smith")
	assert.True(t, errors.Is(err, repository.ErrDuplicateInvitee))

	_, err = s.InsertInvitee(ctx, "")
	assert.True(t, errors.Is(err, repository.ErrInvalidRecord))

	list, err := s.ListInvitees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "jane smith", list[0].NameNormalized)

	n, err := s.DeleteAllInvitees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestConcurrentDuplicateInviteeExactlyOneWins(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
		other    []error
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertInvitee(ctx, "jane smith")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrDuplicateInvitee):
				dups++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 11, dups)
}

func TestConcurrentGroupsDoNotInterleave(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.InsertGroup(ctx, []model.GuestEntry{
				{Name: fmt.Sprintf("g%d-1", i), Dinner: model.DinnerFish},
				{Name: fmt.Sprintf("g%d-2", i), Dinner: model.DinnerFish},
				{Name: fmt.Sprintf("g%d-3", i), Dinner: model.DinnerFish},
			}, "", "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rows, err := s.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 30)

	counts := map[string]int{}
	for _, r := range rows {
		counts[r.GroupID]++
	}
	assert.Len(t, counts, 10)
	for id, n := range counts {
		assert.Equal(t, 3, n, "group %s", id)
		group, err := s.ListRSVPsByGroup(ctx, id)
		require.NoError(t, err)
		for j := 1; j < len(group); j++ {
			assert.Equal(t, group[j-1].ID+1, group[j].ID, "rows of group %s are not contiguous", id)
		}
	}
}
