package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	model "github.com/okian/rsvp/internal/domain/model"
)

// MemoryStore keeps RSVPs and invitees in process memory. A single mutex
// serializes writers so a group is appended whole or not at all.
type MemoryStore struct {
	mu         sync.RWMutex
	rsvps      []model.RSVPRecord
	invitees   map[string]model.Invitee
	nextRSVP   int64
	nextInv    int64
	closed     bool
	now        func() time.Time
	newGroupID func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		invitees:   make(map[string]model.Invitee),
		now:        time.Now,
		newGroupID: NewGroupID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertGroup validates every guest before appending any of them.
func (s *MemoryStore) InsertGroup(ctx context.Context, guests []model.GuestEntry, email, comments string) (model.Receipt, error) {
	if len(guests) == 0 {
		return model.Receipt{}, ErrEmptyGroup
	}
	for _, g := range guests {
		if err := CheckGuest(g); err != nil {
			return model.Receipt{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Receipt{}, ErrClosed
	}

	groupID := s.newGroupID()
	created := s.now().UTC()
	email, comments = strings.TrimSpace(email), strings.TrimSpace(comments)
	for _, g := range guests {
		s.nextRSVP++
		s.rsvps = append(s.rsvps, model.RSVPRecord{
			ID:           s.nextRSVP,
			GuestName:    strings.TrimSpace(g.Name),
			DinnerChoice: g.Dinner,
			Email:        email,
			Comments:     comments,
			GroupID:      groupID,
			CreatedAt:    created,
		})
	}
	return model.Receipt{GroupID: groupID, GuestCount: len(guests)}, nil
}

// ListRSVPs returns every row, newest first.
func (s *MemoryStore) ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.RSVPRecord, len(s.rsvps))
	copy(out, s.rsvps)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ListRSVPsByGroup returns the rows of one group in insertion order.
func (s *MemoryStore) ListRSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []model.RSVPRecord
	for _, r := range s.rsvps {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Stats aggregates the stored rows.
func (s *MemoryStore) Stats(ctx context.Context) (model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Stats{}, ErrClosed
	}

	var st model.Stats
	groups := make(map[string]struct{})
	for _, r := range s.rsvps {
		st.TotalGuests++
		groups[r.GroupID] = struct{}{}
		switch r.DinnerChoice {
		case model.DinnerVegetarian:
			st.VegetarianCount++
		case model.DinnerFish:
			st.FishCount++
		case model.DinnerMeat:
			st.MeatCount++
		}
	}
	st.TotalParties = len(groups)
	return st, nil
}

// DeleteAllRSVPs removes every row.
func (s *MemoryStore) DeleteAllRSVPs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := int64(len(s.rsvps))
	s.rsvps = nil
	return n, nil
}

// InsertInvitee adds a normalized name, rejecting duplicates.
func (s *MemoryStore) InsertInvitee(ctx context.Context, normalized string) (model.Invitee, error) {
	if err := CheckInviteeName(normalized); err != nil {
		return model.Invitee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Invitee{}, ErrClosed
	}
	if _, ok := s.invitees[normalized]; ok {
		return model.Invitee{}, ErrDuplicateInvitee
	}
	s.nextInv++
	inv := model.Invitee{ID: s.nextInv, NameNormalized: normalized, CreatedAt: s.now().UTC()}
	s.invitees[normalized] = inv
	return inv, nil
}

// ListInvitees returns every invitee ordered by name.
func (s *MemoryStore) ListInvitees(ctx context.Context) ([]model.Invitee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.Invitee, 0, len(s.invitees))
	for _, inv := range s.invitees {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameNormalized < out[j].NameNormalized })
	return out, nil
}

// CountInvitees returns the guest list size.
func (s *MemoryStore) CountInvitees(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return int64(len(s.invitees)), nil
}

// DeleteAllInvitees clears the guest list.
func (s *MemoryStore) DeleteAllInvitees(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := int64(len(s.invitees))
	s.invitees = make(map[string]model.Invitee)
	return n, nil
}

// Close marks the store unusable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
