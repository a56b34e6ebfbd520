// Package repository defines the RSVP and invitee store contracts and an
// in-memory implementation.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	model "github.com/okian/rsvp/internal/domain/model"
)

// RSVPStore persists submissions as atomic guest groups.
type RSVPStore interface {
	// InsertGroup writes one row per guest under a fresh group id. Either
	// every row is committed or none are.
	InsertGroup(ctx context.Context, guests []model.GuestEntry, email, comments string) (model.Receipt, error)
	// ListRSVPs returns every row, newest first.
	ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error)
	// ListRSVPsByGroup returns the rows of one group in insertion order.
	ListRSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error)
	// Stats aggregates guest, party and meal counts.
	Stats(ctx context.Context) (model.Stats, error)
	// DeleteAllRSVPs removes every row and reports how many were removed.
	DeleteAllRSVPs(ctx context.Context) (int64, error)
}

// InviteeStore holds the guest list keyed by normalized name.
type InviteeStore interface {
	// InsertInvitee adds a normalized name. It returns ErrDuplicateInvitee
	// when the name already exists.
	InsertInvitee(ctx context.Context, normalized string) (model.Invitee, error)
	// ListInvitees returns every invitee ordered by name.
	ListInvitees(ctx context.Context) ([]model.Invitee, error)
	CountInvitees(ctx context.Context) (int64, error)
	DeleteAllInvitees(ctx context.Context) (int64, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	RSVPStore
	InviteeStore
	Close() error
}

// NewGroupID returns an opaque identifier for one submission.
func NewGroupID() string {
	return uuid.NewString()
}

// CheckGuest applies the row-level constraints every backend enforces.
func CheckGuest(g model.GuestEntry) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: guest name is empty", ErrInvalidRecord)
	}
	if !g.Dinner.Valid() {
		return fmt.Errorf("%w: dinner choice %q", ErrInvalidRecord, g.Dinner)
	}
	return nil
}

// CheckInviteeName rejects names that cannot be stored.
func CheckInviteeName(normalized string) error {
	if normalized == "" {
		return fmt.Errorf("%w: invitee name is empty", ErrInvalidRecord)
	}
	return nil
}
