package repository

import (
	"context"
	"errors"
	"time"

	model "github.com/okian/rsvp/internal/domain/model"
	"github.com/okian/rsvp/pkg/metrics"
)

// Instrumented wraps a Store and records latency and failures per operation.
type Instrumented struct {
	next Store
}

var _ Store = (*Instrumented)(nil)

// Instrument returns s wrapped with storage metrics.
func Instrument(s Store) *Instrumented {
	return &Instrumented{next: s}
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStorageLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrDuplicateInvitee) {
		metrics.RecordStorageError(op)
	}
}

func (i *Instrumented) InsertGroup(ctx context.Context, guests []model.GuestEntry, email, comments string) (r model.Receipt, err error) {
	defer func(start time.Time) { observe("insert_group", start, err) }(time.Now())
	return i.next.InsertGroup(ctx, guests, email, comments)
}

func (i *Instrumented) ListRSVPs(ctx context.Context) (out []model.RSVPRecord, err error) {
	defer func(start time.Time) { observe("list_rsvps", start, err) }(time.Now())
	return i.next.ListRSVPs(ctx)
}

func (i *Instrumented) ListRSVPsByGroup(ctx context.Context, groupID string) (out []model.RSVPRecord, err error) {
	defer func(start time.Time) { observe("list_rsvps_by_group", start, err) }(time.Now())
	return i.next.ListRSVPsByGroup(ctx, groupID)
}

func (i *Instrumented) Stats(ctx context.Context) (st model.Stats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())
	return i.next.Stats(ctx)
}

func (i *Instrumented) DeleteAllRSVPs(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("delete_rsvps", start, err) }(time.Now())
	return i.next.DeleteAllRSVPs(ctx)
}

func (i *Instrumented) InsertInvitee(ctx context.Context, normalized string) (inv model.Invitee, err error) {
	defer func(start time.Time) { observe("insert_invitee", start, err) }(time.Now())
	return i.next.InsertInvitee(ctx, normalized)
}

func (i *Instrumented) ListInvitees(ctx context.Context) (out []model.Invitee, err error) {
	defer func(start time.Time) { observe("list_invitees", start, err) }(time.Now())
	return i.next.ListInvitees(ctx)
}

func (i *Instrumented) CountInvitees(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("count_invitees", start, err) }(time.Now())
	return i.next.CountInvitees(ctx)
}

func (i *Instrumented) DeleteAllInvitees(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("delete_invitees", start, err) }(time.Now())
	return i.next.DeleteAllInvitees(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
