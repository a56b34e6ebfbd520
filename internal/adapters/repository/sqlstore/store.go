// Package sqlstore provides a SQLite-backed RSVP store on database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	repository "github.com/okian/rsvp/internal/adapters/repository"
	"github.com/okian/rsvp/internal/adapters/repository/sqlstore/migrations"
	model "github.com/okian/rsvp/internal/domain/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists RSVPs and invitees in SQLite.
type Store struct {
	db         *sql.DB
	now        func() time.Time
	newGroupID func() string
}

var _ repository.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite permits one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, now: time.Now, newGroupID: repository.NewGroupID}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

// InsertGroup writes every guest row inside one transaction.
func (s *Store) InsertGroup(ctx context.Context, guests []model.GuestEntry, email, comments string) (model.Receipt, error) {
	if len(guests) == 0 {
		return model.Receipt{}, repository.ErrEmptyGroup
	}

	groupID := s.newGroupID()
	created := toMillis(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("begin rsvp insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rsvp_responses
		(guest_name, dinner_choice, email, comments, group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("prepare rsvp insert: %w", err)
	}
	defer stmt.Close()

	for i, g := range guests {
		if _, err := stmt.ExecContext(ctx,
			strings.TrimSpace(g.Name), string(g.Dinner),
			nullable(email), nullable(comments),
			groupID, created,
		); err != nil {
			if isCheckViolation(err) {
				return model.Receipt{}, fmt.Errorf("%w: guest %d: %v", repository.ErrInvalidRecord, i+1, err)
			}
			return model.Receipt{}, fmt.Errorf("insert guest %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Receipt{}, fmt.Errorf("commit rsvp insert: %w", err)
	}
	return model.Receipt{GroupID: groupID, GuestCount: len(guests)}, nil
}

const rsvpColumns = `id, guest_name, dinner_choice, email, comments, group_id, created_at`

// ListRSVPs returns every row, newest first.
func (s *Store) ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error) {
	return s.queryRSVPs(ctx, `SELECT `+rsvpColumns+` FROM rsvp_responses ORDER BY created_at DESC, id DESC`)
}

// ListRSVPsByGroup returns one group's rows in insertion order.
func (s *Store) ListRSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error) {
	return s.queryRSVPs(ctx, `SELECT `+rsvpColumns+` FROM rsvp_responses WHERE group_id = ? ORDER BY id ASC`, groupID)
}

func (s *Store) queryRSVPs(ctx context.Context, query string, args ...any) ([]model.RSVPRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rsvps: %w", err)
	}
	defer rows.Close()

	var out []model.RSVPRecord
	for rows.Next() {
		var (
			r               model.RSVPRecord
			dinner          string
			email, comments sql.NullString
			created         int64
		)
		if err := rows.Scan(&r.ID, &r.GuestName, &dinner, &email, &comments, &r.GroupID, &created); err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		r.DinnerChoice = model.DinnerChoice(dinner)
		r.Email = email.String
		r.Comments = comments.String
		r.CreatedAt = fromMillis(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return out, nil
}

// Stats aggregates guest, party and meal counts in one query.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(DISTINCT group_id),
		COALESCE(SUM(CASE WHEN dinner_choice = 'vegetarian' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN dinner_choice = 'fish' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN dinner_choice = 'meat' THEN 1 ELSE 0 END), 0)
		FROM rsvp_responses`,
	).Scan(&st.TotalGuests, &st.TotalParties, &st.VegetarianCount, &st.FishCount, &st.MeatCount)
	if err != nil {
		return model.Stats{}, fmt.Errorf("rsvp stats: %w", err)
	}
	return st, nil
}

// DeleteAllRSVPs removes every RSVP row.
func (s *Store) DeleteAllRSVPs(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "rsvp_responses")
}

// InsertInvitee adds a normalized name. The unique index decides races.
func (s *Store) InsertInvitee(ctx context.Context, normalized string) (model.Invitee, error) {
	if err := repository.CheckInviteeName(normalized); err != nil {
		return model.Invitee{}, err
	}
	created := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invitees (name_normalized, created_at) VALUES (?, ?)`,
		normalized, toMillis(created),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Invitee{}, repository.ErrDuplicateInvitee
		}
		return model.Invitee{}, fmt.Errorf("insert invitee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Invitee{}, fmt.Errorf("invitee id: %w", err)
	}
	return model.Invitee{ID: id, NameNormalized: normalized, CreatedAt: fromMillis(toMillis(created))}, nil
}

// ListInvitees returns every invitee ordered by name.
func (s *Store) ListInvitees(ctx context.Context) ([]model.Invitee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_normalized, created_at FROM invitees ORDER BY name_normalized ASC`)
	if err != nil {
		return nil, fmt.Errorf("query invitees: %w", err)
	}
	defer rows.Close()

	var out []model.Invitee
	for rows.Next() {
		var (
			inv     model.Invitee
			created int64
		)
		if err := rows.Scan(&inv.ID, &inv.NameNormalized, &created); err != nil {
			return nil, fmt.Errorf("scan invitee: %w", err)
		}
		inv.CreatedAt = fromMillis(created)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitees: %w", err)
	}
	return out, nil
}

// CountInvitees returns the guest list size.
func (s *Store) CountInvitees(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invitees: %w", err)
	}
	return n, nil
}

// DeleteAllInvitees clears the guest list.
func (s *Store) DeleteAllInvitees(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "invitees")
}

func (s *Store) deleteAll(ctx context.Context, table string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return n, nil
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isCheckViolation(err error) bool {
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3lib.SQLITE_CONSTRAINT_CHECK
	}
	return strings.Contains(strings.ToLower(err.Error()), "check constraint failed")
}
