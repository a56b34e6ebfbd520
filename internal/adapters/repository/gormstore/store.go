// Package gormstore provides a GORM-backed RSVP store for SQLite and MySQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/okian/rsvp/internal/adapters/repository"
	model "github.com/okian/rsvp/internal/domain/model"
	"github.com/okian/rsvp/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store persists RSVPs and invitees through GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	log logger.Logger
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

// WithLogger routes GORM diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	s, err := open(ctx, sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), opts...)
	if err != nil {
		return nil, err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return s, nil
}

// OpenMySQL connects to MySQL using a go-sql-driver DSN such as
// "user:pass@tcp(host:3306)/wedding?charset=utf8mb4&parseTime=True&loc=UTC".
func OpenMySQL(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	return open(ctx, mysql.Open(dsn), opts...)
}

func open(ctx context.Context, dialector gorm.Dialector, opts ...Option) (*Store, error) {
	s := &Store{now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLog(s.log.Named("gorm")),
		TranslateError: true,
		NowFunc:        func() time.Time { return s.now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&inviteeRow{}, &rsvpRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("retrieve sql db: %w", err)
	}
	return sqlDB.Close()
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func isCheckViolation(err error) bool {
	return errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		strings.Contains(strings.ToLower(err.Error()), "check constraint")
}

// InsertGroup writes all guest rows in one transaction.
func (s *Store) InsertGroup(ctx context.Context, guests []model.GuestEntry, email, comments string) (model.Receipt, error) {
	if len(guests) == 0 {
		return model.Receipt{}, repository.ErrEmptyGroup
	}
	groupID := repository.NewGroupID()
	created := s.now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, g := range guests {
			row := rsvpRow{
				GuestName:    strings.TrimSpace(g.Name),
				DinnerChoice: string(g.Dinner),
				Email:        optional(email),
				Comments:     optional(comments),
				GroupID:      groupID,
				CreatedAt:    created,
			}
			if err := tx.Create(&row).Error; err != nil {
				if isCheckViolation(err) {
					return fmt.Errorf("%w: guest %d: %v", repository.ErrInvalidRecord, i+1, err)
				}
				return fmt.Errorf("insert guest %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Receipt{}, err
	}
	return model.Receipt{GroupID: groupID, GuestCount: len(guests)}, nil
}

func toRecords(rows []rsvpRow) []model.RSVPRecord {
	out := make([]model.RSVPRecord, len(rows))
	for i, r := range rows {
		out[i] = model.RSVPRecord{
			ID:           r.ID,
			GuestName:    r.GuestName,
			DinnerChoice: model.DinnerChoice(r.DinnerChoice),
			Email:        deref(r.Email),
			Comments:     deref(r.Comments),
			GroupID:      r.GroupID,
			CreatedAt:    r.CreatedAt.UTC(),
		}
	}
	return out
}

// ListRSVPs returns every row, newest first.
func (s *Store) ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error) {
	var rows []rsvpRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	return toRecords(rows), nil
}

// ListRSVPsByGroup returns one group's rows in insertion order.
func (s *Store) ListRSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error) {
	var rows []rsvpRow
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rsvps by group: %w", err)
	}
	return toRecords(rows), nil
}

// Stats aggregates guest, party and meal counts.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var agg struct {
		TotalGuests     int
		TotalParties    int
		VegetarianCount int
		FishCount       int
		MeatCount       int
	}
	err := s.db.WithContext(ctx).Model(&rsvpRow{}).Select(`
		COUNT(*) AS total_guests,
		COUNT(DISTINCT group_id) AS total_parties,
		COALESCE(SUM(CASE WHEN dinner_choice = 'vegetarian' THEN 1 ELSE 0 END), 0) AS vegetarian_count,
		COALESCE(SUM(CASE WHEN dinner_choice = 'fish' THEN 1 ELSE 0 END), 0) AS fish_count,
		COALESCE(SUM(CASE WHEN dinner_choice = 'meat' THEN 1 ELSE 0 END), 0) AS meat_count`,
	).Scan(&agg).Error
	if err != nil {
		return model.Stats{}, fmt.Errorf("rsvp stats: %w", err)
	}
	return model.Stats(agg), nil
}

// DeleteAllRSVPs removes every RSVP row.
func (s *Store) DeleteAllRSVPs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rsvpRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete rsvps: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// InsertInvitee adds a normalized name; the unique index decides races.
func (s *Store) InsertInvitee(ctx context.Context, normalized string) (model.Invitee, error) {
	if err := repository.CheckInviteeName(normalized); err != nil {
		return model.Invitee{}, err
	}
	row := inviteeRow{NameNormalized: normalized, CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.Invitee{}, repository.ErrDuplicateInvitee
		}
		return model.Invitee{}, fmt.Errorf("insert invitee: %w", err)
	}
	return model.Invitee{ID: row.ID, NameNormalized: row.NameNormalized, CreatedAt: row.CreatedAt}, nil
}

// ListInvitees returns every invitee ordered by name.
func (s *Store) ListInvitees(ctx context.Context) ([]model.Invitee, error) {
	var rows []inviteeRow
	if err := s.db.WithContext(ctx).Order("name_normalized ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list invitees: %w", err)
	}
	out := make([]model.Invitee, len(rows))
	for i, r := range rows {
		out[i] = model.Invitee{ID: r.ID, NameNormalized: r.NameNormalized, CreatedAt: r.CreatedAt.UTC()}
	}
	return out, nil
}

// CountInvitees returns the guest list size.
func (s *Store) CountInvitees(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&inviteeRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count invitees: %w", err)
	}
	return n, nil
}

// DeleteAllInvitees clears the guest list.
func (s *Store) DeleteAllInvitees(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&inviteeRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete invitees: %w", res.Error)
	}
	return res.RowsAffected, nil
}
