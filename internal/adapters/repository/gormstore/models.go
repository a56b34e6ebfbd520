package gormstore

import "time"

// inviteeRow maps the invitees table.
type inviteeRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	NameNormalized string    `gorm:"size:255;not null;uniqueIndex:idx_invitees_name;check:name_normalized <> ''"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (inviteeRow) TableName() string { return "invitees" }

// rsvpRow maps the rsvp_responses table.
type rsvpRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	GuestName    string    `gorm:"size:255;not null;check:TRIM(guest_name) <> ''"`
	DinnerChoice string    `gorm:"size:16;not null;check:dinner_choice IN ('vegetarian','fish','meat')"`
	Email        *string   `gorm:"size:255"`
	Comments     *string   `gorm:"type:text"`
	GroupID      string    `gorm:"size:64;not null;index:idx_rsvp_group"`
	CreatedAt    time.Time `gorm:"not null;index:idx_rsvp_created"`
}

func (rsvpRow) TableName() string { return "rsvp_responses" }
