package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrDuplicateInvitee = errors.New("invitee already exists")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrEmptyGroup       = errors.New("rsvp group has no guests")
	ErrClosed           = errors.New("store is closed")
)
