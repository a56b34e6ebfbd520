package service

import (
	"errors"
	"fmt"
	"time"

	model "github.com/okian/rsvp/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	// ErrValidation marks malformed submissions; see model.ValidationError.
	ErrValidation    = model.ErrInvalidSubmission
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrInviteeMatch  = errors.New("no guest matched the invitee list")
	ErrNotConfigured = errors.New("invitee list is empty")
	ErrStorage       = errors.New("storage failure")
	ErrNotStarted    = errors.New("service not started")
	ErrStopped       = errors.New("service stopped; create a new one to restart")
	ErrGroupNotFound = errors.New("rsvp group not found")
	ErrInvalidName   = errors.New("invalid name provided")
)

// RateLimitError is returned when a client exceeds its submission quota.
type RateLimitError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d per %s exceeded, retry after %s", e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
