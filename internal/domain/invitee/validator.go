// Package invitee decides whether a submission names someone on the guest list.
package invitee

import (
	"context"
	"errors"
	"fmt"

	matching "github.com/okian/rsvp/internal/domain/matching"
	model "github.com/okian/rsvp/internal/domain/model"
	names "github.com/okian/rsvp/internal/domain/names"
	"github.com/okian/rsvp/pkg/logger"
	"github.com/okian/rsvp/pkg/metrics"
)

// Rejection reasons.
const (
	ReasonNoInvitees = "no invitees configured"
	ReasonNoGuests   = "no guest names submitted"
	ReasonNoMatch    = "no guest matched the invitee list"
)

// ErrListInvitees wraps failures reading the invitee list.
var ErrListInvitees = errors.New("list invitees")

// Lister provides the current guest list.
type Lister interface {
	ListInvitees(ctx context.Context) ([]model.Invitee, error)
}

// Result is the verdict of a validation call. It carries diagnostics for
// logging and never the invitee list itself.
type Result struct {
	Valid          bool
	MatchedGuest   string
	MatchedInvitee string
	Similarity     float64
	Reason         string
	// AttemptedNames holds the normalized guest names when nothing matched.
	AttemptedNames []string
	Threshold      float64
}

// NotConfigured reports whether the rejection was caused by an empty guest list.
func (r Result) NotConfigured() bool {
	return !r.Valid && r.Reason == ReasonNoInvitees
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithMatcher sets the matcher used to compare names.
func WithMatcher(m *matching.Matcher) Option {
	return func(v *Validator) {
		if m != nil {
			v.matcher = m
		}
	}
}

// WithLogger sets the validator logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// Validator checks submitted guest names against the invitee list.
type Validator struct {
	lister  Lister
	matcher *matching.Matcher
	logger  logger.Logger
}

// NewValidator creates a validator reading invitees from lister.
func NewValidator(lister Lister, opts ...Option) *Validator {
	v := &Validator{
		lister:  lister,
		matcher: matching.NewMatcher(),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateAtLeastOneMatch accepts the submission as soon as one guest name
// clears the match threshold. An empty guest list rejects everyone.
func (v *Validator) ValidateAtLeastOneMatch(ctx context.Context, guestNames []string) (Result, error) {
	threshold := v.matcher.Threshold()

	invitees, err := v.lister.ListInvitees(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrListInvitees, err)
	}
	if len(invitees) == 0 {
		v.logger.Error(ctx, "invitee list is empty, rejecting submission")
		return Result{Reason: ReasonNoInvitees, Threshold: threshold}, nil
	}

	candidates := make([]string, len(invitees))
	for i, inv := range invitees {
		candidates[i] = inv.NameNormalized
	}

	attempted := make([]string, 0, len(guestNames))
	for _, guest := range guestNames {
		query := names.Normalize(guest)
		attempted = append(attempted, query)

		res := v.matcher.FindBestMatch(query, candidates)
		metrics.RecordMatchSimilarity(res.Similarity)
		if res.IsMatch {
			v.logger.Debug(ctx, "guest matched invitee",
				logger.String("guest", query),
				logger.Float64("similarity", res.Similarity))
			return Result{
				Valid:          true,
				MatchedGuest:   guest,
				MatchedInvitee: res.MatchedName,
				Similarity:     res.Similarity,
				Threshold:      threshold,
			}, nil
		}
	}

	reason := ReasonNoMatch
	if len(guestNames) == 0 {
		reason = ReasonNoGuests
	}
	v.logger.Warn(ctx, "no guest matched the invitee list",
		logger.Any("attempted", attempted),
		logger.Float64("threshold", threshold))
	return Result{Reason: reason, AttemptedNames: attempted, Threshold: threshold}, nil
}
