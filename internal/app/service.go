// Package service implements the RSVP submission gate and the admin
// operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	repository "github.com/okian/rsvp/internal/adapters/repository"
	invitee "github.com/okian/rsvp/internal/domain/invitee"
	matching "github.com/okian/rsvp/internal/domain/matching"
	model "github.com/okian/rsvp/internal/domain/model"
	ratelimit "github.com/okian/rsvp/internal/domain/ratelimit"
	"github.com/okian/rsvp/pkg/logger"
	"github.com/okian/rsvp/pkg/metrics"
)

// Limiter admits or rejects requests per client key.
type Limiter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// Service implements the API dependencies for the RSVP backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	limiter   Limiter
	validator *invitee.Validator

	// Configuration
	matchThreshold    float64
	rateLimit         int
	rateWindow        time.Duration
	importConcurrency int
	gaugeInterval     time.Duration

	// State
	started bool
	stopped bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLimiter replaces the default sliding-window limiter.
func WithLimiter(l Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMatchThreshold sets the fuzzy match threshold.
func WithMatchThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.matchThreshold = threshold
		}
	}
}

// WithRateLimit sets how many submissions a client may make per window.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Service) {
		if limit > 0 {
			s.rateLimit = limit
		}
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithImportConcurrency bounds concurrent inserts during invitee import.
func WithImportConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.importConcurrency = n
		}
	}
}

// WithGaugeInterval sets how often RunGaugeRefresher polls the store.
func WithGaugeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gaugeInterval = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		matchThreshold:    matching.DefaultThreshold,
		rateLimit:         ratelimit.DefaultLimit,
		rateWindow:        ratelimit.DefaultWindow,
		importConcurrency: 4,
		gaugeInterval:     30 * time.Second,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the components. A memory store is used when none was given.
// A stopped service has closed its store and cannot be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rsvp service...")

	if s.store == nil {
		s.store = repository.Instrument(repository.NewMemoryStore())
		s.logger.Warn(ctx, "no store configured, using in-memory store")
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(
			ratelimit.WithLimit(s.rateLimit),
			ratelimit.WithWindow(s.rateWindow),
		)
	}
	s.validator = invitee.NewValidator(s.store,
		invitee.WithMatcher(matching.NewMatcher(matching.WithThreshold(s.matchThreshold))),
		invitee.WithLogger(s.logger.Named("invitee")),
	)

	s.started = true
	s.refreshInviteeGauge(ctx)
	s.logger.Info(ctx, "rsvp service started",
		logger.Float64("matchThreshold", s.matchThreshold),
		logger.Int("rateLimit", s.rateLimit),
		logger.Duration("rateWindow", s.rateWindow),
		logger.Int("importConcurrency", s.importConcurrency),
	)
	return nil
}

// Stop closes the store and stops background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping rsvp service...")

	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "close store", logger.Error(err))
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.stopped = true
	s.logger.Info(context.Background(), "rsvp service stopped")
}

func (s *Service) components() (repository.Store, Limiter, *invitee.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.store, s.limiter, s.validator, nil
}

// Submit runs a submission through every gate and commits it as one group.
// Gates run in order: structure, rate limit, guest list. A structurally
// invalid payload does not use up the client's quota.
func (s *Service) Submit(ctx context.Context, clientID string, sub model.Submission) (model.Receipt, error) {
	store, limiter, validator, err := s.components()
	if err != nil {
		return model.Receipt{}, err
	}

	if err := sub.Validate(); err != nil {
		metrics.RecordSubmission(metrics.OutcomeInvalid)
		return model.Receipt{}, err
	}

	if d := limiter.Allow(ctx, clientID); !d.Allowed {
		metrics.RecordSubmission(metrics.OutcomeRateLimited)
		s.logger.Warn(ctx, "rsvp rate limited",
			logger.String("client", clientID),
			logger.Duration("retryAfter", d.RetryAfter))
		return model.Receipt{}, &RateLimitError{Limit: s.rateLimit, Window: s.rateWindow, RetryAfter: d.RetryAfter}
	}

	verdict, err := validator.ValidateAtLeastOneMatch(ctx, sub.GuestNames())
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeStorageError)
		s.logger.Error(ctx, "invitee validation failed", logger.Error(err))
		return model.Receipt{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if verdict.NotConfigured() {
		metrics.RecordSubmission(metrics.OutcomeNotConfigured)
		s.logger.Error(ctx, "rsvp rejected: invitee list is empty, import guests to accept submissions")
		return model.Receipt{}, ErrNotConfigured
	}
	if !verdict.Valid {
		metrics.RecordSubmission(metrics.OutcomeNotOnList)
		s.logger.Warn(ctx, "rsvp rejected: guest list match failed",
			logger.String("client", clientID),
			logger.Int("guests", len(sub.Guests)),
			logger.Any("attempted", verdict.AttemptedNames),
			logger.Float64("threshold", verdict.Threshold))
		return model.Receipt{}, ErrInviteeMatch
	}

	receipt, err := store.InsertGroup(ctx, sub.Guests, strings.TrimSpace(sub.Email), strings.TrimSpace(sub.Comments))
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeStorageError)
		s.logger.Error(ctx, "rsvp insert failed", logger.Error(err))
		return model.Receipt{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	metrics.RecordSubmission(metrics.OutcomeAccepted)
	metrics.RecordGuestsAccepted(receipt.GuestCount)
	s.logger.Info(ctx, "rsvp accepted",
		logger.String("groupId", receipt.GroupID),
		logger.Int("guests", receipt.GuestCount),
		logger.String("matchedInvitee", verdict.MatchedInvitee),
		logger.Float64("similarity", verdict.Similarity))
	return receipt, nil
}

// ListRSVPs returns every stored RSVP, newest first.
func (s *Service) ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error) {
	store, _, _, err := s.components()
	if err != nil {
		return nil, err
	}
	rows, err := store.ListRSVPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return rows, nil
}

// RSVPsByGroup returns one group's rows, or ErrGroupNotFound.
func (s *Service) RSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error) {
	store, _, _, err := s.components()
	if err != nil {
		return nil, err
	}
	rows, err := store.ListRSVPsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if len(rows) == 0 {
		return nil, ErrGroupNotFound
	}
	return rows, nil
}

// Stats returns aggregate RSVP counts.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	store, _, _, err := s.components()
	if err != nil {
		return model.Stats{}, err
	}
	st, err := store.Stats(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return st, nil
}

// DeleteAllRSVPs removes every RSVP.
func (s *Service) DeleteAllRSVPs(ctx context.Context) (int64, error) {
	store, _, _, err := s.components()
	if err != nil {
		return 0, err
	}
	n, err := store.DeleteAllRSVPs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.logger.Warn(ctx, "all rsvps deleted", logger.Int64("deleted", n))
	return n, nil
}

// ListInvitees returns the guest list ordered by name.
func (s *Service) ListInvitees(ctx context.Context) ([]model.Invitee, error) {
	store, _, _, err := s.components()
	if err != nil {
		return nil, err
	}
	list, err := store.ListInvitees(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return list, nil
}

// InviteeCount returns the guest list size.
func (s *Service) InviteeCount(ctx context.Context) (int64, error) {
	store, _, _, err := s.components()
	if err != nil {
		return 0, err
	}
	n, err := store.CountInvitees(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	metrics.UpdateInviteeCount(n)
	return n, nil
}

// DeleteAllInvitees clears the guest list. Every later submission is
// rejected until names are imported again.
func (s *Service) DeleteAllInvitees(ctx context.Context) (int64, error) {
	store, _, _, err := s.components()
	if err != nil {
		return 0, err
	}
	n, err := store.DeleteAllInvitees(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	metrics.UpdateInviteeCount(0)
	s.logger.Warn(ctx, "all invitees deleted", logger.Int64("deleted", n))
	return n, nil
}

// AddInvitee normalizes name and stores it.
func (s *Service) AddInvitee(ctx context.Context, name string) (model.Invitee, error) {
	store, _, _, err := s.components()
	if err != nil {
		return model.Invitee{}, err
	}
	normalized := normalizeInvitee(name)
	if normalized == "" {
		return model.Invitee{}, ErrInvalidName
	}
	inv, err := store.InsertInvitee(ctx, normalized)
	switch {
	case errors.Is(err, repository.ErrDuplicateInvitee):
		return model.Invitee{}, err
	case err != nil:
		return model.Invitee{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return inv, nil
}

// GetStats returns service state for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"started":           s.started,
		"matchThreshold":    s.matchThreshold,
		"rateLimit":         s.rateLimit,
		"rateWindowSeconds": s.rateWindow.Seconds(),
		"importConcurrency": s.importConcurrency,
	}
}

// RunGaugeRefresher keeps the invitee gauge current until ctx is done or
// the service stops.
func (s *Service) RunGaugeRefresher(ctx context.Context) error {
	ticker := time.NewTicker(s.gaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.refreshInviteeGauge(ctx)
		}
	}
}

func (s *Service) refreshInviteeGauge(ctx context.Context) {
	if s.store == nil {
		return
	}
	n, err := s.store.CountInvitees(ctx)
	if err != nil {
		s.logger.Warn(ctx, "refresh invitee gauge", logger.Error(err))
		return
	}
	metrics.UpdateInviteeCount(n)
	if n == 0 {
		s.logger.Warn(ctx, "invitee list is empty, all rsvp submissions will be rejected")
	}
}
