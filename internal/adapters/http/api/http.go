// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/okian/rsvp/internal/app"
	model "github.com/okian/rsvp/internal/domain/model"
	"github.com/okian/rsvp/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Submit(ctx context.Context, clientID string, sub model.Submission) (model.Receipt, error)

	ListRSVPs(ctx context.Context) ([]model.RSVPRecord, error)
	RSVPsByGroup(ctx context.Context, groupID string) ([]model.RSVPRecord, error)
	Stats(ctx context.Context) (model.Stats, error)

	InviteeCount(ctx context.Context) (int64, error)
	ImportCSV(ctx context.Context, src io.Reader) (service.ImportResult, error)
	DeleteAllInvitees(ctx context.Context) (int64, error)
}

// Server wires HTTP routes for the RSVP API.
type Server struct {
	deps Dependencies

	adminKey          string
	contactEmail      string
	trustProxyHeaders bool
	importMaxBytes    int64
	logger            logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		importMaxBytes: defaultImportMaxBytes,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all API routes to r. Paths under /api/ that match no
// route answer with a JSON 404, so register this before any catch-all.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/metrics", MetricsMiddleware(HandleMetrics, "metrics")).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/health", MetricsMiddleware(HandleHealth, "health")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/rsvp", MetricsMiddleware(s.HandleSubmit, "rsvp")).Methods(http.MethodPost)

	admin := s.requireAdmin
	// stats must be registered ahead of {groupId}.
	apiRouter.HandleFunc("/rsvps", MetricsMiddleware(admin(s.HandleListRSVPs), "rsvps")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/rsvps/stats", MetricsMiddleware(admin(s.HandleStats), "rsvps_stats")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/rsvps/{groupId}", MetricsMiddleware(admin(s.HandleGroup), "rsvps_group")).Methods(http.MethodGet)

	apiRouter.HandleFunc("/admin/invitees/count", MetricsMiddleware(admin(s.HandleInviteeCount), "invitees_count")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/admin/invitees/import", MetricsMiddleware(admin(s.HandleImport), "invitees_import")).Methods(http.MethodPost)
	apiRouter.HandleFunc("/admin/invitees", MetricsMiddleware(admin(s.HandleDeleteInvitees), "invitees_delete")).Methods(http.MethodDelete)

	apiRouter.PathPrefix("/").HandlerFunc(MetricsMiddleware(handleNotFound, "not_found"))
}

// Handler returns a router with only the API routes registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Endpoint not found"})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

// statusFor maps service errors onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, service.ErrValidation), errors.Is(err, ErrBadRequest), errors.Is(err, ErrNoCSV):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrInviteeMatch):
		return http.StatusForbidden, "not_on_guest_list"
	case errors.Is(err, service.ErrGroupNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusInternalServerError, "not_configured"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
