package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	service "github.com/okian/rsvp/internal/app"
	model "github.com/okian/rsvp/internal/domain/model"
	"github.com/okian/rsvp/pkg/logger"
)

const maxSubmissionBytes = 64 << 10

type submitResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	GroupID    string `json:"groupId"`
	GuestCount int    `json:"guestCount"`
}

// HandleSubmit handles POST /api/rsvp.
func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err := dec.Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	receipt, err := s.deps.Submit(r.Context(), s.clientID(r), sub)
	if err != nil {
		s.writeSubmitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Success:    true,
		Message:    "RSVP submitted successfully",
		GroupID:    receipt.GroupID,
		GuestCount: receipt.GuestCount,
	})
}

func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	var verr *model.ValidationError
	var rlerr *service.RateLimitError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, status, errorResponse{Code: code, Error: verr.Message, Field: verr.Field})
	case errors.As(err, &rlerr):
		secs := int(math.Ceil(rlerr.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, status, code, "Too many RSVP attempts. Please try again later.")
	case errors.Is(err, service.ErrInviteeMatch):
		writeError(w, status, code, s.notOnListMessage())
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, status, code, "Unable to validate guest list. Please try again later.")
	default:
		s.logger.Error(r.Context(), "rsvp submission failed", logger.Error(err))
		writeError(w, status, code, "Failed to save RSVP. Please try again.")
	}
}

func (s *Server) notOnListMessage() string {
	msg := "We couldn't find your name on the guest list. Please check your spelling"
	if s.contactEmail != "" {
		return msg + " or contact us at " + s.contactEmail
	}
	return msg + "."
}
