package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/rsvp/internal/adapters/csvimport"
	service "github.com/okian/rsvp/internal/app"
	model "github.com/okian/rsvp/internal/domain/model"
	"github.com/okian/rsvp/pkg/logger"
)

// ConfirmDeleteAll must be passed as ?confirm= to clear the guest list.
const ConfirmDeleteAll = "DELETE_ALL"

type rsvpListResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	RSVPs   []model.RSVPRecord `json:"rsvps"`
}

type statsResponse struct {
	Success bool        `json:"success"`
	Stats   model.Stats `json:"stats"`
}

type countResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

type importResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results importSummary `json:"results"`
}

type importSummary struct {
	Total      int                   `json:"total"`
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
	Errors     []service.ImportError `json:"errors"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// HandleListRSVPs handles GET /api/rsvps.
func (s *Server) HandleListRSVPs(w http.ResponseWriter, r *http.Request) {
	rsvps, err := s.deps.ListRSVPs(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch RSVPs", err)
		return
	}
	writeJSON(w, http.StatusOK, rsvpListResponse{Success: true, Count: len(rsvps), RSVPs: nonNil(rsvps)})
}

// HandleGroup handles GET /api/rsvps/{groupId}.
func (s *Server) HandleGroup(w http.ResponseWriter, r *http.Request) {
	rsvps, err := s.deps.RSVPsByGroup(r.Context(), mux.Vars(r)["groupId"])
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "not_found", "No RSVPs found for this group")
		return
	case err != nil:
		s.internalError(w, r, "Failed to fetch RSVPs", err)
		return
	}
	writeJSON(w, http.StatusOK, rsvpListResponse{Success: true, Count: len(rsvps), RSVPs: rsvps})
}

// HandleStats handles GET /api/rsvps/stats.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stats(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: st})
}

// HandleInviteeCount handles GET /api/admin/invitees/count.
func (s *Server) HandleInviteeCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.InviteeCount(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch invitee count", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}

// HandleImport handles POST /api/admin/invitees/import. The CSV comes either
// as multipart field "csv" or as a raw text/csv body.
func (s *Server) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.importMaxBytes)

	src, closeFn, err := s.csvSource(r)
	if err != nil {
		status, code := statusFor(err)
		msg := "No CSV file provided"
		if errors.Is(err, ErrTooLarge) {
			msg = fmt.Sprintf("CSV file exceeds %d bytes", s.importMaxBytes)
		}
		writeError(w, status, code, msg)
		return
	}
	defer closeFn()

	res, err := s.deps.ImportCSV(r.Context(), src)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("CSV file exceeds %d bytes", s.importMaxBytes))
		return
	case errors.Is(err, csvimport.ErrMissingNameColumn), errors.Is(err, csvimport.ErrMalformed):
		writeError(w, http.StatusBadRequest, "invalid_csv", "CSV import failed: "+err.Error())
		return
	case err != nil:
		s.internalError(w, r, "CSV import failed", err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Success: true,
		Message: "CSV import completed",
		Results: importSummary{
			Total:      res.Total,
			Successful: res.Successful,
			Failed:     res.Failed,
			Errors:     res.Errors,
		},
	})
}

func (s *Server) csvSource(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.importMaxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, nil, ErrTooLarge
			}
			return nil, nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		f, _, err := r.FormFile("csv")
		if err != nil {
			return nil, nil, ErrNoCSV
		}
		return f, func() {
			_ = f.Close()
			_ = r.MultipartForm.RemoveAll()
		}, nil
	case "text/csv", "application/csv", "text/plain":
		return r.Body, func() {}, nil
	default:
		return nil, nil, ErrNoCSV
	}
}

// HandleDeleteInvitees handles DELETE /api/admin/invitees?confirm=DELETE_ALL.
func (s *Server) HandleDeleteInvitees(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != ConfirmDeleteAll {
		writeError(w, http.StatusBadRequest, "confirmation_required", "Missing confirmation. Add ?confirm=DELETE_ALL to proceed.")
		return
	}
	n, err := s.deps.DeleteAllInvitees(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to delete invitees", err)
		return
	}
	s.logger.Warn(r.Context(), "all invitees deleted", logger.Int64("deleted", n))
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "All invitees deleted", Deleted: n})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(r.Context(), msg, logger.Error(err))
	status, code := statusFor(err)
	if status < http.StatusInternalServerError {
		status, code = http.StatusInternalServerError, "internal_error"
	}
	writeError(w, status, code, msg)
}

func nonNil(rsvps []model.RSVPRecord) []model.RSVPRecord {
	if rsvps == nil {
		return []model.RSVPRecord{}
	}
	return rsvps
}
