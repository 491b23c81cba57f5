package scheduling

import (
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler serves slot listings and public booking.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new scheduling handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logging.OrDefault(logger),
	}
}

// DetailedSlots handles GET /api/slots/detailed?date=YYYY-MM-DD
func (h *Handler) DetailedSlots(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		respond.Error(w, err)
		return
	}
	grid, err := h.service.AvailableSlots(r.Context(), date)
	if err != nil {
		h.logFailure("failed to list slots", err, "date", date.String())
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, grid)
}

// PublicSlots handles GET /api/slots?date=YYYY-MM-DD. Appointment ids are
// withheld from unauthenticated callers.
func (h *Handler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		respond.Error(w, err)
		return
	}
	grid, err := h.service.AvailableSlots(r.Context(), date)
	if err != nil {
		h.logFailure("failed to list public slots", err, "date", date.String())
		respond.Error(w, err)
		return
	}
	for i := range grid {
		grid[i].AppointmentID = ""
	}
	respond.OK(w, http.StatusOK, grid)
}

// Book handles POST /api/appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req appointments.BookRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	appt, err := h.service.ValidateAndBook(r.Context(), req)
	if err != nil {
		h.logFailure("booking failed", err, "date", req.Date.String(), "time", req.Time.String())
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusCreated, appt, "Appointment booked successfully")
}

func (h *Handler) logFailure(msg string, err error, args ...any) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, append(args, "error", err)...)
		return
	}
	h.logger.Info(msg, append(args, "error", err)...)
}

func dateParam(r *http.Request) (timeslot.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return timeslot.Date{}, apperr.Validation("date query parameter is required")
	}
	date, err := timeslot.ParseDate(raw)
	if err != nil {
		return timeslot.Date{}, apperr.Validation("invalid date format, use YYYY-MM-DD")
	}
	return date, nil
}
