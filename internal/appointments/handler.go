package appointments

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler serves the admin appointment endpoints.
type Handler struct {
	ledger *Ledger
	logger *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(ledger *Ledger, logger *logging.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		logger: logging.OrDefault(logger),
	}
}

// List handles GET /api/appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		respond.Error(w, err)
		return
	}
	page, err := parsePage(q)
	if err != nil {
		respond.Error(w, err)
		return
	}

	result, err := h.ledger.Query(r.Context(), filter, page)
	if err != nil {
		h.logFailure("failed to list appointments", err)
		respond.Error(w, err)
		return
	}
	respond.Page(w, result.Appointments, respond.NewPagination(result.Total, result.Page.Page, result.Page.PageSize))
}

// Stats handles GET /api/appointments/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respond.Error(w, err)
		return
	}
	stats, err := h.ledger.Stats(r.Context(), filter)
	if err != nil {
		h.logFailure("failed to compute stats", err)
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, stats)
}

// Get handles GET /api/appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure("failed to get appointment", err)
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, appt)
}

// UpdateStatusRequest is the PUT /api/appointments/{id} body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/appointments/{id}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	appt, err := h.ledger.UpdateStatus(r.Context(), id, next)
	if err != nil {
		h.logFailure("failed to update appointment status", err, "appointment_id", id)
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, appt, "Appointment status updated")
}

func (h *Handler) logFailure(msg string, err error, args ...any) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, append(args, "error", err)...)
		return
	}
	h.logger.Debug(msg, append(args, "error", err)...)
}

func parseFilter(q url.Values) (Filter, error) {
	var f Filter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && raw != "all" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := ParseStatus(part)
			if err != nil {
				return Filter{}, err
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	for _, p := range []struct {
		key string
		dst **timeslot.Date
	}{
		{"date_from", &f.DateFrom},
		{"date_to", &f.DateTo},
	} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		d, err := timeslot.ParseDate(raw)
		if err != nil {
			return Filter{}, apperr.Validation("%s: %v", p.key, err)
		}
		*p.dst = &d
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

func parsePage(q url.Values) (PageRequest, error) {
	page := PageRequest{Page: 1, PageSize: DefaultPageSize}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apperr.Validation("page must be a positive integer")
		}
		page.Page = n
	}
	sizeParam := q.Get("page_size")
	if sizeParam == "" {
		sizeParam = q.Get("limit")
	}
	if sizeParam != "" {
		n, err := strconv.Atoi(sizeParam)
		if err != nil || n < 1 {
			return page, apperr.Validation("page_size must be a positive integer")
		}
		page.PageSize = n
	}
	return page.Normalize(), nil
}
