package availability

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler serves the admin rule endpoints.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new rules handler
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logging.OrDefault(logger),
	}
}

// ListAvailability handles GET /api/availability
func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListAvailability(r.Context())
	if err != nil {
		h.logger.Error("failed to list availability", "error", err)
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, rules)
}

// CreateAvailability handles POST /api/availability
func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	var req CreateAvailabilityRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	rule, err := h.store.CreateAvailability(r.Context(), &req)
	if err != nil {
		h.logError("failed to create availability", err)
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusCreated, rule, "Availability created")
}

// DeleteAvailability handles DELETE /api/availability/{id}
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, KindAvailability)
}

// ListBlocks handles GET /api/blocked-slots
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListBlocks(r.Context())
	if err != nil {
		h.logger.Error("failed to list blocks", "error", err)
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, rules)
}

// CreateBlock handles POST /api/blocked-slots
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	rule, err := h.store.CreateBlock(r.Context(), &req)
	if err != nil {
		h.logError("failed to create block", err)
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusCreated, rule, "Blocked slot created")
}

// DeleteBlock handles DELETE /api/blocked-slots/{id}
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, KindBlock)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, kind Kind) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), kind, id); err != nil {
		h.logError("failed to delete rule", err, "kind", string(kind), "id", id)
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, nil, "Deleted")
}

func (h *Handler) logError(msg string, err error, args ...any) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, append(args, "error", err)...)
		return
	}
	h.logger.Warn(msg, append(args, "error", err)...)
}
