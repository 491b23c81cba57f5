// Package respond writes the {success, data|error} JSON envelope every API
// endpoint returns.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Envelope is the response body shape shared by all endpoints.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// NewPagination computes the page count for total items at limit per page.
func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, TotalPages: totalPages, CurrentPage: page, Limit: limit}
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Message writes a success envelope with a human-readable message.
func Message(w http.ResponseWriter, status int, data any, msg string) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: msg})
}

// Page writes a success envelope for one page of a list.
func Page(w http.ResponseWriter, data any, p Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// Fail writes a failure envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Success: false, Error: msg})
}

// Error maps err through the apperr taxonomy. Unknown errors become a generic 500.
func Error(w http.ResponseWriter, err error) {
	Fail(w, apperr.HTTPStatus(err), apperr.PublicMessage(err))
}

// Decode reads a JSON request body into dst. Malformed bodies are validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
