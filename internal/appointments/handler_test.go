package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

type listResponse struct {
	Success    bool          `json:"success"`
	Data       []Appointment `json:"data"`
	Pagination struct {
		Total       int `json:"total"`
		TotalPages  int `json:"totalPages"`
		CurrentPage int `json:"currentPage"`
		Limit       int `json:"limit"`
	} `json:"pagination"`
}

type singleResponse struct {
	Success bool        `json:"success"`
	Data    Appointment `json:"data"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func seedLedger(t *testing.T) (*Ledger, []*Appointment) {
	t.Helper()
	ledger, _ := newTestLedger()
	var out []*Appointment
	for i, name := range []string{"alice", "bob", "carol"} {
		d := details(name)
		d.Email = name + "@example.com"
		appt, err := ledger.Book(context.Background(), timeslot.MustDate("2024-06-03"), timeslot.TimeOfDay(540+30*i), d)
		require.NoError(t, err)
		out = append(out, appt)
	}
	return ledger, out
}

func TestHandler_ListPaginates(t *testing.T) {
	ledger, seeded := seedLedger(t)
	h := NewHandler(ledger, logging.Default())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/appointments?page=2&page_size=2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, seeded[2].ID, resp.Data[0].ID)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
	assert.Equal(t, 2, resp.Pagination.Limit)
}

func TestHandler_ListFilters(t *testing.T) {
	ledger, seeded := seedLedger(t)
	_, err := ledger.UpdateStatus(context.Background(), seeded[1].ID, StatusConfirmed)
	require.NoError(t, err)
	h := NewHandler(ledger, logging.Default())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/appointments?status=confirmed,cancelled", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, seeded[1].ID, resp.Data[0].ID)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/appointments?search=CAROL&status=all", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = listResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, seeded[2].ID, resp.Data[0].ID)

	for _, q := range []string{"status=archived", "date_from=06/03/2024", "page=0", "page_size=abc", "date_from=2024-06-05&date_to=2024-06-01"} {
		rec = httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/appointments?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandler_Stats(t *testing.T) {
	ledger, seeded := seedLedger(t)
	_, err := ledger.UpdateStatus(context.Background(), seeded[0].ID, StatusCancelled)
	require.NoError(t, err)
	h := NewHandler(ledger, logging.Default())

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/appointments/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, Stats{Total: 3, Pending: 2, Cancelled: 1}, resp.Data)
}

func TestHandler_GetAndUpdateStatus(t *testing.T) {
	ledger, seeded := seedLedger(t)
	h := NewHandler(ledger, logging.Default())
	id := seeded[0].ID

	rec := httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/appointments/"+id, nil), id))
	require.Equal(t, http.StatusOK, rec.Code)
	var got singleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Data.Name)
	assert.Equal(t, "09:00", got.Data.Time.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/appointments/"+id, strings.NewReader(`{"status":"confirmed"}`))
	h.UpdateStatus(rec, withID(req, id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = singleResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, StatusConfirmed, got.Data.Status)
	assert.Equal(t, "Appointment status updated", got.Message)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/appointments/"+id, strings.NewReader(`{"status":"pending"}`))
	h.UpdateStatus(rec, withID(req, id))
	assert.Equal(t, http.StatusConflict, rec.Code)
	got = singleResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, "cannot change status from confirmed to pending", got.Error)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/appointments/"+id, strings.NewReader(`{"status":"done"}`))
	h.UpdateStatus(rec, withID(req, id))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/appointments/nope", nil), "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
