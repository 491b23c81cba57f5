package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/slots"
)

type slotsResponse struct {
	Success bool         `json:"success"`
	Data    []slots.Slot `json:"data"`
	Error   string       `json:"error"`
}

func TestHandler_DetailedSlots(t *testing.T) {
	f := newFixture(t)
	booked, err := f.service.ValidateAndBook(context.Background(), bookReq(monday, "09:00", "pat@example.com"))
	require.NoError(t, err)
	h := NewHandler(f.service, nil)

	rec := httptest.NewRecorder()
	h.DetailedSlots(rec, httptest.NewRequest(http.MethodGet, "/api/slots/detailed?date=2024-06-03", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 5)
	assert.False(t, resp.Data[0].IsAvailable)
	assert.Equal(t, booked.ID, resp.Data[0].AppointmentID)
	assert.Equal(t, "09:00", resp.Data[0].SlotTime)
	assert.Equal(t, 30, resp.Data[0].DurationMinutes)
}

func TestHandler_PublicSlotsHideAppointmentIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ValidateAndBook(context.Background(), bookReq(monday, "09:00", "pat@example.com"))
	require.NoError(t, err)
	h := NewHandler(f.service, nil)

	rec := httptest.NewRecorder()
	h.PublicSlots(rec, httptest.NewRequest(http.MethodGet, "/api/slots?date=2024-06-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "appointment_id")

	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data[0].IsAvailable)
}

func TestHandler_SlotsDateValidation(t *testing.T) {
	h := NewHandler(newFixture(t).service, nil)
	for _, target := range []string{"/api/slots/detailed", "/api/slots/detailed?date=June+3", "/api/slots/detailed?date=2024-02-30"} {
		rec := httptest.NewRecorder()
		h.DetailedSlots(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var resp slotsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestHandler_Book(t *testing.T) {
	h := NewHandler(newFixture(t).service, nil)
	body := `{"name":"Pat Doe","email":"pat@example.com","phone":"555-123-4567","date":"2024-06-03","time":"10:30","message":"hello"}`

	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                     `json:"success"`
		Data    appointments.Appointment `json:"data"`
		Message string                   `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, appointments.StatusPending, resp.Data.Status)
	assert.Equal(t, "10:30", resp.Data.Time.String())
	assert.Equal(t, "hello", resp.Data.Message)

	rec = httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "this time slot is no longer available")

	offGrid := strings.Replace(body, `"10:30"`, `"10:45"`, 1)
	rec = httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(offGrid)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(`{"time":"25:00"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
