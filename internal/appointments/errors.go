package appointments

import "github.com/wolfman30/clinic-scheduler/internal/apperr"

var (
	// ErrAppointmentNotFound is returned when an appointment id is unknown
	ErrAppointmentNotFound = apperr.New(apperr.ErrNotFound, "appointment not found")

	// ErrSlotTaken is returned when a non-cancelled appointment already holds the slot
	ErrSlotTaken = apperr.New(apperr.ErrSlotUnavailable, "this time slot is no longer available")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids
	ErrInvalidTransition = apperr.New(apperr.ErrInvalidTransition, "invalid status transition")

	// errStatusChanged signals a lost compare-and-set race; the ledger re-reads and retries.
	errStatusChanged = apperr.New(apperr.ErrInvalidTransition, "appointment status changed concurrently")

	ErrNameRequired  = apperr.New(apperr.ErrValidation, "name is required")
	ErrEmailRequired = apperr.New(apperr.ErrValidation, "email is required")
	ErrInvalidEmail  = apperr.New(apperr.ErrValidation, "email is invalid")
	ErrPhoneRequired = apperr.New(apperr.ErrValidation, "phone is required")
	ErrInvalidPhone  = apperr.New(apperr.ErrValidation, "phone is invalid")
)
