package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const sendTimeout = 15 * time.Second

// AppointmentNotifier emails the patient and the clinic after ledger commits.
// Sends run in the background; Wait blocks until they finish.
type AppointmentNotifier struct {
	email       EmailSender
	clinicName  string
	clinicEmail string
	location    *time.Location
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
	wg          sync.WaitGroup
}

// AppointmentNotifierConfig describes the clinic as it appears in emails.
type AppointmentNotifierConfig struct {
	ClinicName  string
	ClinicEmail string // receives new-booking alerts; empty disables them
	Location    *time.Location
}

// NewAppointmentNotifier creates a notifier. A nil sender disables email.
func NewAppointmentNotifier(email EmailSender, cfg AppointmentNotifierConfig, m *metrics.SchedulingMetrics, logger *logging.Logger) *AppointmentNotifier {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ClinicName == "" {
		cfg.ClinicName = "the clinic"
	}
	return &AppointmentNotifier{
		email:       email,
		clinicName:  cfg.ClinicName,
		clinicEmail: cfg.ClinicEmail,
		location:    cfg.Location,
		metrics:     m,
		logger:      logging.OrDefault(logger).Component("notify"),
	}
}

// AppointmentBooked tells the patient the request was received and alerts the clinic.
func (n *AppointmentNotifier) AppointmentBooked(ctx context.Context, appt appointments.Appointment) {
	when := n.when(appt)
	n.dispatch(ctx, "booked", appt.ID, EmailMessage{
		To:      appt.Email,
		ToName:  appt.Name,
		Subject: fmt.Sprintf("We received your appointment request at %s", n.clinicName),
		Body: fmt.Sprintf(`Hi %s,

Thanks for requesting an appointment at %s on %s.

Your request is pending. We will email you again once it is confirmed.
`, appt.Name, n.clinicName, when),
	})

	if n.clinicEmail == "" {
		return
	}
	body := fmt.Sprintf(`New appointment request

Patient: %s
Email: %s
Phone: %s
When: %s
`, appt.Name, appt.Email, appt.Phone, when)
	if appt.Message != "" {
		body += fmt.Sprintf("Message: %s\n", appt.Message)
	}
	n.dispatch(ctx, "clinic_alert", appt.ID, EmailMessage{
		To:      n.clinicEmail,
		ToName:  n.clinicName,
		Subject: fmt.Sprintf("New appointment request: %s, %s", appt.Name, when),
		Body:    body,
	})
}

// StatusChanged emails the patient when the clinic confirms or cancels.
func (n *AppointmentNotifier) StatusChanged(ctx context.Context, appt appointments.Appointment, previous appointments.Status) {
	when := n.when(appt)
	var subject, body string
	switch appt.Status {
	case appointments.StatusConfirmed:
		subject = fmt.Sprintf("Your appointment at %s is confirmed", n.clinicName)
		body = fmt.Sprintf("Hi %s,\n\nYour appointment on %s is confirmed. We look forward to seeing you.\n", appt.Name, when)
	case appointments.StatusCancelled:
		subject = fmt.Sprintf("Your appointment at %s was cancelled", n.clinicName)
		body = fmt.Sprintf("Hi %s,\n\nYour appointment on %s has been cancelled. Reply to this email or book a new time online.\n", appt.Name, when)
	default:
		return
	}
	n.dispatch(ctx, string(appt.Status), appt.ID, EmailMessage{
		To:      appt.Email,
		ToName:  appt.Name,
		Subject: subject,
		Body:    body,
	})
}

// Wait blocks until in-flight sends complete.
func (n *AppointmentNotifier) Wait() {
	n.wg.Wait()
}

func (n *AppointmentNotifier) when(appt appointments.Appointment) string {
	return appt.Date.At(appt.Time, n.location).Format("Monday, January 2, 2006 at 3:04 PM")
}

func (n *AppointmentNotifier) dispatch(ctx context.Context, event, appointmentID string, msg EmailMessage) {
	if n.email == nil || strings.TrimSpace(msg.To) == "" {
		n.metrics.ObserveNotification(event, "skipped")
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.email.Send(sendCtx, msg); err != nil {
			n.metrics.ObserveNotification(event, "failed")
			n.logger.Error("appointment email failed", "event", event, "appointment_id", appointmentID, "error", err)
			return
		}
		n.metrics.ObserveNotification(event, "sent")
		n.logger.Info("appointment email sent", "event", event, "appointment_id", appointmentID)
	}()
}

var _ appointments.Notifier = (*AppointmentNotifier)(nil)
