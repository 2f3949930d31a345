// Package appointment wraps the booking actions of the API client.
package appointment

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

// ErrNotCancellable is returned, without contacting the backend, for anything but a pending appointment.
var ErrNotCancellable = errors.New("only pending appointments can be cancelled")

type Backend interface {
	CreateAppointment(ctx context.Context, appt models.NewAppointment) (*models.Appointment, error)
	GetAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentID string, updates map[string]any) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID string) error
	GetDoctors(ctx context.Context) ([]models.Doctor, error)
	GetAvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
}

type Service struct {
	backend Backend
	log     zerolog.Logger
}

func NewService(backend Backend, log zerolog.Logger) *Service {
	return &Service{backend: backend, log: log}
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Appointment, error) {
	return s.backend.GetAppointments(ctx, userID)
}

func (s *Service) Doctors(ctx context.Context) ([]models.Doctor, error) {
	return s.backend.GetDoctors(ctx)
}

// Book validates the form and creates a pending appointment.
func (s *Service) Book(ctx context.Context, userID string, form validate.BookingForm) (*models.Appointment, error) {
	if err := validate.Booking(form); err != nil {
		return nil, err
	}

	created, err := s.backend.CreateAppointment(ctx, models.NewAppointment{
		UserID:   userID,
		DoctorID: form.DoctorID,
		Date:     form.Date,
		TimeSlot: form.TimeSlot,
		Status:   models.AppointmentPending,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("doctor_id", form.DoctorID).Str("date", form.Date).Str("slot", form.TimeSlot).Msg("appointment booked")
	return created, nil
}

// Cancel requests pending -> cancelled. Every other transition is left to the backend.
func (s *Service) Cancel(ctx context.Context, appt models.Appointment) error {
	if !CanCancel(appt) {
		return ErrNotCancellable
	}
	if err := s.backend.CancelAppointment(ctx, appt.ID); err != nil {
		return err
	}
	s.log.Info().Str("appointment_id", appt.ID).Msg("appointment cancelled")
	return nil
}

func (s *Service) Update(ctx context.Context, appointmentID string, updates map[string]any) (*models.Appointment, error) {
	return s.backend.UpdateAppointment(ctx, appointmentID, updates)
}

// CanCancel reports whether the cancel action is offered for appt.
func CanCancel(appt models.Appointment) bool {
	return appt.Status.ClientMayRequest(models.AppointmentCancelled)
}

var badgeVariants = map[models.AppointmentStatus]string{
	models.AppointmentPending:   "warning",
	models.AppointmentConfirmed: "info",
	models.AppointmentCompleted: "success",
	models.AppointmentCancelled: "danger",
}

// BadgeVariant maps a status to its badge variant, defaulting to "info".
func BadgeVariant(status models.AppointmentStatus) string {
	if v, ok := badgeVariants[status]; ok {
		return v
	}
	return "info"
}
