package app

import (
	"context"
	"errors"

	"github.com/muhammadahmed9211/clinic-saas/internal/appointment"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

type AppointmentsController struct {
	controller
	service *appointment.Service
	slots   *appointment.SlotFinder
	Loading Loading
	Booking Loading
}

// List returns the user's appointments. Fetch failures are logged, not notified.
func (c *AppointmentsController) List(ctx context.Context) []models.Appointment {
	user, err := c.currentUser()
	if err != nil {
		return nil
	}

	defer c.Loading.begin()()

	appts, err := c.service.List(ctx, user.ID)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to fetch appointments")
		return nil
	}
	return appts
}

func (c *AppointmentsController) Doctors(ctx context.Context) []models.Doctor {
	doctors, err := c.service.Doctors(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to fetch doctors")
		return nil
	}
	return doctors
}

// Slots looks up free slots for the doctor/date pair. A reply overtaken by a newer
// lookup is dropped and reported as ok=false.
func (c *AppointmentsController) Slots(ctx context.Context, doctorID, date string) (slots []string, ok bool) {
	if doctorID == "" || date == "" {
		return nil, false
	}

	slots, err := c.slots.Find(ctx, doctorID, date)
	switch {
	case errors.Is(err, appointment.ErrStaleSlots):
		c.log.Debug().Str("doctor_id", doctorID).Str("date", date).Msg("dropping stale slots")
		return nil, false
	case err != nil:
		c.log.Error().Err(err).Msg("failed to fetch slots")
		return nil, false
	}
	return slots, true
}

// Book validates before any network call, then creates the appointment.
func (c *AppointmentsController) Book(ctx context.Context, form validate.BookingForm) bool {
	if err := validate.Booking(form); err != nil {
		c.notes.Error(err.Error())
		return false
	}
	user, err := c.currentUser()
	if err != nil {
		return false
	}

	defer c.Booking.begin()()

	if _, err := c.service.Book(ctx, user.ID, form); err != nil {
		c.log.Error().Err(err).Msg("booking failed")
		c.notes.Error("Failed to book appointment")
		return false
	}
	c.slots.Reset()
	c.notes.Success("Appointment booked successfully!")
	return true
}

// CanCancel reports whether the cancel action is offered for appt.
func (c *AppointmentsController) CanCancel(appt models.Appointment) bool {
	return appointment.CanCancel(appt)
}

func (c *AppointmentsController) Cancel(ctx context.Context, appt models.Appointment) bool {
	if !appointment.CanCancel(appt) {
		return false
	}

	defer c.Loading.begin()()

	if err := c.service.Cancel(ctx, appt); err != nil {
		c.log.Error().Err(err).Str("appointment_id", appt.ID).Msg("cancel failed")
		c.notes.Error("Failed to cancel appointment")
		return false
	}
	c.notes.Success("Appointment cancelled")
	return true
}

func (c *AppointmentsController) Reschedule(ctx context.Context, appt models.Appointment, date, slot string) bool {
	if date == "" || slot == "" {
		c.notes.Error(validate.MsgFillAllFields)
		return false
	}

	defer c.Loading.begin()()

	if _, err := c.service.Update(ctx, appt.ID, map[string]any{"date": date, "time_slot": slot}); err != nil {
		c.notes.Error(orDefault(err.Error(), "Failed to update appointment"))
		return false
	}
	c.notes.Success("Appointment updated")
	return true
}

// BadgeVariant is the display variant for an appointment status.
func BadgeVariant(status models.AppointmentStatus) string {
	return appointment.BadgeVariant(status)
}
