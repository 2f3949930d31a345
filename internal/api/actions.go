package api

import (
	"context"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

const (
	ActionCreateAppointment    = "createAppointment"
	ActionGetAppointments      = "getAppointments"
	ActionUpdateAppointment    = "updateAppointment"
	ActionCancelAppointment    = "cancelAppointment"
	ActionCreatePaymentSession = "createPaymentSession"
	ActionGetPaymentStatus     = "getPaymentStatus"
	ActionGetPayments          = "getPayments"
	ActionGetDoctors           = "getDoctors"
	ActionGetAvailableSlots    = "getAvailableSlots"
	ActionUpdateProfile        = "updateProfile"
	ActionGetDashboardStats    = "getDashboardStats"
)

func (c *Client) CreateAppointment(ctx context.Context, appt models.NewAppointment) (*models.Appointment, error) {
	var created models.Appointment
	if err := c.call(ctx, ActionCreateAppointment, map[string]any{"data": appt}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	if err := c.call(ctx, ActionGetAppointments, map[string]any{"userId": userID}, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, appointmentID string, updates map[string]any) (*models.Appointment, error) {
	var updated models.Appointment
	fields := map[string]any{"appointmentId": appointmentID, "updates": updates}
	if err := c.call(ctx, ActionUpdateAppointment, fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) CancelAppointment(ctx context.Context, appointmentID string) error {
	return c.call(ctx, ActionCancelAppointment, map[string]any{"appointmentId": appointmentID}, nil)
}

func (c *Client) CreatePaymentSession(ctx context.Context, req models.PaymentSessionRequest) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := c.call(ctx, ActionCreatePaymentSession, map[string]any{"data": req}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, transactionID string) (*models.PaymentState, error) {
	var state models.PaymentState
	if err := c.call(ctx, ActionGetPaymentStatus, map[string]any{"transactionId": transactionID}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) GetPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := c.call(ctx, ActionGetPayments, map[string]any{"userId": userID}, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *Client) GetDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := c.call(ctx, ActionGetDoctors, nil, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *Client) GetAvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	var slots []string
	fields := map[string]any{"doctorId": doctorID, "date": date}
	if err := c.call(ctx, ActionGetAvailableSlots, fields, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// UpdateProfile returns the profile as stored by the backend.
func (c *Client) UpdateProfile(ctx context.Context, userID string, profile models.UserMetadata) (map[string]any, error) {
	var updated map[string]any
	fields := map[string]any{"userId": userID, "data": profile}
	if err := c.call(ctx, ActionUpdateProfile, fields, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) GetDashboardStats(ctx context.Context, userID string, role models.UserRole) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	fields := map[string]any{"userId": userID, "role": role}
	if err := c.call(ctx, ActionGetDashboardStats, fields, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
