package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadahmed9211/clinic-saas/internal/api"
	"github.com/muhammadahmed9211/clinic-saas/internal/auth"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/notify"
	"github.com/muhammadahmed9211/clinic-saas/internal/session"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

// countingBackend records every action it receives.
type countingBackend struct {
	mu          sync.Mutex
	calls       map[string]int
	appts       []models.Appointment
	payments    []models.Payment
	fail        error
	lastSession models.PaymentSessionRequest
}

func newBackend() *countingBackend {
	return &countingBackend{calls: make(map[string]int)}
}

func (b *countingBackend) hit(action string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[action]++
	return b.fail
}

func (b *countingBackend) count(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[action]
}

func (b *countingBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *countingBackend) CreateAppointment(_ context.Context, appt models.NewAppointment) (*models.Appointment, error) {
	if err := b.hit(api.ActionCreateAppointment); err != nil {
		return nil, err
	}
	created := models.Appointment{ID: "new", DoctorID: appt.DoctorID, Date: appt.Date, TimeSlot: appt.TimeSlot, Status: appt.Status}
	b.appts = append(b.appts, created)
	return &created, nil
}

func (b *countingBackend) GetAppointments(context.Context, string) ([]models.Appointment, error) {
	if err := b.hit(api.ActionGetAppointments); err != nil {
		return nil, err
	}
	out := make([]models.Appointment, len(b.appts))
	copy(out, b.appts)
	return out, nil
}

func (b *countingBackend) UpdateAppointment(_ context.Context, id string, _ map[string]any) (*models.Appointment, error) {
	if err := b.hit(api.ActionUpdateAppointment); err != nil {
		return nil, err
	}
	return &models.Appointment{ID: id}, nil
}

func (b *countingBackend) CancelAppointment(_ context.Context, id string) error {
	if err := b.hit(api.ActionCancelAppointment); err != nil {
		return err
	}
	for i := range b.appts {
		if b.appts[i].ID == id {
			b.appts[i].Status = models.AppointmentCancelled
		}
	}
	return nil
}

func (b *countingBackend) GetDoctors(context.Context) ([]models.Doctor, error) {
	return []models.Doctor{{ID: "D1"}}, b.hit(api.ActionGetDoctors)
}

func (b *countingBackend) GetAvailableSlots(context.Context, string, string) ([]string, error) {
	return []string{"10:00", "10:30"}, b.hit(api.ActionGetAvailableSlots)
}

func (b *countingBackend) CreatePaymentSession(_ context.Context, req models.PaymentSessionRequest) (*models.PaymentSession, error) {
	if err := b.hit(api.ActionCreatePaymentSession); err != nil {
		return nil, err
	}
	b.lastSession = req
	return &models.PaymentSession{RedirectURL: "https://gateway.example/pay", TransactionID: "txn-1"}, nil
}

func (b *countingBackend) GetPaymentStatus(context.Context, string) (*models.PaymentState, error) {
	if err := b.hit(api.ActionGetPaymentStatus); err != nil {
		return nil, err
	}
	return &models.PaymentState{Status: models.PaymentPending}, nil
}

func (b *countingBackend) GetPayments(context.Context, string) ([]models.Payment, error) {
	return b.payments, b.hit(api.ActionGetPayments)
}

func (b *countingBackend) GetDashboardStats(context.Context, string, models.UserRole) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalAppointments: len(b.appts)}, b.hit(api.ActionGetDashboardStats)
}

func (b *countingBackend) UpdateProfile(context.Context, string, models.UserMetadata) (map[string]any, error) {
	return map[string]any{}, b.hit(api.ActionUpdateProfile)
}

type stubGateway struct {
	signInErr  error
	recoverErr error
	signUps    int
	handler    auth.Handler
	metadata   models.UserMetadata
}

func (g *stubGateway) GetSession(context.Context) (*models.Session, error)  { return nil, nil }
func (g *stubGateway) GetCurrentUser(context.Context) (*models.User, error) { return nil, auth.ErrNoSession }
func (g *stubGateway) SignOut(context.Context) error                        { return nil }
func (g *stubGateway) ResetPassword(context.Context, string) error          { return nil }

func (g *stubGateway) OnAuthStateChange(h auth.Handler) func() {
	g.handler = h
	return func() { g.handler = nil }
}

func (g *stubGateway) UpdatePassword(context.Context, string) (*models.User, error) {
	return &models.User{ID: "u1"}, nil
}

func (g *stubGateway) UpdateProfile(_ context.Context, metadata models.UserMetadata) (*models.User, error) {
	g.metadata = metadata
	user := &models.User{ID: "u1", Email: "patient@example.com", UserMetadata: metadata}
	g.handler(auth.EventUserUpdated, &models.Session{AccessToken: "at", User: *user})
	return user, nil
}

func (g *stubGateway) RecoverSession(_ context.Context, accessToken, refreshToken string) (*models.Session, error) {
	if g.recoverErr != nil {
		return nil, g.recoverErr
	}
	session := &models.Session{AccessToken: accessToken, RefreshToken: refreshToken, User: models.User{ID: "u1"}}
	g.handler(auth.EventPasswordRecovery, session)
	return session, nil
}

func (g *stubGateway) SignIn(_ context.Context, email, _ string) (*auth.AuthData, error) {
	if g.signInErr != nil {
		return nil, g.signInErr
	}
	user := &models.User{ID: "u1", Email: email}
	return &auth.AuthData{User: user, Session: &models.Session{AccessToken: "at", User: *user}}, nil
}

func (g *stubGateway) SignUp(_ context.Context, email, _ string, _ auth.Profile) (*auth.AuthData, error) {
	g.signUps++
	return &auth.AuthData{User: &models.User{ID: "u2", Email: email}}, nil
}

func newApp(t *testing.T, backend *countingBackend, signedIn bool) (*App, *stubGateway) {
	t.Helper()
	gw := &stubGateway{}
	store := session.New(gw, zerolog.Nop())
	notes := notify.NewCenter()
	t.Cleanup(notes.Clear)

	a := New(Deps{
		Session:    store,
		Account:    gw,
		Backend:    backend,
		Notes:      notes,
		SuccessURL: "http://127.0.0.1:8787/payment-success",
		CancelURL:  "http://127.0.0.1:8787/payment-cancel",
		Log:        zerolog.Nop(),
	})
	if signedIn {
		require.True(t, store.SignIn(context.Background(), "patient@example.com", "secret1").Success)
	}
	return a, gw
}

func lastNote(t *testing.T, a *App) models.Notification {
	t.Helper()
	list := a.Notes.List()
	require.NotEmpty(t, list)
	return list[len(list)-1]
}

func TestBookingWithoutSlotIsRejectedLocally(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, true)

	ok := a.Appointments.Book(context.Background(), validate.BookingForm{DoctorID: "D1", Date: "2025-06-01"})
	assert.False(t, ok)

	n := lastNote(t, a)
	assert.Equal(t, models.NotificationError, n.Type)
	assert.Equal(t, "Please fill all fields", n.Message)
	assert.Zero(t, b.total())
	assert.False(t, a.Appointments.Booking.Active())
}

func TestBookingSuccess(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, true)
	ctx := context.Background()

	slots, ok := a.Appointments.Slots(ctx, "D1", "2025-06-01")
	require.True(t, ok)
	require.NotEmpty(t, slots)

	require.True(t, a.Appointments.Book(ctx, validate.BookingForm{DoctorID: "D1", Date: "2025-06-01", TimeSlot: slots[0]}))
	assert.Equal(t, "Appointment booked successfully!", lastNote(t, a).Message)
	assert.Equal(t, 1, b.count(api.ActionCreateAppointment))

	appts := a.Appointments.List(ctx)
	require.Len(t, appts, 1)
	assert.Equal(t, models.AppointmentPending, appts[0].Status)
}

func TestBookingFailureNotifies(t *testing.T) {
	b := newBackend()
	b.fail = &api.Error{Kind: api.KindApplication, Message: "Slot taken"}
	a, _ := newApp(t, b, true)

	ok := a.Appointments.Book(context.Background(), validate.BookingForm{DoctorID: "D1", Date: "2025-06-01", TimeSlot: "10:00"})
	assert.False(t, ok)
	assert.Equal(t, "Failed to book appointment", lastNote(t, a).Message)
	assert.False(t, a.Appointments.Booking.Active(), "loading cleared after failure")
}

func TestPaymentWithoutGatewayIsRejectedLocally(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, true)

	_, ok := a.Payments.Pay(context.Background(), models.Appointment{ID: "a1", Fee: 1500}, "")
	assert.False(t, ok)
	assert.Equal(t, "Please select a payment method", lastNote(t, a).Message)
	assert.Zero(t, b.count(api.ActionCreatePaymentSession))
}

func TestPaymentHandOff(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, true)

	res, ok := a.Payments.Pay(context.Background(), models.Appointment{ID: "a1", Fee: 1500}, "easypaisa")
	require.True(t, ok)
	assert.Equal(t, "https://gateway.example/pay", res.RedirectURL)
	assert.Equal(t, "txn-1", res.TransactionID)
	assert.Equal(t, "APPT-a1", b.lastSession.OrderID)
	assert.Equal(t, 1500.0, b.lastSession.Amount)
	assert.Equal(t, "http://127.0.0.1:8787/payment-success", b.lastSession.SuccessURL)
	assert.False(t, a.Payments.Processing.Active())
}

func TestPaymentFailureUsesServerMessage(t *testing.T) {
	b := newBackend()
	b.fail = &api.Error{Kind: api.KindApplication, Message: "Gateway offline"}
	a, _ := newApp(t, b, true)

	_, ok := a.Payments.Pay(context.Background(), models.Appointment{ID: "a1"}, "card")
	assert.False(t, ok)
	assert.Equal(t, "Gateway offline", lastNote(t, a).Message)
}

func TestCancelPendingThenRefetch(t *testing.T) {
	b := newBackend()
	b.appts = []models.Appointment{
		{ID: "a1", Status: models.AppointmentPending},
		{ID: "a2", Status: models.AppointmentCompleted},
	}
	a, _ := newApp(t, b, true)
	ctx := context.Background()

	appts := a.Appointments.List(ctx)
	require.True(t, a.Appointments.CanCancel(appts[0]))
	require.True(t, a.Appointments.Cancel(ctx, appts[0]))
	assert.Equal(t, "Appointment cancelled", lastNote(t, a).Message)

	appts = a.Appointments.List(ctx)
	assert.Equal(t, models.AppointmentCancelled, appts[0].Status)

	// completed appointments are never offered a cancel action
	assert.False(t, a.Appointments.CanCancel(appts[1]))
	assert.False(t, a.Appointments.Cancel(ctx, appts[1]))
	assert.Equal(t, 1, b.count(api.ActionCancelAppointment))
}

func TestRegisterValidation(t *testing.T) {
	b := newBackend()
	a, gw := newApp(t, b, false)
	ctx := context.Background()

	form := validate.RegisterForm{Name: "Sana", Email: "sana@example.com", Phone: "0300", Password: "secret1", ConfirmPassword: "secret2"}
	assert.False(t, a.Auth.Register(ctx, form))
	assert.Equal(t, "Passwords do not match!", lastNote(t, a).Message)

	form.Password, form.ConfirmPassword = "abc", "abc"
	assert.False(t, a.Auth.Register(ctx, form))
	assert.Equal(t, "Password must be at least 6 characters long!", lastNote(t, a).Message)

	assert.Zero(t, gw.signUps)
	assert.Zero(t, b.total())

	form.Password, form.ConfirmPassword = "secret1", "secret1"
	assert.True(t, a.Auth.Register(ctx, form))
	assert.Equal(t, "Account created successfully! Please check your email to verify.", lastNote(t, a).Message)
	assert.Equal(t, 1, gw.signUps)
}

func TestLoginOutcomes(t *testing.T) {
	a, gw := newApp(t, newBackend(), false)
	ctx := context.Background()

	gw.signInErr = errors.New("Invalid login credentials")
	assert.False(t, a.Auth.Login(ctx, validate.LoginForm{Email: "a@example.com", Password: "bad"}))
	assert.Equal(t, "Invalid login credentials", lastNote(t, a).Message)
	assert.False(t, a.Auth.Loading.Active())

	gw.signInErr = nil
	assert.True(t, a.Auth.Login(ctx, validate.LoginForm{Email: "a@example.com", Password: "good"}))
	assert.Equal(t, "Successfully signed in!", lastNote(t, a).Message)
	assert.Equal(t, "u1", a.Session.Get().User.ID)

	a.Auth.Logout(ctx)
	assert.Nil(t, a.Session.Get().User)
}

func TestSignedOutUserCannotLoadData(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, false)
	ctx := context.Background()

	assert.Nil(t, a.Appointments.List(ctx))
	_, ok := a.Dashboard.Load(ctx)
	assert.False(t, ok)
	assert.Nil(t, a.Payments.History(ctx))
	assert.Zero(t, b.total())
	assert.Equal(t, "Please sign in first", lastNote(t, a).Message)
}

func TestDashboardAndSummary(t *testing.T) {
	b := newBackend()
	b.appts = []models.Appointment{{ID: "a1"}, {ID: "a2"}}
	b.payments = []models.Payment{
		{ID: "p1", Amount: 1500, Status: models.PaymentPaid},
		{ID: "p2", Amount: 2000, Status: models.PaymentPending},
		{ID: "p3", Amount: 500, Status: models.PaymentPaid},
		{ID: "p4", Amount: 700, Status: models.PaymentFailed},
	}
	a, _ := newApp(t, b, true)
	ctx := context.Background()

	overview, ok := a.Dashboard.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, overview.Stats.TotalAppointments)
	assert.Len(t, overview.Recent, 2)

	payments := a.Payments.History(ctx)
	assert.Equal(t, Summary{TotalPaid: 2000, Pending: 1, Transactions: 4}, Summarize(payments))
}

func TestProfileAndPasswords(t *testing.T) {
	b := newBackend()
	a, gw := newApp(t, b, true)
	ctx := context.Background()

	assert.False(t, a.Profile.Update(ctx, "", ""))
	assert.True(t, a.Profile.Update(ctx, "Sana K", "0300-1234567"))
	assert.Equal(t, 1, b.count(api.ActionUpdateProfile))
	assert.Equal(t, "Sana K", gw.metadata.Name)

	user := a.Session.Get().User
	require.NotNil(t, user)
	assert.Equal(t, "Sana K", user.UserMetadata.Name, "session shows the updated identity metadata")
	assert.Equal(t, "0300-1234567", user.UserMetadata.Phone)

	assert.True(t, a.Auth.ResetPassword(ctx, "sana@example.com"))
	assert.False(t, a.Auth.UpdatePassword(ctx, validate.PasswordForm{Password: "abc", ConfirmPassword: "abc"}))
	assert.True(t, a.Auth.UpdatePassword(ctx, validate.PasswordForm{Password: "secret1", ConfirmPassword: "secret1"}))
}

func TestRecoverThenUpdatePassword(t *testing.T) {
	a, gw := newApp(t, newBackend(), false)
	ctx := context.Background()

	assert.False(t, a.Auth.Recover(ctx, "", "rt"))
	assert.Equal(t, validate.MsgFillAllFields, lastNote(t, a).Message)

	gw.recoverErr = errors.New("Token has expired or is invalid")
	assert.False(t, a.Auth.Recover(ctx, "stale", "rt"))
	assert.Equal(t, "Token has expired or is invalid", lastNote(t, a).Message)
	assert.Nil(t, a.Session.Get().Session)

	gw.recoverErr = nil
	require.True(t, a.Auth.Recover(ctx, "recovery-at", "recovery-rt"))
	require.NotNil(t, a.Session.Get().Session)
	assert.Equal(t, "recovery-at", a.Session.Get().Session.AccessToken)

	assert.True(t, a.Auth.UpdatePassword(ctx, validate.PasswordForm{Password: "secret1", ConfirmPassword: "secret1"}))
	assert.Equal(t, "Password updated successfully!", lastNote(t, a).Message)
}

func TestPaymentStatus(t *testing.T) {
	b := newBackend()
	a, _ := newApp(t, b, true)

	res := a.Payments.Status(context.Background(), "txn-1")
	assert.True(t, res.Success)
	assert.Equal(t, models.PaymentPending, res.Status)
}
