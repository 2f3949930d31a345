// Package app holds the controllers behind each screen: they validate input, toggle
// loading flags, call the domain services and report outcomes as notifications.
package app

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/appointment"
	"github.com/muhammadahmed9211/clinic-saas/internal/dashboard"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/notify"
	"github.com/muhammadahmed9211/clinic-saas/internal/payment"
	"github.com/muhammadahmed9211/clinic-saas/internal/session"
)

var ErrNotSignedIn = errors.New("please sign in first")

// Backend is everything the controllers need from the API client.
type Backend interface {
	appointment.Backend
	payment.Backend
	dashboard.Backend
	UpdateProfile(ctx context.Context, userID string, profile models.UserMetadata) (map[string]any, error)
}

// Account is the part of the auth gateway that changes the signed-in account itself.
// Successful updates reach the session store through gateway events.
type Account interface {
	ResetPassword(ctx context.Context, email string) error
	RecoverSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
	UpdatePassword(ctx context.Context, password string) (*models.User, error)
	UpdateProfile(ctx context.Context, metadata models.UserMetadata) (*models.User, error)
}

type Deps struct {
	Session    *session.Store
	Account    Account
	Backend    Backend
	Notes      *notify.Center
	SuccessURL string
	CancelURL  string
	Log        zerolog.Logger
}

type App struct {
	Session      *session.Store
	Notes        *notify.Center
	Auth         *AuthController
	Appointments *AppointmentsController
	Payments     *PaymentsController
	Dashboard    *DashboardController
	Profile      *ProfileController
}

func New(d Deps) *App {
	notes := d.Notes
	if notes == nil {
		notes = notify.NewCenter()
	}
	base := controller{session: d.Session, notes: notes, log: d.Log}

	return &App{
		Session: d.Session,
		Notes:   notes,
		Auth:    &AuthController{controller: base, account: d.Account},
		Appointments: &AppointmentsController{
			controller: base,
			service:    appointment.NewService(d.Backend, d.Log),
			slots:      appointment.NewSlotFinder(d.Backend),
		},
		Payments: &PaymentsController{
			controller: base,
			service:    payment.NewService(d.Backend, d.SuccessURL, d.CancelURL, d.Log),
		},
		Dashboard: &DashboardController{controller: base, backend: d.Backend},
		Profile:   &ProfileController{controller: base, backend: d.Backend, account: d.Account},
	}
}

// Loading counts in-flight calls of one controller.
type Loading struct {
	n atomic.Int32
}

func (l *Loading) Active() bool {
	return l.n.Load() > 0
}

// begin marks a call in flight; the returned func must be deferred.
func (l *Loading) begin() func() {
	l.n.Add(1)
	return func() { l.n.Add(-1) }
}

type controller struct {
	session *session.Store
	notes   *notify.Center
	log     zerolog.Logger
}

func (c *controller) currentUser() (*models.User, error) {
	user := c.session.Get().User
	if user == nil {
		c.notes.Error("Please sign in first")
		return nil, ErrNotSignedIn
	}
	return user, nil
}
