// Package dashboard assembles the signed-in user's overview.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

const RecentLimit = 5

type Backend interface {
	GetDashboardStats(ctx context.Context, userID string, role models.UserRole) (*models.DashboardStats, error)
	GetAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
}

type Overview struct {
	Stats  models.DashboardStats
	Recent []models.Appointment
}

// Load fetches stats and appointments concurrently. Recent keeps the first
// RecentLimit appointments in the order the backend returns them.
func Load(ctx context.Context, backend Backend, user models.User) (Overview, error) {
	var (
		stats *models.DashboardStats
		appts []models.Appointment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = backend.GetDashboardStats(gctx, user.ID, user.Role())
		return err
	})
	g.Go(func() error {
		var err error
		appts, err = backend.GetAppointments(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	if len(appts) > RecentLimit {
		appts = appts[:RecentLimit]
	}
	overview := Overview{Recent: appts}
	if stats != nil {
		overview.Stats = *stats
	}
	return overview, nil
}
