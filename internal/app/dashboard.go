package app

import (
	"context"

	"github.com/muhammadahmed9211/clinic-saas/internal/dashboard"
)

type DashboardController struct {
	controller
	backend dashboard.Backend
	Loading Loading
}

func (c *DashboardController) Load(ctx context.Context) (dashboard.Overview, bool) {
	user, err := c.currentUser()
	if err != nil {
		return dashboard.Overview{}, false
	}

	defer c.Loading.begin()()

	overview, err := dashboard.Load(ctx, c.backend, *user)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to fetch dashboard data")
		return dashboard.Overview{}, false
	}
	return overview, true
}
