package app

import (
	"context"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

type ProfileController struct {
	controller
	backend interface {
		UpdateProfile(ctx context.Context, userID string, profile models.UserMetadata) (map[string]any, error)
	}
	account Account
	Loading Loading
}

// Update writes the profile to the backend, then to the identity provider's metadata,
// which is what the session store and the dashboard role read.
func (c *ProfileController) Update(ctx context.Context, name, phone string) bool {
	user, err := c.currentUser()
	if err != nil {
		return false
	}
	if name == "" && phone == "" {
		c.notes.Error(validate.MsgFillAllFields)
		return false
	}

	defer c.Loading.begin()()

	profile := user.UserMetadata
	if name != "" {
		profile.Name = name
	}
	if phone != "" {
		profile.Phone = phone
	}
	if _, err := c.backend.UpdateProfile(ctx, user.ID, profile); err != nil {
		c.notes.Error(orDefault(err.Error(), "Failed to update profile"))
		return false
	}
	if _, err := c.account.UpdateProfile(ctx, profile); err != nil {
		c.log.Error().Err(err).Str("user_id", user.ID).Msg("identity metadata update failed")
		c.notes.Error(orDefault(err.Error(), "Failed to update profile"))
		return false
	}
	c.notes.Success("Profile updated successfully!")
	return true
}
