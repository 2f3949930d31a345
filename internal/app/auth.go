package app

import (
	"context"

	"github.com/muhammadahmed9211/clinic-saas/internal/auth"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

type AuthController struct {
	controller
	account Account
	Loading Loading
}

func (c *AuthController) Login(ctx context.Context, form validate.LoginForm) bool {
	if err := validate.Login(form); err != nil {
		c.notes.Error(err.Error())
		return false
	}

	defer c.Loading.begin()()

	res := c.session.SignIn(ctx, form.Email, form.Password)
	if !res.Success {
		c.notes.Error(orDefault(res.Error, "Failed to sign in. Please check your credentials."))
		return false
	}
	c.notes.Success("Successfully signed in!")
	return true
}

// Register always creates patient accounts.
func (c *AuthController) Register(ctx context.Context, form validate.RegisterForm) bool {
	if err := validate.Register(form); err != nil {
		c.notes.Error(err.Error())
		return false
	}

	defer c.Loading.begin()()

	res := c.session.SignUp(ctx, form.Email, form.Password, auth.Profile{
		Name:  form.Name,
		Phone: form.Phone,
		Role:  models.UserRolePatient,
	})
	if !res.Success {
		c.notes.Error(orDefault(res.Error, "Failed to create account. Please try again."))
		return false
	}
	c.notes.Success("Account created successfully! Please check your email to verify.")
	return true
}

// Logout always ends signed out locally, even when the provider is unreachable.
func (c *AuthController) Logout(ctx context.Context) {
	defer c.Loading.begin()()

	if res := c.session.SignOut(ctx); !res.Success {
		c.log.Warn().Str("error", res.Error).Msg("remote sign out failed")
	}
	c.notes.Info("Signed out")
}

func (c *AuthController) ResetPassword(ctx context.Context, email string) bool {
	if email == "" {
		c.notes.Error(validate.MsgFillAllFields)
		return false
	}

	defer c.Loading.begin()()

	if err := c.account.ResetPassword(ctx, email); err != nil {
		c.notes.Error(orDefault(err.Error(), "Failed to send reset email"))
		return false
	}
	c.notes.Success("Password reset email sent! Please check your inbox.")
	return true
}

// Recover signs in with the tokens of a password recovery link so UpdatePassword
// can run without the old password.
func (c *AuthController) Recover(ctx context.Context, accessToken, refreshToken string) bool {
	if accessToken == "" {
		c.notes.Error(validate.MsgFillAllFields)
		return false
	}

	defer c.Loading.begin()()

	if _, err := c.account.RecoverSession(ctx, accessToken, refreshToken); err != nil {
		c.notes.Error(orDefault(err.Error(), "Invalid or expired recovery link"))
		return false
	}
	c.notes.Success("Recovery link accepted. Please set a new password.")
	return true
}

func (c *AuthController) UpdatePassword(ctx context.Context, form validate.PasswordForm) bool {
	if err := validate.Password(form); err != nil {
		c.notes.Error(err.Error())
		return false
	}

	defer c.Loading.begin()()

	if _, err := c.account.UpdatePassword(ctx, form.Password); err != nil {
		c.notes.Error(orDefault(err.Error(), "Failed to update password"))
		return false
	}
	c.notes.Success("Password updated successfully!")
	return true
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
