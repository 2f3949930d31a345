// Package auth adapts the identity provider to the client's session lifecycle and
// keeps the device-stable user identifier in durable storage.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/identity"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/storage"
)

var ErrNoSession = errors.New("no active session")

// Provider is the identity provider surface the gateway depends on.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata models.UserMetadata) (*models.User, *models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	UpdateUser(ctx context.Context, accessToken string, update identity.UserUpdate) (*models.User, error)
	Recover(ctx context.Context, email, redirectTo string) error
}

// Profile is the extra sign-up information stored as user metadata.
type Profile struct {
	Name  string
	Phone string
	Role  models.UserRole
}

// AuthData is what a successful sign-in or sign-up yields. Session is nil when
// the provider still waits for email confirmation.
type AuthData struct {
	User    *models.User
	Session *models.Session
}

type Gateway struct {
	provider  Provider
	store     storage.Store
	appOrigin string
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	session *models.Session
	loaded  bool

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

func NewGateway(provider Provider, store storage.Store, appOrigin string, log zerolog.Logger) *Gateway {
	return &Gateway{
		provider:  provider,
		store:     store,
		appOrigin: strings.TrimSuffix(appOrigin, "/"),
		log:       log,
		now:       time.Now,
	}
}

func (g *Gateway) SignUp(ctx context.Context, email, password string, profile Profile) (*AuthData, error) {
	if profile.Role == "" {
		profile.Role = models.UserRolePatient
	}

	user, session, err := g.provider.SignUp(ctx, email, password, models.UserMetadata{
		Name:  profile.Name,
		Phone: profile.Phone,
		Role:  profile.Role,
	})
	if err != nil {
		return nil, err
	}

	// A pending account still replaces the signed-in one: the stable id must name the active session's user.
	if session == nil {
		if err := g.dropSession(ctx); err != nil {
			return nil, err
		}
	}
	if err := g.persistIdentity(ctx, user.ID); err != nil {
		return nil, err
	}
	if session != nil {
		if err := g.setSession(ctx, session); err != nil {
			return nil, err
		}
		g.emit(EventSignedIn, session)
	}

	g.log.Info().Str("user_id", user.ID).Bool("confirmed", session != nil).Msg("signed up")
	return &AuthData{User: user, Session: session}, nil
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*AuthData, error) {
	session, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := g.persistIdentity(ctx, session.User.ID); err != nil {
		return nil, err
	}
	if err := g.setSession(ctx, session); err != nil {
		return nil, err
	}
	g.emit(EventSignedIn, session)

	g.log.Info().Str("user_id", session.User.ID).Msg("signed in")
	user := session.User
	return &AuthData{User: &user, Session: session}, nil
}

// SignOut revokes the session remotely and always clears local state.
// The remote error, if any, is still returned.
func (g *Gateway) SignOut(ctx context.Context) error {
	session, loadErr := g.loadSession(ctx)

	var remoteErr error
	if session != nil {
		remoteErr = g.provider.SignOut(ctx, session.AccessToken)
		if remoteErr != nil {
			g.log.Warn().Err(remoteErr).Msg("remote sign out failed, clearing local session")
		}
	}

	localErr := g.clearLocal(ctx)
	g.emit(EventSignedOut, nil)

	if loadErr != nil {
		g.log.Warn().Err(loadErr).Msg("persisted session unreadable during sign out")
	}
	return errors.Join(remoteErr, localErr)
}

// GetSession returns the active session, restoring it from storage on first use.
// An expired session is refreshed; if the provider rejects the refresh the session is discarded.
func (g *Gateway) GetSession(ctx context.Context) (*models.Session, error) {
	session, err := g.loadSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	if !session.ExpiresWithin(g.now(), 0) {
		return session, nil
	}

	refreshed, err := g.RefreshSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh expired session: %w", err)
	}
	return refreshed, nil
}

func (g *Gateway) GetCurrentUser(ctx context.Context) (*models.User, error) {
	session, err := g.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	return g.provider.GetUser(ctx, session.AccessToken)
}

// ResetPassword emails a recovery link that lands on <app origin>/reset-password.
func (g *Gateway) ResetPassword(ctx context.Context, email string) error {
	return g.provider.Recover(ctx, email, g.appOrigin+"/reset-password")
}

// RecoverSession installs the session carried by a password recovery link so the
// password can then be changed with UpdatePassword.
func (g *Gateway) RecoverSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	user, err := g.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		User:         *user,
	}
	if err := g.persistIdentity(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := g.setSession(ctx, session); err != nil {
		return nil, err
	}
	g.emit(EventPasswordRecovery, session)
	return session, nil
}

func (g *Gateway) UpdatePassword(ctx context.Context, password string) (*models.User, error) {
	return g.updateUser(ctx, identity.UserUpdate{Password: password})
}

// UpdateProfile replaces the metadata kept by the identity provider.
func (g *Gateway) UpdateProfile(ctx context.Context, metadata models.UserMetadata) (*models.User, error) {
	return g.updateUser(ctx, identity.UserUpdate{Data: &metadata})
}

func (g *Gateway) updateUser(ctx context.Context, update identity.UserUpdate) (*models.User, error) {
	session, err := g.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	user, err := g.provider.UpdateUser(ctx, session.AccessToken, update)
	if err != nil {
		return nil, err
	}

	next := *session
	next.User = *user
	if err := g.setSession(ctx, &next); err != nil {
		return nil, err
	}
	g.emit(EventUserUpdated, &next)
	return user, nil
}

// RefreshSession exchanges the refresh token for a new session. A provider rejection
// invalidates the session locally; transport failures leave it in place.
func (g *Gateway) RefreshSession(ctx context.Context) (*models.Session, error) {
	session, err := g.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.RefreshToken == "" {
		return nil, ErrNoSession
	}

	refreshed, err := g.provider.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		var rejected *identity.Error
		if errors.As(err, &rejected) {
			g.log.Warn().Err(err).Msg("refresh rejected, discarding session")
			if clearErr := g.clearLocal(ctx); clearErr != nil {
				g.log.Error().Err(clearErr).Msg("clear local session failed")
			}
			g.emit(EventSignedOut, nil)
		}
		return nil, err
	}
	if refreshed.User.ID == "" {
		refreshed.User = session.User
	}

	if err := g.setSession(ctx, refreshed); err != nil {
		return nil, err
	}
	g.emit(EventTokenRefreshed, refreshed)
	return refreshed, nil
}

// StableID returns the persisted user identifier, if any.
func (g *Gateway) StableID(ctx context.Context) (string, bool) {
	id, err := g.store.Get(ctx, storage.KeyUserUUID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.log.Warn().Err(err).Msg("read stable id failed")
		}
		return "", false
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// loadSession returns the cached session, reading storage once per process.
func (g *Gateway) loadSession(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	if g.loaded {
		session := g.session
		g.mu.Unlock()
		return session, nil
	}
	g.mu.Unlock()

	raw, err := g.store.Get(ctx, storage.KeySession)
	var session *models.Session
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read persisted session: %w", err)
	default:
		var restored models.Session
		if err := json.Unmarshal([]byte(raw), &restored); err != nil {
			g.log.Warn().Err(err).Msg("discarding unreadable persisted session")
		} else {
			session = &restored
		}
	}

	g.mu.Lock()
	first := !g.loaded
	if first {
		g.session = session
		g.loaded = true
	} else {
		session = g.session
	}
	g.mu.Unlock()

	if first {
		g.emit(EventInitialSession, session)
	}
	return session, nil
}

func (g *Gateway) setSession(ctx context.Context, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := g.store.Set(ctx, storage.KeySession, string(raw)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	g.mu.Lock()
	g.session = session
	g.loaded = true
	g.mu.Unlock()
	return nil
}

func (g *Gateway) persistIdentity(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("identity provider returned no user id")
	}
	if err := g.store.Set(ctx, storage.KeyUserUUID, userID); err != nil {
		return fmt.Errorf("persist stable id: %w", err)
	}
	return nil
}

// dropSession forgets the active session and, if there was one, announces the sign-out.
func (g *Gateway) dropSession(ctx context.Context) error {
	previous, err := g.loadSession(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.session = nil
	g.loaded = true
	g.mu.Unlock()

	if err := g.store.Remove(ctx, storage.KeySession); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if previous != nil {
		g.emit(EventSignedOut, nil)
	}
	return nil
}

func (g *Gateway) clearLocal(ctx context.Context) error {
	g.mu.Lock()
	g.session = nil
	g.loaded = true
	g.mu.Unlock()

	return errors.Join(
		g.store.Remove(ctx, storage.KeyUserUUID),
		g.store.Remove(ctx, storage.KeySession),
	)
}
