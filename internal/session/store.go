// Package session is the process-wide record of who is signed in.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/auth"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

// Gateway is the part of auth.Gateway the store drives.
type Gateway interface {
	GetSession(ctx context.Context) (*models.Session, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.AuthData, error)
	SignUp(ctx context.Context, email, password string, profile auth.Profile) (*auth.AuthData, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(handler auth.Handler) func()
}

// State is an immutable snapshot. Ready turns true once Initialize has finished.
type State struct {
	User    *models.User
	Session *models.Session
	Ready   bool
}

// Result is the outcome reported to callers; operations never return Go errors.
type Result struct {
	Success bool
	Error   string
}

type Store struct {
	gateway Gateway
	log     zerolog.Logger

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	order  []int
	nextID int

	unsubscribeGateway func()
}

func New(gateway Gateway, log zerolog.Logger) *Store {
	s := &Store{
		gateway: gateway,
		log:     log,
		subs:    make(map[int]func(State)),
	}
	s.unsubscribeGateway = gateway.OnAuthStateChange(s.onAuthEvent)
	return s
}

func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new snapshot.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close detaches the store from gateway events.
func (s *Store) Close() {
	if s.unsubscribeGateway != nil {
		s.unsubscribeGateway()
	}
}

// Initialize restores any existing session. It always ends with Ready set.
func (s *Store) Initialize(ctx context.Context) {
	session, err := s.gateway.GetSession(ctx)
	if err != nil || session == nil {
		if err != nil {
			s.log.Warn().Err(err).Msg("restore session failed")
		}
		s.set(State{Ready: true})
		return
	}

	user, err := s.gateway.GetCurrentUser(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch current user failed")
		s.set(State{Ready: true})
		return
	}

	s.set(State{User: user, Session: session, Ready: true})
}

func (s *Store) SignIn(ctx context.Context, email, password string) Result {
	data, err := s.gateway.SignIn(ctx, email, password)
	if err != nil {
		return failure(err)
	}
	s.set(State{User: data.User, Session: data.Session, Ready: true})
	return Result{Success: true}
}

func (s *Store) SignUp(ctx context.Context, email, password string, profile auth.Profile) Result {
	if profile.Role == "" {
		profile.Role = models.UserRolePatient
	}
	data, err := s.gateway.SignUp(ctx, email, password, profile)
	if err != nil {
		return failure(err)
	}
	// Session is nil while the account awaits confirmation; nobody is signed in then.
	s.set(State{User: data.User, Session: data.Session, Ready: true})
	return Result{Success: true}
}

// SignOut is best-effort remotely; local state is always cleared.
func (s *Store) SignOut(ctx context.Context) Result {
	err := s.gateway.SignOut(ctx)
	s.set(State{Ready: true})
	if err != nil {
		s.log.Warn().Err(err).Msg("sign out completed locally only")
		return failure(err)
	}
	return Result{Success: true}
}

func (s *Store) onAuthEvent(event auth.Event, session *models.Session) {
	switch event {
	case auth.EventSignedOut:
		s.set(State{Ready: s.Get().Ready})
	case auth.EventTokenRefreshed, auth.EventUserUpdated, auth.EventPasswordRecovery:
		if session == nil {
			return
		}
		user := session.User
		s.set(State{User: &user, Session: session, Ready: s.Get().Ready})
	}
}

// set replaces the snapshot and notifies subscribers outside the lock.
func (s *Store) set(next State) {
	s.mu.Lock()
	s.state = next
	fns := make([]func(State), 0, len(s.subs))
	live := s.order[:0:0]
	for _, id := range s.order {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
			live = append(live, id)
		}
	}
	s.order = live
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

func failure(err error) Result {
	msg := err.Error()
	if msg == "" {
		msg = "An error occurred"
	}
	return Result{Success: false, Error: msg}
}
