package auth

import "github.com/muhammadahmed9211/clinic-saas/internal/models"

type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Handler receives auth state changes. session is nil for EventSignedOut.
type Handler func(event Event, session *models.Session)

type subscription struct {
	id      int
	handler Handler
}

// OnAuthStateChange registers handler and returns a function that removes it.
// Handlers run synchronously on the goroutine that caused the change, in subscription order.
func (g *Gateway) OnAuthStateChange(handler Handler) func() {
	g.subMu.Lock()
	defer g.subMu.Unlock()

	g.nextID++
	id := g.nextID
	g.subs = append(g.subs, subscription{id: id, handler: handler})

	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

func (g *Gateway) emit(event Event, session *models.Session) {
	g.subMu.Lock()
	subs := make([]subscription, len(g.subs))
	copy(subs, g.subs)
	g.subMu.Unlock()

	g.log.Debug().Str("event", string(event)).Msg("auth state change")
	for _, s := range subs {
		s.handler(event, session)
	}
}
