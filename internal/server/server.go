package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/config"
	"github.com/muhammadahmed9211/clinic-saas/internal/handlers"
	"github.com/muhammadahmed9211/clinic-saas/internal/middleware"
)

// CallbackServer is the loopback listener the payment gateway redirects back to.
type CallbackServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

func NewCallbackServer(cfg *config.AppConfig, log zerolog.Logger, handlerSet handlers.HandlerSet) *CallbackServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS([]string{cfg.AppOrigin}),
	)

	handlerSet.Register(engine)

	srv := &http.Server{
		Addr:         cfg.CallbackAddress(),
		Handler:      engine,
		ReadTimeout:  cfg.Callback.ReadTimeout,
		WriteTimeout: cfg.Callback.WriteTimeout,
		IdleTimeout:  cfg.Callback.IdleTimeout,
	}

	return &CallbackServer{
		engine: engine,
		server: srv,
		log:    log,
	}
}

// Handler exposes the routes without binding a socket.
func (s *CallbackServer) Handler() http.Handler {
	return s.engine
}

// Listen binds the address so a port clash is reported before the user is sent to the gateway.
func (s *CallbackServer) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return ln, nil
}

func (s *CallbackServer) Serve(ln net.Listener) error {
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Msg("callback listener starting")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *CallbackServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("callback listener shutting down")
	return s.server.Shutdown(ctx)
}
