package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/config"
	"github.com/muhammadahmed9211/clinic-saas/internal/metrics"
	"github.com/muhammadahmed9211/clinic-saas/internal/storage"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	store    storage.Store
	metrics  *metrics.Metrics
	landings *Landings
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, store storage.Store, m *metrics.Metrics, landings *Landings) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		store:    store,
		metrics:  m,
		landings: landings,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/healthz", h.Health)
	router.GET("/payment-success", h.PaymentSuccess)
	router.GET("/payment-cancel", h.PaymentCancel)
	router.GET("/api/landing", h.LastLanding)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}
