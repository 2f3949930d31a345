package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muhammadahmed9211/clinic-saas/internal/storage"
)

type healthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storageStatus := "ok"
	if h.store == nil {
		storageStatus = "none"
	} else if _, err := h.store.Get(ctx, storage.KeyUserUUID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		storageStatus = "error"
		h.log.Error().Err(err).Msg("storage check failed")
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Storage:     storageStatus,
		Environment: h.cfg.Environment,
	})
}
