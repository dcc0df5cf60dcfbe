// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/store"
)

// defaultProjectionTop is how many peak hours/days a model read returns
// unless the caller asks for more.
const defaultProjectionTop = 3

// ModelHandler serves model reads and lifecycle operations.
type ModelHandler struct {
	models  *model.Store
	builder *model.Builder
	sql     *store.SQLStore
}

// NewModelHandler creates a model handler.
func NewModelHandler(models *model.Store, builder *model.Builder, sqlStore *store.SQLStore) *ModelHandler {
	return &ModelHandler{
		models:  models,
		builder: builder,
		sql:     sqlStore,
	}
}

// GetModel handles GET /v1/users/:user_id/model.
//
// Returns the analytics projection of the current snapshot: top peak
// hours/days, estimation summary and preference summary.
//
// Query Parameters:
//   - top: How many peak hours/days to include (default: 3)
//
// Response:
//   - 200: Projection of the current model
//   - 400: Missing user id
func (h *ModelHandler) GetModel(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	top := defaultProjectionTop
	if topStr := c.Query("top"); topStr != "" {
		if parsed, err := strconv.Atoi(topStr); err == nil && parsed > 0 {
			top = parsed
		}
	}

	m := h.models.Get(userID)
	c.JSON(http.StatusOK, model.Project(m, top))
}

// RebuildModel handles POST /v1/users/:user_id/model/rebuild.
//
// Response:
//   - 200: Model rebuilt
//   - 503: Event store unreadable; the previous snapshot stays in place
func (h *ModelHandler) RebuildModel(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	m, err := h.builder.Build(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrEventStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "event store unavailable, previous model retained",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":            m.UserID,
		"samples_used":       m.SamplesUsed,
		"overall_confidence": m.OverallConfidence,
		"last_updated":       m.LastUpdated,
	})
}

// ResetModel handles DELETE /v1/users/:user_id/model.
//
// Drops the in-memory snapshot and the persisted row. The event log is
// untouched; the next rebuild recreates the model from raw history.
func (h *ModelHandler) ResetModel(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	h.models.Reset(userID)
	if h.sql != nil {
		if err := h.sql.DeleteUserModel(c.Request.Context(), userID); err != nil {
			log.WithField("user", userID).Warnf("Failed to delete persisted model: %v", err)
		}
	}

	c.Status(http.StatusNoContent)
}
