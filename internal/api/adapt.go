// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/notify"
	"github.com/attunehq/attune/internal/store"
	"github.com/attunehq/attune/internal/suggest"
)

// AdaptHandler serves suggestion and notification adaptation.
type AdaptHandler struct {
	defaults    config.NotificationsConfig
	suggestions *suggest.Adapter
	scheduler   *notify.Scheduler
	models      *model.Store
	sql         *store.SQLStore
}

// NewAdaptHandler creates an adaptation handler.
func NewAdaptHandler(
	defaults config.NotificationsConfig,
	suggestions *suggest.Adapter,
	scheduler *notify.Scheduler,
	models *model.Store,
	sqlStore *store.SQLStore,
) *AdaptHandler {
	return &AdaptHandler{
		defaults:    defaults,
		suggestions: suggestions,
		scheduler:   scheduler,
		models:      models,
		sql:         sqlStore,
	}
}

// SuggestionsRequest is the body of POST /v1/users/:user_id/suggestions.
type SuggestionsRequest struct {
	Suggestions []*suggest.Suggestion `json:"suggestions" binding:"required"`
}

// DigestRequest is the body of POST /v1/users/:user_id/notifications/digest.
type DigestRequest struct {
	Notifications []*notify.Notification `json:"notifications" binding:"required"`
}

// AdaptSuggestions handles POST /v1/users/:user_id/suggestions.
//
// Filters, times, prioritizes and rephrases a batch of candidate
// suggestions against the user's model.
//
// Response:
//   - 200: Adapted suggestions, best predicted acceptance first
//   - 400: Invalid suggestion in the batch
func (h *AdaptHandler) AdaptSuggestions(c *gin.Context) {
	var req SuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	m := h.models.Get(c.Param("user_id"))
	adapted, err := h.suggestions.Adapt(req.Suggestions, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": adapted})
}

// AdaptNotification handles POST /v1/users/:user_id/notifications.
//
// Decides skip/deliver, channel, timing and grouping for one candidate
// notification. Immediate deliveries consume one slot of the user's rate
// budget; an exhausted budget turns the decision into a rate-limit skip.
//
// Response:
//   - 200: The delivery decision
//   - 400: Invalid notification
func (h *AdaptHandler) AdaptNotification(c *gin.Context) {
	var n notify.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	n.UserID = c.Param("user_id")

	m := h.models.Get(n.UserID)
	adapted, err := h.scheduler.Adapt(c.Request.Context(), &n, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deliverNow := !adapted.Skip && adapted.DeliverAt == nil
	if deliverNow && !h.scheduler.TrySend(n.UserID, m) {
		adapted = &notify.Adapted{Skip: true, Reason: notify.ReasonRateLimited}
		deliverNow = false
	}

	if h.sql != nil && !adapted.Skip {
		status := store.StatusPending
		if deliverNow {
			status = store.StatusSent
		}
		row := &store.SentNotification{
			ID:       n.ID,
			UserID:   n.UserID,
			Type:     n.Type,
			Priority: n.Priority,
			Status:   status,
		}
		if err := h.sql.RecordNotification(c.Request.Context(), row); err != nil {
			log.WithField("user", n.UserID).Warnf("Failed to record notification delivery: %v", err)
		}
	}

	c.JSON(http.StatusOK, adapted)
}

// ComposeDigest handles POST /v1/users/:user_id/notifications/digest.
//
// Response:
//   - 200: One digest message summarizing the batch
//   - 400: Empty or invalid batch
func (h *AdaptHandler) ComposeDigest(c *gin.Context) {
	var req DigestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	m := h.models.Get(c.Param("user_id"))
	digest, err := h.scheduler.ComposeDigest(req.Notifications, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, digest)
}

// Frequency handles GET /v1/users/:user_id/notifications/frequency.
func (h *AdaptHandler) Frequency(c *gin.Context) {
	m := h.models.Get(c.Param("user_id"))
	c.JSON(http.StatusOK, notify.OptimalFrequency(m, h.defaults))
}

// LimitStatus handles GET /v1/users/:user_id/notifications/limit.
func (h *AdaptHandler) LimitStatus(c *gin.Context) {
	userID := c.Param("user_id")
	m := h.models.Get(userID)
	c.JSON(http.StatusOK, h.scheduler.HasReachedLimit(userID, m))
}

// SuggestionAnalytics handles GET /v1/users/:user_id/suggestions/analytics.
//
// Returns per-type acceptance counts from the SQL projection.
//
// Response:
//   - 200: Acceptance stats per suggestion type
//   - 503: No persistent store configured
func (h *AdaptHandler) SuggestionAnalytics(c *gin.Context) {
	if h.sql == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "persistent store not configured",
		})
		return
	}

	stats, err := h.sql.SuggestionAcceptance(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type typeStats struct {
		Accepted int     `json:"accepted"`
		Total    int     `json:"total"`
		Rate     float64 `json:"rate"`
	}
	out := make(map[string]typeStats, len(stats))
	for sType, counts := range stats {
		ts := typeStats{Accepted: counts[0], Total: counts[1]}
		if ts.Total > 0 {
			ts.Rate = float64(ts.Accepted) / float64(ts.Total)
		}
		out[sType] = ts
	}
	c.JSON(http.StatusOK, gin.H{"types": out})
}
