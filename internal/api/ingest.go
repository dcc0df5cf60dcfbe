// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/store"
)

// IngestHandler accepts behavioral events and estimation records.
type IngestHandler struct {
	events  *events.Store
	sql     *store.SQLStore
	builder *model.Builder
}

// NewIngestHandler creates an ingestion handler.
func NewIngestHandler(eventStore *events.Store, sqlStore *store.SQLStore, builder *model.Builder) *IngestHandler {
	return &IngestHandler{
		events:  eventStore,
		sql:     sqlStore,
		builder: builder,
	}
}

// IngestEvent handles POST /v1/events.
//
// The raw JSON body is normalized in place before decoding: a missing id
// and timestamp are stamped, and received_at always records server time.
//
// Response:
//   - 202: Event accepted
//   - 400: Malformed or invalid event
func (h *IngestHandler) IngestEvent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to read request body: " + err.Error(),
		})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "request body is not valid JSON",
		})
		return
	}

	now := time.Now()
	if !gjson.GetBytes(body, "id").Exists() {
		body, _ = sjson.SetBytes(body, "id", uuid.NewString())
	}
	if !gjson.GetBytes(body, "timestamp").Exists() {
		body, _ = sjson.SetBytes(body, "timestamp", now.Format(time.RFC3339Nano))
	}
	body, _ = sjson.SetBytes(body, "received_at", now.Format(time.RFC3339Nano))

	var e events.Event
	if err := json.Unmarshal(body, &e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid event body: " + err.Error(),
		})
		return
	}

	if err := h.events.Append(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to store event: " + err.Error(),
		})
		return
	}

	// Suggestion outcomes are mirrored to the SQL projection so analytics
	// queries do not have to replay the event log.
	if h.sql != nil && e.Kind == events.KindSuggestionOutcome {
		sType := gjson.GetBytes(e.Payload, "suggestion_type").String()
		accepted := gjson.GetBytes(e.Payload, "accepted").Bool()
		if sType != "" {
			if err := h.sql.RecordSuggestionOutcome(c.Request.Context(), e.UserID, sType, accepted, e.Timestamp); err != nil {
				log.WithField("user", e.UserID).Warnf("Failed to mirror suggestion outcome: %v", err)
			}
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"id": e.ID})
}

// EstimationRequest is the body of POST /v1/estimations.
type EstimationRequest struct {
	UserID string `json:"user_id" binding:"required"`
	events.EstimationRecord
}

// IngestEstimation handles POST /v1/estimations.
//
// Records the estimate-vs-actual fact in the SQL store. With ?rebuild=true
// the user's model is rebuilt synchronously afterwards.
//
// Response:
//   - 201: Record stored
//   - 400: Invalid record
//   - 503: No persistent store configured
func (h *IngestHandler) IngestEstimation(c *gin.Context) {
	if h.sql == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "persistent store not configured",
		})
		return
	}

	var req EstimationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	if err := h.sql.AppendEstimationRecord(c.Request.Context(), req.UserID, &req.EstimationRecord); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if c.Query("rebuild") == "true" && h.builder != nil {
		if _, err := h.builder.Build(c.Request.Context(), req.UserID); err != nil {
			log.WithField("user", req.UserID).Warnf("Post-ingest rebuild failed: %v", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"task_id": req.TaskID})
}
