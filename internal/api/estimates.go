// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attunehq/attune/internal/calibrate"
	"github.com/attunehq/attune/internal/model"
)

// EstimateHandler serves calibrated time estimates.
type EstimateHandler struct {
	calibrator *calibrate.Calibrator
	models     *model.Store
}

// NewEstimateHandler creates an estimate handler.
func NewEstimateHandler(calibrator *calibrate.Calibrator, models *model.Store) *EstimateHandler {
	return &EstimateHandler{
		calibrator: calibrator,
		models:     models,
	}
}

// BatchRequest is the body of POST /v1/users/:user_id/estimate/batch.
type BatchRequest struct {
	Tasks []*calibrate.Task `json:"tasks" binding:"required"`
}

// Estimate handles POST /v1/users/:user_id/estimate.
//
// Response:
//   - 200: Calibrated prediction with confidence, range and factors
//   - 400: Invalid task
func (h *EstimateHandler) Estimate(c *gin.Context) {
	var task calibrate.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	m := h.models.Get(c.Param("user_id"))
	prediction, err := h.calibrator.Estimate(&task, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// EstimateBatch handles POST /v1/users/:user_id/estimate/batch.
//
// Response:
//   - 200: Total time prediction for the task set
//   - 400: Empty set or invalid task
func (h *EstimateHandler) EstimateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	m := h.models.Get(c.Param("user_id"))
	prediction, err := h.calibrator.TotalTime(req.Tasks, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// Advice handles POST /v1/users/:user_id/estimate/advice.
//
// Response:
//   - 200: Whether the user's own estimate looks off, and by how much
//   - 400: Invalid task
func (h *EstimateHandler) Advice(c *gin.Context) {
	var task calibrate.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	m := h.models.Get(c.Param("user_id"))
	advice, err := h.calibrator.SuggestBetterEstimate(&task, m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, advice)
}
