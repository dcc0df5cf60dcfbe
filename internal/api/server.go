// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the personalization engine over HTTP: event and
// estimation ingestion, model reads and lifecycle, calibrated estimates,
// and suggestion/notification adaptation.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attunehq/attune/internal/calibrate"
	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/notify"
	"github.com/attunehq/attune/internal/store"
	"github.com/attunehq/attune/internal/suggest"
)

// Server wires the engine components behind the HTTP API.
type Server struct {
	cfg         *config.Config
	events      *events.Store
	models      *model.Store
	builder     *model.Builder
	calibrator  *calibrate.Calibrator
	suggestions *suggest.Adapter
	scheduler   *notify.Scheduler
	sql         *store.SQLStore // nil when running without a database

	engine *gin.Engine
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	cfg *config.Config,
	eventStore *events.Store,
	models *model.Store,
	builder *model.Builder,
	calibrator *calibrate.Calibrator,
	suggestions *suggest.Adapter,
	scheduler *notify.Scheduler,
	sqlStore *store.SQLStore,
) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:         cfg,
		events:      eventStore,
		models:      models,
		builder:     builder,
		calibrator:  calibrator,
		suggestions: suggestions,
		scheduler:   scheduler,
		sql:         sqlStore,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)
	s.engine = engine
	return s
}

// Handler returns the HTTP handler for serving or testing.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ingest := NewIngestHandler(s.events, s.sql, s.builder)
	models := NewModelHandler(s.models, s.builder, s.sql)
	estimates := NewEstimateHandler(s.calibrator, s.models)
	adapt := NewAdaptHandler(s.cfg.Notifications, s.suggestions, s.scheduler, s.models, s.sql)

	v1 := r.Group("/v1")
	{
		v1.POST("/events", ingest.IngestEvent)
		v1.POST("/estimations", ingest.IngestEstimation)

		users := v1.Group("/users/:user_id")
		{
			users.GET("/model", models.GetModel)
			users.POST("/model/rebuild", models.RebuildModel)
			users.DELETE("/model", models.ResetModel)

			users.POST("/estimate", estimates.Estimate)
			users.POST("/estimate/batch", estimates.EstimateBatch)
			users.POST("/estimate/advice", estimates.Advice)

			users.POST("/suggestions", adapt.AdaptSuggestions)
			users.GET("/suggestions/analytics", adapt.SuggestionAnalytics)

			users.POST("/notifications", adapt.AdaptNotification)
			users.POST("/notifications/digest", adapt.ComposeDigest)
			users.GET("/notifications/frequency", adapt.Frequency)
			users.GET("/notifications/limit", adapt.LimitStatus)
		}
	}
}
