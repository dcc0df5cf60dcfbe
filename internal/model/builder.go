package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
)

// ErrEventStoreUnavailable signals that a rebuild could not read the event
// log. The previous snapshot stays in place; callers may retry later.
var ErrEventStoreUnavailable = errors.New("event store unavailable")

// EventSource supplies the behavioral events a rebuild folds in.
type EventSource interface {
	GetEvents(userID string, since time.Time) ([]*events.Event, error)
}

// RecordSource supplies estimation records and the set of known users.
type RecordSource interface {
	EstimationRecords(ctx context.Context, userID string, since time.Time) ([]*events.EstimationRecord, error)
	KnownUsers(ctx context.Context) ([]string, error)
}

// Builder recomputes user models from raw history, on demand or on a
// background schedule.
type Builder struct {
	cfg     *config.ModelConfig
	events  EventSource
	records RecordSource
	store   *Store

	// Per-user build serialization. Builds are deterministic from the same
	// inputs, so last-writer-wins is safe; the lock only prevents wasted
	// duplicate work and interleaved store swaps.
	buildMu sync.Mutex
	inUser  map[string]*sync.Mutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBuilder creates a model builder.
func NewBuilder(cfg *config.ModelConfig, ev EventSource, rec RecordSource, store *Store) (*Builder, error) {
	if cfg == nil {
		def := config.DefaultConfig().Model
		cfg = &def
	}
	if ev == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("model store is required")
	}

	return &Builder{
		cfg:      cfg,
		events:   ev,
		records:  rec,
		store:    store,
		inUser:   make(map[string]*sync.Mutex),
		stopChan: make(chan struct{}),
	}, nil
}

// Start starts the background rebuild routine.
func (b *Builder) Start() {
	interval, err := time.ParseDuration(b.cfg.RebuildInterval)
	if err != nil || interval <= 0 {
		log.Warnf("Invalid rebuild interval '%s', defaulting to 24h", b.cfg.RebuildInterval)
		interval = 24 * time.Hour
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.BuildAll(context.Background())
			}
		}
	}()

	log.Info("Model builder started")
}

// Stop stops the background rebuild routine.
func (b *Builder) Stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
}

// BuildAll rebuilds models for every known user. Individual failures are
// logged and skipped; one bad user must not starve the rest.
func (b *Builder) BuildAll(ctx context.Context) {
	if b.records == nil {
		return
	}

	users, err := b.records.KnownUsers(ctx)
	if err != nil {
		log.Warnf("Model rebuild skipped, cannot list users: %v", err)
		return
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if _, err := b.Build(ctx, userID); err != nil {
			log.WithField("user", userID).Warnf("Model rebuild failed: %v", err)
		}
	}
}

// Build recomputes the model for one user and atomically replaces the
// stored snapshot. The computation is deterministic given the same event
// set. If the event store cannot be read, the previous snapshot is
// returned together with ErrEventStoreUnavailable. A cancelled context
// aborts before the swap, leaving the previous snapshot in place.
func (b *Builder) Build(ctx context.Context, userID string) (*UserModel, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	lock := b.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	eventsSince := now.AddDate(0, 0, -b.cfg.EventLookbackDays)
	recordsSince := now.AddDate(0, 0, -b.cfg.EstimationLookbackDays)
	contextSince := now.AddDate(0, 0, -b.cfg.ContextLookbackDays)

	history, err := b.events.GetEvents(userID, eventsSince)
	if err != nil {
		log.WithField("user", userID).Warnf("Event store read failed, keeping previous model: %v", err)
		return b.store.Get(userID), fmt.Errorf("%w: %v", ErrEventStoreUnavailable, err)
	}

	var records []*events.EstimationRecord
	if b.records != nil {
		records, err = b.records.EstimationRecords(ctx, userID, recordsSince)
		if err != nil {
			// Degrade to event-only statistics rather than failing the build.
			log.WithField("user", userID).Warnf("Estimation records unavailable: %v", err)
			records = nil
		}
	}

	m := &UserModel{
		UserID:      userID,
		LastUpdated: now,
		SamplesUsed: len(history) + len(records),
	}
	m.Productivity = buildProductivity(history, records)
	m.Estimation = buildEstimation(records, b.cfg.MinSamplesPerStat)
	m.Preferences = buildPreferences(history, b.cfg.MinSamplesPerStat)
	m.ContextHistory = buildContextHistory(records, contextSince)
	m.Estimation.ImprovementSuggestions = improvementSuggestions(&m.Estimation)
	m.OverallConfidence = CalculateModelConfidence(m.SamplesUsed)

	if ctx.Err() != nil {
		return b.store.Get(userID), ctx.Err()
	}

	b.store.Replace(m)
	log.WithField("user", userID).Debugf("Rebuilt model from %d samples (confidence %.2f)",
		m.SamplesUsed, m.OverallConfidence)
	return m, nil
}

func (b *Builder) userLock(userID string) *sync.Mutex {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	lock, ok := b.inUser[userID]
	if !ok {
		lock = &sync.Mutex{}
		b.inUser[userID] = lock
	}
	return lock
}
