package model

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
)

type mockEventSource struct {
	mock.Mock
}

func (m *mockEventSource) GetEvents(userID string, since time.Time) ([]*events.Event, error) {
	args := m.Called(userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*events.Event), args.Error(1)
}

type mockRecordSource struct {
	mock.Mock
}

func (m *mockRecordSource) EstimationRecords(ctx context.Context, userID string, since time.Time) ([]*events.EstimationRecord, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*events.EstimationRecord), args.Error(1)
}

func (m *mockRecordSource) KnownUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func builderConfig() *config.ModelConfig {
	cfg := config.DefaultConfig().Model
	return &cfg
}

func TestNewBuilder_Validation(t *testing.T) {
	store := NewStore(nil)
	ev := &mockEventSource{}

	_, err := NewBuilder(builderConfig(), nil, nil, store)
	assert.Error(t, err)

	_, err = NewBuilder(builderConfig(), ev, nil, nil)
	assert.Error(t, err)

	b, err := NewBuilder(nil, ev, nil, store)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestBuild_FoldsHistoryIntoSnapshot(t *testing.T) {
	ev := &mockEventSource{}
	rec := &mockRecordSource{}
	store := NewStore(nil)

	history := []*events.Event{
		completion(wednesday, 9, true),
		completion(wednesday, 9, true),
	}
	records := []*events.EstimationRecord{
		record("coding", "medium", 30, 60),
		record("coding", "medium", 30, 60),
		record("coding", "medium", 30, 60),
	}

	ev.On("GetEvents", "alice", mock.Anything).Return(history, nil)
	rec.On("EstimationRecords", mock.Anything, "alice", mock.Anything).Return(records, nil)

	b, err := NewBuilder(builderConfig(), ev, rec, store)
	require.NoError(t, err)

	m, err := b.Build(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", m.UserID)
	assert.Equal(t, 5, m.SamplesUsed)
	assert.False(t, m.LastUpdated.IsZero())
	assert.InDelta(t, 1.0, m.Productivity.HourlyScores[9], 1e-9)
	assert.InDelta(t, 0.5, m.Estimation.ByTaskType["coding"].Accuracy, 1e-9)
	assert.Greater(t, m.OverallConfidence, 0.1)

	// The snapshot is published to the store.
	assert.Same(t, m, store.Get("alice"))
}

func TestBuild_EmptyUserID(t *testing.T) {
	ev := &mockEventSource{}
	b, err := NewBuilder(builderConfig(), ev, nil, NewStore(nil))
	require.NoError(t, err)

	_, err = b.Build(context.Background(), "")
	assert.Error(t, err)
}

func TestBuild_EventStoreFailureKeepsPreviousSnapshot(t *testing.T) {
	ev := &mockEventSource{}
	store := NewStore(nil)

	previous := DefaultModel("alice")
	previous.SamplesUsed = 42
	store.Replace(previous)

	ev.On("GetEvents", "alice", mock.Anything).Return(nil, fmt.Errorf("disk gone"))

	b, err := NewBuilder(builderConfig(), ev, nil, store)
	require.NoError(t, err)

	m, err := b.Build(context.Background(), "alice")
	require.ErrorIs(t, err, ErrEventStoreUnavailable)
	assert.Same(t, previous, m)
	assert.Same(t, previous, store.Get("alice"))
}

func TestBuild_RecordFailureDegradesToEventsOnly(t *testing.T) {
	ev := &mockEventSource{}
	rec := &mockRecordSource{}
	store := NewStore(nil)

	ev.On("GetEvents", "alice", mock.Anything).Return([]*events.Event{
		completion(wednesday, 9, true),
	}, nil)
	rec.On("EstimationRecords", mock.Anything, "alice", mock.Anything).Return(nil, fmt.Errorf("db down"))

	b, err := NewBuilder(builderConfig(), ev, rec, store)
	require.NoError(t, err)

	m, err := b.Build(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, m.SamplesUsed)
	assert.InDelta(t, 1.0, m.Estimation.GlobalAccuracy, 1e-9)
}

func TestBuild_CancelledContextLeavesSnapshot(t *testing.T) {
	ev := &mockEventSource{}
	store := NewStore(nil)

	previous := DefaultModel("alice")
	store.Replace(previous)

	ev.On("GetEvents", "alice", mock.Anything).Return([]*events.Event{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBuilder(builderConfig(), ev, nil, store)
	require.NoError(t, err)

	_, err = b.Build(ctx, "alice")
	require.Error(t, err)
	assert.Same(t, previous, store.Get("alice"))
}

func TestBuildAll_SkipsFailingUsers(t *testing.T) {
	ev := &mockEventSource{}
	rec := &mockRecordSource{}
	store := NewStore(nil)

	rec.On("KnownUsers", mock.Anything).Return([]string{"alice", "bob"}, nil)
	ev.On("GetEvents", "alice", mock.Anything).Return(nil, fmt.Errorf("boom"))
	ev.On("GetEvents", "bob", mock.Anything).Return([]*events.Event{}, nil)
	rec.On("EstimationRecords", mock.Anything, "bob", mock.Anything).Return(nil, nil)

	b, err := NewBuilder(builderConfig(), ev, rec, store)
	require.NoError(t, err)

	b.BuildAll(context.Background())

	// bob's model was still rebuilt despite alice failing.
	assert.False(t, store.Get("bob").LastUpdated.IsZero())
	ev.AssertExpectations(t)
}

type mockPersistence struct {
	mock.Mock
}

func (m *mockPersistence) SaveUserModel(ctx context.Context, um *UserModel) error {
	return m.Called(ctx, um).Error(0)
}

func (m *mockPersistence) LoadUserModel(ctx context.Context, userID string) (*UserModel, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserModel), args.Error(1)
}

func TestStore_GetDefaultsWithoutPersistence(t *testing.T) {
	store := NewStore(nil)

	m := store.Get("alice")
	require.NotNil(t, m)
	assert.Equal(t, "alice", m.UserID)
	assert.Equal(t, 0, m.SamplesUsed)

	// The lazily-created default is cached.
	assert.Same(t, m, store.Get("alice"))
}

func TestStore_GetLoadsFromPersistence(t *testing.T) {
	persist := &mockPersistence{}
	saved := DefaultModel("alice")
	saved.SamplesUsed = 7
	persist.On("LoadUserModel", mock.Anything, "alice").Return(saved, nil).Once()

	store := NewStore(persist)
	assert.Same(t, saved, store.Get("alice"))
	// Second read hits the in-memory snapshot, not the database.
	assert.Same(t, saved, store.Get("alice"))
	persist.AssertExpectations(t)
}

func TestStore_GetDegradesOnLoadFailure(t *testing.T) {
	persist := &mockPersistence{}
	persist.On("LoadUserModel", mock.Anything, "alice").Return(nil, fmt.Errorf("db down"))

	store := NewStore(persist)
	m := store.Get("alice")
	require.NotNil(t, m)
	assert.Equal(t, 0, m.SamplesUsed)
}

func TestStore_ReplacePersists(t *testing.T) {
	persist := &mockPersistence{}
	m := DefaultModel("alice")
	persist.On("SaveUserModel", mock.Anything, m).Return(nil).Once()

	store := NewStore(persist)
	store.Replace(m)

	assert.Same(t, m, store.Get("alice"))
	persist.AssertExpectations(t)
}

func TestStore_ReplaceSurvivesPersistFailure(t *testing.T) {
	persist := &mockPersistence{}
	m := DefaultModel("alice")
	persist.On("SaveUserModel", mock.Anything, m).Return(fmt.Errorf("db down"))

	store := NewStore(persist)
	store.Replace(m)

	// The in-memory snapshot is still the new one.
	assert.Same(t, m, store.Get("alice"))
}

func TestStore_Reset(t *testing.T) {
	store := NewStore(nil)
	m := DefaultModel("alice")
	m.SamplesUsed = 9
	store.Replace(m)

	store.Reset("alice")

	fresh := store.Get("alice")
	assert.NotSame(t, m, fresh)
	assert.Equal(t, 0, fresh.SamplesUsed)
}
