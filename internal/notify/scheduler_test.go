package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/model"
)

// noon is a fixed clock for deterministic decisions: Wednesday 12:00.
var noon = time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC)

func testScheduler(pending PendingSource) *Scheduler {
	s := NewScheduler(config.DefaultConfig().Notifications, nil, pending, NewRateLimiter())
	s.nowFn = func() time.Time { return noon }
	return s
}

func notification(nType, priority string) *Notification {
	return &Notification{
		ID:        "n1",
		UserID:    "alice",
		Type:      nType,
		Priority:  priority,
		Message:   "Standup starts soon",
		CreatedAt: noon,
	}
}

type mockPendingSource struct {
	mock.Mock
}

func (m *mockPendingSource) PendingSameType(ctx context.Context, userID, notificationType string, since time.Time) ([]string, error) {
	args := m.Called(ctx, userID, notificationType, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestAdapt_NeutralModelDeliversNow(t *testing.T) {
	s := testScheduler(nil)

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), model.DefaultModel("alice"))
	require.NoError(t, err)

	assert.False(t, adapted.Skip)
	assert.Equal(t, DefaultChannel, adapted.Channel)
	assert.Nil(t, adapted.DeliverAt)
	assert.Empty(t, adapted.GroupWith)
	assert.Equal(t, "Standup starts soon", adapted.AdaptedMessage)
}

func TestAdapt_SkipsLowEngagementTypes(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.ValueByType = map[string]float64{"marketing": 0.1}

	adapted, err := s.Adapt(context.Background(), notification("marketing", PriorityMedium), m)
	require.NoError(t, err)

	assert.True(t, adapted.Skip)
	assert.Equal(t, ReasonLowEngagementType, adapted.Reason)
}

func TestAdapt_UrgentBypassesLowEngagementSkip(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.ValueByType = map[string]float64{"marketing": 0.1}

	adapted, err := s.Adapt(context.Background(), notification("marketing", PriorityUrgent), m)
	require.NoError(t, err)

	assert.False(t, adapted.Skip)
	assert.Nil(t, adapted.DeliverAt)
}

func TestAdapt_QuietHoursDeferToWindowEnd(t *testing.T) {
	s := testScheduler(nil)
	// 23:30, inside a 23 -> 06 window wrapping midnight.
	s.nowFn = func() time.Time { return time.Date(2026, 8, 12, 23, 30, 0, 0, time.UTC) }

	m := model.DefaultModel("alice")
	m.Preferences.Notifications.QuietHours = model.QuietHours{Start: 23, End: 6}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)

	require.NotNil(t, adapted.DeliverAt)
	assert.Equal(t, time.Date(2026, 8, 13, 6, 0, 0, 0, time.UTC), *adapted.DeliverAt)
}

func TestAdapt_UrgentIgnoresQuietHours(t *testing.T) {
	s := testScheduler(nil)
	s.nowFn = func() time.Time { return time.Date(2026, 8, 12, 23, 30, 0, 0, time.UTC) }

	m := model.DefaultModel("alice")
	m.Preferences.Notifications.QuietHours = model.QuietHours{Start: 23, End: 6}

	adapted, err := s.Adapt(context.Background(), notification("alert", PriorityUrgent), m)
	require.NoError(t, err)
	assert.Nil(t, adapted.DeliverAt)
}

func TestAdapt_DefersTowardPeakEngagementHour(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	peak := 17
	m.Preferences.Notifications.PeakEngagementHour = &peak

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)

	require.NotNil(t, adapted.DeliverAt)
	assert.Equal(t, time.Date(2026, 8, 12, 17, 0, 0, 0, time.UTC), *adapted.DeliverAt)
}

func TestAdapt_HighPriorityIgnoresPeakHour(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	peak := 17
	m.Preferences.Notifications.PeakEngagementHour = &peak

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityHigh), m)
	require.NoError(t, err)
	assert.Nil(t, adapted.DeliverAt)
}

func TestAdapt_NearPeakDeliversNow(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	peak := 13
	m.Preferences.Notifications.PeakEngagementHour = &peak

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)
	assert.Nil(t, adapted.DeliverAt)
}

func TestAdapt_LowPriorityWaitsOutDeepWork(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Productivity.PeakWindows = []model.ProductivityWindow{
		{Day: "Wednesday", StartHour: 11, EndHour: 14, Score: 0.9},
	}

	adapted, err := s.Adapt(context.Background(), notification("tip", PriorityLow), m)
	require.NoError(t, err)

	require.NotNil(t, adapted.DeliverAt)
	assert.Equal(t, time.Date(2026, 8, 12, 14, 0, 0, 0, time.UTC), *adapted.DeliverAt)
}

func TestAdapt_MediumPriorityInterruptsDeepWork(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Productivity.PeakWindows = []model.ProductivityWindow{
		{Day: "Wednesday", StartHour: 11, EndHour: 14, Score: 0.9},
	}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)
	assert.Nil(t, adapted.DeliverAt)
}

func TestAdapt_PicksHighestEngagementChannel(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.ChannelPreference = map[string]float64{
		"email": 0.3,
		"push":  0.8,
	}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)
	assert.Equal(t, "push", adapted.Channel)
}

func TestSelectChannel_TieBreaksOnName(t *testing.T) {
	got := selectChannel(map[string]float64{"push": 0.5, "email": 0.5})
	assert.Equal(t, "email", got)

	assert.Equal(t, DefaultChannel, selectChannel(nil))
}

func TestAdapt_GroupsLowPriorityWithModeratePreference(t *testing.T) {
	pending := &mockPendingSource{}
	pending.On("PendingSameType", mock.Anything, "alice", "tip", mock.Anything).
		Return([]string{"n7", "n9"}, nil)

	s := testScheduler(pending)

	adapted, err := s.Adapt(context.Background(), notification("tip", PriorityLow), model.DefaultModel("alice"))
	require.NoError(t, err)

	assert.Equal(t, []string{"n7", "n9"}, adapted.GroupWith)
	pending.AssertExpectations(t)
}

func TestAdapt_ModeratePreferenceDoesNotGroupMedium(t *testing.T) {
	pending := &mockPendingSource{}
	s := testScheduler(pending)

	adapted, err := s.Adapt(context.Background(), notification("tip", PriorityMedium), model.DefaultModel("alice"))
	require.NoError(t, err)

	assert.Empty(t, adapted.GroupWith)
	pending.AssertNotCalled(t, "PendingSameType")
}

func TestAdapt_AggressiveGroupingBatchesEverything(t *testing.T) {
	pending := &mockPendingSource{}
	pending.On("PendingSameType", mock.Anything, "alice", "reminder", mock.Anything).
		Return([]string{"n3"}, nil)

	s := testScheduler(pending)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.GroupingPreference = "aggressive"

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityHigh), m)
	require.NoError(t, err)
	assert.Equal(t, []string{"n3"}, adapted.GroupWith)
}

func TestAdapt_GroupingLookupFailureIsBestEffort(t *testing.T) {
	pending := &mockPendingSource{}
	pending.On("PendingSameType", mock.Anything, "alice", "tip", mock.Anything).
		Return(nil, fmt.Errorf("db down"))

	s := testScheduler(pending)

	adapted, err := s.Adapt(context.Background(), notification("tip", PriorityLow), model.DefaultModel("alice"))
	require.NoError(t, err)
	assert.False(t, adapted.Skip)
	assert.Empty(t, adapted.GroupWith)
}

func TestAdapt_CustomRuleSkips(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.CustomRules = []model.PreferenceRule{
		{Condition: "type == 'reminder' && hour >= 10", Skip: true},
	}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)

	assert.True(t, adapted.Skip)
	assert.Equal(t, ReasonPreferenceRule, adapted.Reason)
}

func TestAdapt_CustomRuleOverridesChannelAndTiming(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	delayTo := 18
	m.Preferences.Notifications.CustomRules = []model.PreferenceRule{
		{Condition: "day == 'Wednesday'", Channel: "email", DelayToHour: &delayTo},
	}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)

	assert.Equal(t, "email", adapted.Channel)
	require.NotNil(t, adapted.DeliverAt)
	assert.Equal(t, time.Date(2026, 8, 12, 18, 0, 0, 0, time.UTC), *adapted.DeliverAt)
}

func TestAdapt_CustomRulesNeverTouchUrgent(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.CustomRules = []model.PreferenceRule{
		{Condition: "true", Skip: true},
	}

	adapted, err := s.Adapt(context.Background(), notification("alert", PriorityUrgent), m)
	require.NoError(t, err)
	assert.False(t, adapted.Skip)
}

func TestAdapt_BrokenCustomRuleDegrades(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")
	m.Preferences.Notifications.CustomRules = []model.PreferenceRule{
		{Condition: "hour ==", Skip: true},
	}

	adapted, err := s.Adapt(context.Background(), notification("reminder", PriorityMedium), m)
	require.NoError(t, err)
	assert.False(t, adapted.Skip)
}

func TestAdapt_InvalidNotification(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")

	_, err := s.Adapt(context.Background(), nil, m)
	assert.Error(t, err)

	_, err = s.Adapt(context.Background(), &Notification{UserID: "alice"}, m)
	assert.Error(t, err)

	_, err = s.Adapt(context.Background(), &Notification{UserID: "alice", Type: "x", Priority: "whenever"}, m)
	assert.Error(t, err)

	_, err = s.Adapt(context.Background(), notification("reminder", PriorityMedium), nil)
	assert.Error(t, err)
}

func TestHasReachedLimit_TracksBudget(t *testing.T) {
	s := testScheduler(nil)
	m := model.DefaultModel("alice")

	status := s.HasReachedLimit("alice", m)
	assert.False(t, status.HourlyLimitReached)
	assert.False(t, status.DailyLimitReached)

	freq := OptimalFrequency(m, s.defaults)
	for i := 0; i < freq.MaxPerHour; i++ {
		require.True(t, s.TrySend("alice", m))
	}

	status = s.HasReachedLimit("alice", m)
	assert.True(t, status.HourlyLimitReached)
	assert.False(t, s.TrySend("alice", m))
}
