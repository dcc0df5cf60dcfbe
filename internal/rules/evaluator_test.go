package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/attune/internal/model"
)

var testEnv = Env{
	Type:     "reminder",
	Priority: "medium",
	Hour:     22,
	Day:      "Wednesday",
	Channel:  "push",
}

func TestEvaluate(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{"empty matches everything", "", true},
		{"literal true", "true", true},
		{"hour comparison", "hour >= 22", true},
		{"hour comparison miss", "hour < 9", false},
		{"type equality", "type == 'reminder'", true},
		{"conjunction", "hour >= 22 && type == 'reminder'", true},
		{"disjunction", "day == 'Sunday' || channel == 'push'", true},
		{"priority check", "priority in ['high', 'urgent']", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.condition, testEnv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Evaluate("hour ==", testEnv)
	assert.Error(t, err)

	_, err = e.Evaluate("unknown_field > 3", testEnv)
	assert.Error(t, err)
}

func TestEvaluate_CachesCompiledConditions(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Evaluate("hour >= 22", testEnv)
	require.NoError(t, err)
	assert.Len(t, e.programs, 1)

	// A repeat evaluation reuses the compiled program.
	_, err = e.Evaluate("hour >= 22", testEnv)
	require.NoError(t, err)
	assert.Len(t, e.programs, 1)
}

func TestApply_HighestPriorityWins(t *testing.T) {
	e := NewEvaluator()
	delayTo := 9

	ruleSet := []model.PreferenceRule{
		{Condition: "hour >= 20", Channel: "email", Priority: 1},
		{Condition: "hour >= 20", Skip: true, Priority: 10},
		{Condition: "hour >= 20", DelayToHour: &delayTo, Priority: 5},
	}

	outcome, err := e.Apply(ruleSet, testEnv)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.Skip)
}

func TestApply_FirstMatchStops(t *testing.T) {
	e := NewEvaluator()

	ruleSet := []model.PreferenceRule{
		{Condition: "day == 'Sunday'", Skip: true, Priority: 10},
		{Condition: "type == 'reminder'", Channel: "email", Priority: 5},
	}

	outcome, err := e.Apply(ruleSet, testEnv)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Skip)
	assert.Equal(t, "email", outcome.Channel)
}

func TestApply_NoMatch(t *testing.T) {
	e := NewEvaluator()

	outcome, err := e.Apply([]model.PreferenceRule{
		{Condition: "hour < 6", Skip: true},
	}, testEnv)
	require.NoError(t, err)
	assert.Nil(t, outcome)

	outcome, err = e.Apply(nil, testEnv)
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestApply_BrokenRulesAreSkipped(t *testing.T) {
	e := NewEvaluator()

	ruleSet := []model.PreferenceRule{
		{Condition: "hour ==", Skip: true, Priority: 10},
		{Condition: "hour >= 22", Channel: "email", Priority: 1},
	}

	// The broken high-priority rule is skipped and the valid one applies.
	outcome, err := e.Apply(ruleSet, testEnv)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, "email", outcome.Channel)
}

func TestApply_AllBrokenSurfacesError(t *testing.T) {
	e := NewEvaluator()

	outcome, err := e.Apply([]model.PreferenceRule{
		{Condition: "hour ==", Skip: true},
	}, testEnv)
	assert.Error(t, err)
	assert.Nil(t, outcome)
}
