// Package rules evaluates user-defined notification override rules.
// Conditions are expressions over the delivery context; the scheduler
// applies the outcome of the highest-priority matching rule after its own
// statistical decision.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/attunehq/attune/internal/model"
)

// Env is the expression environment a rule condition evaluates against.
// Field names are lowercased in conditions, e.g. "hour >= 22 && type == 'reminder'".
type Env struct {
	Type     string `expr:"type"`
	Priority string `expr:"priority"`
	Hour     int    `expr:"hour"`
	Day      string `expr:"day"`
	Channel  string `expr:"channel"`
}

// Outcome is what a matched rule wants changed about the delivery.
type Outcome struct {
	Skip        bool
	Channel     string
	DelayToHour *int
}

// Evaluator compiles and caches rule conditions.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: make(map[string]*vm.Program),
	}
}

// Evaluate evaluates a condition string against the delivery context.
func (e *Evaluator) Evaluate(condition string, env Env) (bool, error) {
	if condition == "" || condition == "true" {
		return true, nil
	}

	program, err := e.program(condition)
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to run condition '%s': %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition '%s' did not return a boolean", condition)
	}
	return result, nil
}

// Apply evaluates the rules against env, highest priority first, and
// returns the outcome of the first match. Rules with broken conditions are
// skipped. nil means no rule matched.
func (e *Evaluator) Apply(ruleSet []model.PreferenceRule, env Env) (*Outcome, error) {
	if len(ruleSet) == 0 {
		return nil, nil
	}

	ordered := make([]model.PreferenceRule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var lastErr error
	for _, rule := range ordered {
		matched, err := e.Evaluate(rule.Condition, env)
		if err != nil {
			lastErr = err
			continue
		}
		if !matched {
			continue
		}
		return &Outcome{
			Skip:        rule.Skip,
			Channel:     rule.Channel,
			DelayToHour: rule.DelayToHour,
		}, nil
	}
	return nil, lastErr
}

func (e *Evaluator) program(condition string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[condition]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(condition, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition '%s': %w", condition, err)
	}

	e.mu.Lock()
	e.programs[condition] = program
	e.mu.Unlock()
	return program, nil
}
