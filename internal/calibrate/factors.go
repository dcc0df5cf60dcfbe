package calibrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/util"
)

// Bounded ranges for the time-sensitive and context factors. The accuracy
// factors are bounded implicitly by their neutral bands.
const (
	hourFactorLow  = 0.7
	hourFactorHigh = 1.5
	dayFactorLow   = 0.8
	dayFactorHigh  = 1.3
	ctxFactorLow   = 0.5
	ctxFactorHigh  = 2.0
)

// typeFactor compensates for systematic estimation error on this task type.
// Accuracy below 1.0 means history ran over the estimates, so the
// multiplier 1/accuracy is above 1.0 to stretch the estimate, and vice
// versa. Inside the neutral band the user is considered calibrated.
func (c *Calibrator) typeFactor(task *Task, m *model.UserModel) Calibrated[float64] {
	acc, ok := m.Estimation.ByTaskType[task.Type]
	if !ok || acc == nil || acc.SampleSize < c.minSamples {
		return neutralFactor()
	}
	if acc.Accuracy >= c.cfg.TypeNeutralLow && acc.Accuracy <= c.cfg.TypeNeutralHigh {
		return neutralFactor()
	}
	if acc.Accuracy <= 0 {
		return neutralFactor()
	}

	reason := "Tasks of this type typically take longer than estimated"
	if acc.Accuracy > 1 {
		reason = "Tasks of this type typically finish faster than estimated"
	}
	return factor(1/acc.Accuracy, reason)
}

// sizeFactor compensates for estimation error in the task's size bucket,
// with a wider neutral band than the type factor.
func (c *Calibrator) sizeFactor(task *Task, m *model.UserModel) Calibrated[float64] {
	acc, ok := m.Estimation.BySize[task.Size]
	if !ok || acc == nil || acc.SampleSize < c.minSamples {
		return neutralFactor()
	}
	if acc.Accuracy >= c.cfg.SizeNeutralLow && acc.Accuracy <= c.cfg.SizeNeutralHigh {
		return neutralFactor()
	}
	if acc.Accuracy <= 0 {
		return neutralFactor()
	}

	reason := fmt.Sprintf("Your %s tasks usually run over their estimates", task.Size)
	if acc.Accuracy > 1 {
		reason = fmt.Sprintf("Your %s tasks usually finish ahead of their estimates", task.Size)
	}
	return factor(1/acc.Accuracy, reason)
}

// hourFactor scales the estimate by how the current hour compares to the
// user's average productivity. Working in a weak hour stretches the
// estimate, working in a strong one shrinks it.
func (c *Calibrator) hourFactor(now time.Time, m *model.UserModel) Calibrated[float64] {
	scores := m.Productivity.HourlyScores
	if len(scores) == 0 {
		return neutralFactor()
	}
	current, ok := scores[now.Hour()]
	if !ok || current <= 0 {
		return neutralFactor()
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	if mean <= 0 {
		return neutralFactor()
	}

	mult := util.Clamp(mean/current, hourFactorLow, hourFactorHigh)
	if mult == 1.0 {
		return neutralFactor()
	}

	reason := "This hour tends to be less productive for you"
	if mult < 1.0 {
		reason = "You're usually at your best around this hour"
	}
	return factor(mult, reason)
}

// dayFactor is the day-of-week analogue of hourFactor with tighter bounds.
func (c *Calibrator) dayFactor(now time.Time, m *model.UserModel) Calibrated[float64] {
	scores := m.Productivity.DayOfWeekScores
	if len(scores) == 0 {
		return neutralFactor()
	}
	today, ok := scores[now.Weekday().String()]
	if !ok || today <= 0 {
		return neutralFactor()
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	if mean <= 0 {
		return neutralFactor()
	}

	mult := util.Clamp(mean/today, dayFactorLow, dayFactorHigh)
	if mult == 1.0 {
		return neutralFactor()
	}

	reason := fmt.Sprintf("%ss tend to be slower days for you", now.Weekday())
	if mult < 1.0 {
		reason = fmt.Sprintf("%ss are usually productive days for you", now.Weekday())
	}
	return factor(mult, reason)
}

// complexityFactor applies the task's declared complexity.
func (c *Calibrator) complexityFactor(task *Task) Calibrated[float64] {
	switch task.Complexity {
	case "simple":
		return factor(0.8, "Simple tasks usually wrap up quickly")
	case "complex":
		return factor(1.4, "Complex work carries extra overhead")
	default:
		return neutralFactor()
	}
}

// contextFactor compares the task against textually similar history: the
// same project, and titles sharing keywords. Each signal is the mean
// actual/estimated ratio over its matches; when both exist they are
// blended 50/50.
func (c *Calibrator) contextFactor(task *Task, m *model.UserModel) Calibrated[float64] {
	if len(m.ContextHistory) == 0 {
		return neutralFactor()
	}

	var projectSum float64
	var projectCount int
	var keywordSum float64
	var keywordCount int

	keywords := ExtractKeywords(task.Title)

	for _, sample := range m.ContextHistory {
		if task.ProjectID != "" && sample.ProjectID == task.ProjectID {
			projectSum += sample.Ratio
			projectCount++
		}
		if len(keywords) > 0 && titleMatches(sample.Title, keywords) {
			keywordSum += sample.Ratio
			keywordCount++
		}
	}

	var mult float64
	switch {
	case projectCount > 0 && keywordCount > 0:
		mult = 0.5*(projectSum/float64(projectCount)) + 0.5*(keywordSum/float64(keywordCount))
	case projectCount > 0:
		mult = projectSum / float64(projectCount)
	case keywordCount > 0:
		mult = keywordSum / float64(keywordCount)
	default:
		return neutralFactor()
	}

	mult = util.Clamp(mult, ctxFactorLow, ctxFactorHigh)
	if mult == 1.0 {
		return neutralFactor()
	}

	reason := "Similar past work finished faster than planned"
	if mult > 1.0 {
		reason = "Similar past work took longer than planned"
	}
	return factor(mult, reason)
}

// titleMatches reports whether a historical title contains any keyword.
func titleMatches(title string, keywords []string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
