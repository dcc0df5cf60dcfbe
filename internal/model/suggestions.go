package model

import (
	"fmt"
	"sort"
)

// improvementSuggestions creates human-readable observations about the
// user's estimation habits from the aggregated model.
func improvementSuggestions(em *EstimationModel) []string {
	var suggestions []string

	if em == nil {
		return suggestions
	}

	types := make([]string, 0, len(em.ByTaskType))
	for taskType := range em.ByTaskType {
		types = append(types, taskType)
	}
	sort.Strings(types)

	for _, taskType := range types {
		acc := em.ByTaskType[taskType]
		switch {
		case acc.Accuracy < 0.8:
			msg := fmt.Sprintf("'%s' tasks typically run about %.0f minutes over their estimates. Consider padding estimates for this type.",
				taskType, acc.BiasMinutes)
			suggestions = append(suggestions, msg)
		case acc.Accuracy > 1.2:
			msg := fmt.Sprintf("'%s' tasks usually finish faster than estimated. You could plan them tighter.",
				taskType)
			suggestions = append(suggestions, msg)
		}
		if acc.AverageErrorMinutes > 30 {
			msg := fmt.Sprintf("Estimates for '%s' tasks are off by %.0f minutes on average. Breaking them into smaller tasks may help.",
				taskType, acc.AverageErrorMinutes)
			suggestions = append(suggestions, msg)
		}
	}

	if em.GlobalAccuracy > 0 && em.GlobalAccuracy < 0.9 && len(em.ByTaskType) > 0 {
		suggestions = append(suggestions,
			"Overall, work tends to take longer than planned. Adding a buffer to estimates would improve reliability.")
	}

	return suggestions
}
