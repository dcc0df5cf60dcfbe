package model

import (
	"math"
	"time"

	"github.com/attunehq/attune/internal/events"
)

type accuracyAccum struct {
	ratioSum float64 // estimated/actual
	biasSum  float64 // actual - estimated, minutes
	errSum   float64 // |actual - estimated|, minutes
	count    int
}

func (a *accuracyAccum) add(r *events.EstimationRecord) {
	if r.ActualMinutes <= 0 || r.EstimatedMinutes <= 0 {
		return
	}
	a.ratioSum += r.EstimatedMinutes / r.ActualMinutes
	a.biasSum += r.ActualMinutes - r.EstimatedMinutes
	a.errSum += math.Abs(r.ActualMinutes - r.EstimatedMinutes)
	a.count++
}

// buildEstimation aggregates estimation records into per-type and per-size
// accuracy statistics. Groups below minSamples are omitted entirely: absence
// is how the model expresses "not enough signal, stay neutral".
func buildEstimation(records []*events.EstimationRecord, minSamples int) EstimationModel {
	em := EstimationModel{GlobalAccuracy: 1.0}

	global := &accuracyAccum{}
	byType := make(map[string]*accuracyAccum)
	bySize := make(map[string]*accuracyAccum)

	for _, r := range records {
		global.add(r)
		if r.TaskType != "" {
			if byType[r.TaskType] == nil {
				byType[r.TaskType] = &accuracyAccum{}
			}
			byType[r.TaskType].add(r)
		}
		if r.TaskSize != "" {
			if bySize[r.TaskSize] == nil {
				bySize[r.TaskSize] = &accuracyAccum{}
			}
			bySize[r.TaskSize].add(r)
		}
	}

	if global.count >= minSamples {
		em.GlobalAccuracy = global.ratioSum / float64(global.count)
	}

	for taskType, acc := range byType {
		if acc.count < minSamples {
			continue
		}
		if em.ByTaskType == nil {
			em.ByTaskType = make(map[string]*TypeAccuracy)
		}
		em.ByTaskType[taskType] = &TypeAccuracy{
			Accuracy:            acc.ratioSum / float64(acc.count),
			BiasMinutes:         acc.biasSum / float64(acc.count),
			SampleSize:          acc.count,
			AverageErrorMinutes: acc.errSum / float64(acc.count),
		}
	}

	for size, acc := range bySize {
		if acc.count < minSamples {
			continue
		}
		if em.BySize == nil {
			em.BySize = make(map[string]*SizeAccuracy)
		}
		em.BySize[size] = &SizeAccuracy{
			Accuracy:    acc.ratioSum / float64(acc.count),
			BiasMinutes: acc.biasSum / float64(acc.count),
			SampleSize:  acc.count,
		}
	}

	return em
}

// buildContextHistory retains the recent estimation samples the calibrator
// matches against by project and title keywords.
func buildContextHistory(records []*events.EstimationRecord, since time.Time) []ContextSample {
	var out []ContextSample
	for _, r := range records {
		if r.CreatedAt.Before(since) {
			continue
		}
		if r.ActualMinutes <= 0 || r.EstimatedMinutes <= 0 {
			continue
		}
		if r.Title == "" && r.ProjectID == "" {
			continue
		}
		out = append(out, ContextSample{
			Title:     r.Title,
			ProjectID: r.ProjectID,
			Ratio:     r.ActualMinutes / r.EstimatedMinutes,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
