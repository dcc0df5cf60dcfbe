package model

import (
	"math"

	"github.com/attunehq/attune/internal/util"
)

// CalculateModelConfidence computes the overall confidence of a snapshot
// from the number of samples that went into it. The curve is logarithmic:
// a handful of events gives a weak model, around a hundred samples gives a
// strong one, and more data past that barely moves the needle.
//
//	5 samples   -> ~0.39
//	20 samples  -> ~0.66
//	100+ samples -> 0.95 (cap)
func CalculateModelConfidence(samples int) float64 {
	if samples <= 0 {
		return defaultConfidence
	}
	confidence := math.Log(float64(samples)+1) / math.Log(101)
	return util.Clamp(confidence, defaultConfidence, 0.95)
}
