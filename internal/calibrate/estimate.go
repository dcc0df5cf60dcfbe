package calibrate

import (
	"fmt"
	"math"
	"time"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/util"
)

const (
	fallbackBaseMinutes = 30

	confidenceBase  = 0.5
	confidenceFloor = 0.1
	confidenceCeil  = 0.95

	// Confidence bonuses grow with sample size and cap out so history can
	// only ever add so much certainty.
	typeBonusCap = 0.2
	sizeBonusCap = 0.15

	// Estimates whose historical error exceeds this many minutes take a
	// confidence penalty.
	highErrorMinutes = 30.0
	highErrorPenalty = 0.8
	maxRangeVariance = 0.5
)

// Calibrator computes calibrated time predictions from a task and a model
// snapshot. All methods are pure readers of the snapshot.
type Calibrator struct {
	cfg        *config.CalibrationConfig
	minSamples int
	nowFn      func() time.Time
}

// NewCalibrator creates a calibrator. cfg nil means engine defaults.
func NewCalibrator(cfg *config.CalibrationConfig, minSamples int) *Calibrator {
	if cfg == nil {
		def := config.DefaultConfig().Calibration
		cfg = &def
	}
	if minSamples < 1 {
		minSamples = config.DefaultConfig().Model.MinSamplesPerStat
	}
	return &Calibrator{
		cfg:        cfg,
		minSamples: minSamples,
		nowFn:      time.Now,
	}
}

// Estimate computes a calibrated prediction for one task against the given
// model snapshot. Sparse statistics never fail; they leave their factor
// neutral. Only a structurally invalid task returns an error.
func (c *Calibrator) Estimate(task *Task, m *model.UserModel) (*TimePrediction, error) {
	return c.estimateAt(task, m, c.nowFn())
}

// estimateAt is Estimate with an explicit clock, the seam the tests use.
func (c *Calibrator) estimateAt(task *Task, m *model.UserModel, now time.Time) (*TimePrediction, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	base := c.baseEstimate(task)

	factors := []Calibrated[float64]{
		c.typeFactor(task, m),
		c.sizeFactor(task, m),
		c.hourFactor(now, m),
		c.dayFactor(now, m),
		c.complexityFactor(task),
		c.contextFactor(task, m),
	}

	estimate := base
	var reasons []string
	for _, f := range factors {
		estimate *= f.Value
		if !f.Neutral && f.Reason != "" {
			reasons = append(reasons, f.Reason)
		}
	}

	minutes := int(math.Round(estimate))
	if minutes < 1 {
		minutes = 1
	}

	prediction := &TimePrediction{
		EstimatedMinutes: minutes,
		Confidence:       c.confidence(task, m),
		Range:            c.predictionRange(task, m, minutes),
		Factors:          reasons,
	}
	return prediction, nil
}

// baseEstimate is the starting point before calibration: the task's own
// estimate when present, otherwise a default by size.
func (c *Calibrator) baseEstimate(task *Task) float64 {
	if task.EstimatedMinutes > 0 {
		return task.EstimatedMinutes
	}
	switch task.Size {
	case "small":
		return float64(c.cfg.DefaultMinutesSmall)
	case "medium":
		return float64(c.cfg.DefaultMinutesMedium)
	case "large":
		return float64(c.cfg.DefaultMinutesLarge)
	default:
		return fallbackBaseMinutes
	}
}

// confidence scores how much to trust the prediction: a 0.5 base, bonuses
// for type and size sample depth, a penalty for historically noisy types,
// and a final scale by global accuracy.
func (c *Calibrator) confidence(task *Task, m *model.UserModel) float64 {
	confidence := confidenceBase

	typeAcc := m.Estimation.ByTaskType[task.Type]
	if typeAcc != nil {
		confidence += math.Min(float64(typeAcc.SampleSize)/100, typeBonusCap)
	}
	if sizeAcc := m.Estimation.BySize[task.Size]; sizeAcc != nil {
		confidence += math.Min(float64(sizeAcc.SampleSize)/100, sizeBonusCap)
	}
	if typeAcc != nil && typeAcc.AverageErrorMinutes > highErrorMinutes {
		confidence *= highErrorPenalty
	}
	if m.Estimation.GlobalAccuracy > 0 {
		confidence *= m.Estimation.GlobalAccuracy
	}

	return util.Clamp(confidence, confidenceFloor, confidenceCeil)
}

// predictionRange derives low/high bounds from historical error when
// available, else from a size-based default spread.
func (c *Calibrator) predictionRange(task *Task, m *model.UserModel, minutes int) Range {
	variance := 0.0
	if typeAcc := m.Estimation.ByTaskType[task.Type]; typeAcc != nil && typeAcc.AverageErrorMinutes > 0 {
		variance = math.Min(typeAcc.AverageErrorMinutes/60, maxRangeVariance)
	}
	if variance == 0 {
		switch task.Size {
		case "small":
			variance = 0.3
		case "large":
			variance = 0.5
		default:
			variance = 0.4
		}
	}

	low := int(math.Round(float64(minutes) * (1 - variance)))
	if low < 1 {
		low = 1
	}
	high := int(math.Round(float64(minutes) * (1 + variance)))
	return Range{Low: low, High: high}
}
