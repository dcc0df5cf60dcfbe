// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package util provides utility functions shared across the attune engine.
package util

import "cmp"

// Clamp constrains v to the inclusive range [lo, hi].
// Every bounded multiplier and probability in the engine goes through this
// single helper rather than re-deriving min/max logic per call site.
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 constrains a probability-like value to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0.0, 1.0)
}
