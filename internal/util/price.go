// Package util provides common utility functions for price calculations.
package util

import "math"

// StrikeIncrement is the conventional listing increment for equity option strikes.
const StrikeIncrement = 0.5

// RoundToTick rounds x to the nearest tick increment, ties away from zero.
// For example, with tick=0.01, 1.2345 becomes 1.23.
func RoundToTick(x, tick float64) float64 {
	tick = math.Abs(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Round(x/tick) * tick
}

// RoundToTickEven rounds x to the nearest tick increment, ties to the even multiple.
// With tick=0.5, 194.25 becomes 194.0 and 194.75 becomes 195.0.
func RoundToTickEven(x, tick float64) float64 {
	tick = math.Abs(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.RoundToEven(x/tick) * tick
}
