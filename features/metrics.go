// Package features turns finalized track histories into motion metrics, behavioural
// labels and fixed-length numeric vectors for downstream clustering.
package features

import (
	"math"

	"github.com/LdDl/benthic-mot/mot"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// Steps shorter than this (pixels) carry no direction sample
	minDirectionStep = 0.5
	// Direction change (radians) counted as a turn
	turnThreshold = math.Pi / 4
	// Speed (pixels/frame) below which a step counts as resting
	restSpeedCutoff = 2.0
	// Burst threshold is burstFactor times mean speed
	burstFactor = 1.5
	// Burst threshold used when mean speed is zero
	fallbackBurstThreshold = 5.0
	// Acceleration above accelerationEventFactor times mean is an event
	accelerationEventFactor = 2.0
)

// MotionMetrics holds kinematic statistics of one track. Speeds are in pixels per frame.
type MotionMetrics struct {
	TotalFrames   int     `json:"total_frames"`
	TotalDistance float64 `json:"total_distance"`
	// Straight-line distance between first and last positions
	Displacement float64 `json:"displacement"`

	MeanSpeed float64 `json:"mean_speed"`
	MaxSpeed  float64 `json:"max_speed"`
	MinSpeed  float64 `json:"min_speed"`
	SpeedStd  float64 `json:"speed_std"`

	MeanAcceleration   float64 `json:"mean_acceleration"`
	MaxAcceleration    float64 `json:"max_acceleration"`
	AccelerationEvents int     `json:"acceleration_events"`

	MeanDirectionChange float64 `json:"mean_direction_change"`
	MaxDirectionChange  float64 `json:"max_direction_change"`
	// Number of turns sharper than 45 degrees
	DirectionChanges int `json:"direction_changes"`

	StraightnessIndex float64 `json:"straightness_index"`

	RestCount        int     `json:"rest_count"`
	TotalRestFrames  int     `json:"total_rest_frames"`
	MeanRestDuration float64 `json:"mean_rest_duration"`

	BurstCount        int     `json:"burst_count"`
	MeanBurstSpeed    float64 `json:"mean_burst_speed"`
	MeanBurstDuration float64 `json:"mean_burst_duration"`

	// Mean speed in pixels per second
	MeanSpeedPerSecond float64 `json:"mean_speed_per_second"`
	// Time spanned by position history
	DurationSeconds float64 `json:"duration_seconds"`
}

// ExtractMotionMetrics computes metrics from consecutive positions sampled at fps.
// Fewer than two positions yield zero metrics.
func ExtractMotionMetrics(positions []mot.Point, fps float64) MotionMetrics {
	metrics := MotionMetrics{}
	if len(positions) < 2 {
		return metrics
	}
	metrics.TotalFrames = len(positions)

	speeds := make([]float64, 0, len(positions)-1)
	directions := make([]float64, 0, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		step := positions[i-1].DistanceTo(positions[i])
		speeds = append(speeds, step)
		if step > minDirectionStep {
			directions = append(directions, math.Atan2(positions[i].Y-positions[i-1].Y, positions[i].X-positions[i-1].X))
		}
	}

	metrics.TotalDistance = floats.Sum(speeds)
	metrics.Displacement = positions[0].DistanceTo(positions[len(positions)-1])

	metrics.MeanSpeed, metrics.SpeedStd = stat.PopMeanStdDev(speeds, nil)
	metrics.MaxSpeed = floats.Max(speeds)
	metrics.MinSpeed = floats.Min(speeds)

	if metrics.TotalDistance > 0 {
		metrics.StraightnessIndex = math.Min(1.0, metrics.Displacement/metrics.TotalDistance)
	}

	if len(speeds) >= 2 {
		accelerations := make([]float64, len(speeds)-1)
		for i := 1; i < len(speeds); i++ {
			accelerations[i-1] = math.Abs(speeds[i] - speeds[i-1])
		}
		metrics.MeanAcceleration = stat.Mean(accelerations, nil)
		metrics.MaxAcceleration = floats.Max(accelerations)
		for _, a := range accelerations {
			if a > accelerationEventFactor*metrics.MeanAcceleration {
				metrics.AccelerationEvents++
			}
		}
	}

	if len(directions) >= 2 {
		changes := make([]float64, len(directions)-1)
		for i := 1; i < len(directions); i++ {
			changes[i-1] = angleDifference(directions[i-1], directions[i])
		}
		metrics.MeanDirectionChange = stat.Mean(changes, nil)
		metrics.MaxDirectionChange = floats.Max(changes)
		for _, c := range changes {
			if c > turnThreshold {
				metrics.DirectionChanges++
			}
		}
	}

	rests := runs(speeds, func(s float64) bool { return s < restSpeedCutoff })
	metrics.RestCount = len(rests)
	if len(rests) > 0 {
		durations := make([]float64, len(rests))
		for i, r := range rests {
			durations[i] = float64(len(r))
			metrics.TotalRestFrames += len(r)
		}
		metrics.MeanRestDuration = stat.Mean(durations, nil)
	}

	burstThreshold := fallbackBurstThreshold
	if metrics.MeanSpeed > 0 {
		burstThreshold = metrics.MeanSpeed * burstFactor
	}
	bursts := runs(speeds, func(s float64) bool { return s > burstThreshold })
	metrics.BurstCount = len(bursts)
	if len(bursts) > 0 {
		burstSpeeds := make([]float64, len(bursts))
		durations := make([]float64, len(bursts))
		for i, b := range bursts {
			burstSpeeds[i] = stat.Mean(b, nil)
			durations[i] = float64(len(b))
		}
		metrics.MeanBurstSpeed = stat.Mean(burstSpeeds, nil)
		metrics.MeanBurstDuration = stat.Mean(durations, nil)
	}

	if fps > 0 {
		metrics.MeanSpeedPerSecond = metrics.MeanSpeed * fps
		metrics.DurationSeconds = float64(len(positions)-1) / fps
	}
	return metrics
}

// runs splits values into maximal consecutive runs satisfying pred
func runs(values []float64, pred func(float64) bool) [][]float64 {
	result := make([][]float64, 0)
	start := -1
	for i, v := range values {
		if pred(v) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			result = append(result, values[start:i])
			start = -1
		}
	}
	if start >= 0 {
		result = append(result, values[start:])
	}
	return result
}

// angleDifference returns absolute difference of two angles in [0, pi]
func angleDifference(a1, a2 float64) float64 {
	diff := math.Abs(a1 - a2)
	if diff > math.Pi {
		diff = 2*math.Pi - diff
	}
	return diff
}
