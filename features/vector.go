package features

import (
	"math"
)

// VectorSize is length of every feature vector
const VectorSize = 20

// VectorNames labels feature vector components in order
var VectorNames = [VectorSize]string{
	"mean_speed", "max_speed", "speed_std", "speed_indicator", "burst_ratio",
	"straightness", "turns", "displacement_ratio", "acceleration", "regularity",
	"rest_count", "rest_ratio", "rest_duration", "activity",
	"exploration", "regularity_score", "foraging", "organism",
	"frames", "distance",
}

// FeatureVector is fixed-length normalized representation of a track:
// 5 speed, 5 trajectory, 4 rest, 4 behavioural and 2 quality components
type FeatureVector [VectorSize]float64

// NewFeatureVector normalizes metrics and behaviour with fixed divisors
func NewFeatureVector(m MotionMetrics, b BehavioralFeatures) FeatureVector {
	var v FeatureVector
	frames := float64(maxInt(1, m.TotalFrames))

	// Speed
	v[0] = m.MeanSpeed / 30.0
	v[1] = m.MaxSpeed / 60.0
	v[2] = m.SpeedStd / 15.0
	v[3] = math.Min(1.0, m.MeanSpeed/20.0)
	v[4] = math.Min(1.0, float64(m.BurstCount)/frames*100)

	// Trajectory
	v[5] = m.StraightnessIndex
	v[6] = math.Min(1.0, float64(m.DirectionChanges)/20.0)
	if m.TotalDistance > 0 {
		v[7] = m.Displacement / m.TotalDistance
	}
	v[8] = math.Min(1.0, m.MeanAcceleration/10.0)
	v[9] = b.RegularityScore

	// Rest
	v[10] = math.Min(1.0, float64(m.RestCount)/10.0)
	v[11] = float64(m.TotalRestFrames) / frames
	v[12] = math.Min(1.0, m.MeanRestDuration/30.0)
	v[13] = b.ActivityLevel

	// Behaviour
	v[14] = b.ExplorationScore
	v[15] = b.RegularityScore
	if b.IsForaging {
		v[16] = 1.0
	}
	v[17] = b.Organism.code()

	// Quality
	v[18] = math.Min(1.0, float64(m.TotalFrames)/160.0)
	v[19] = math.Min(1.0, m.TotalDistance/2000.0)
	return v
}

// Slice returns vector as a plain slice
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, VectorSize)
	copy(out, v[:])
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
