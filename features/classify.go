package features

// TrajectoryType is shape of a trajectory
type TrajectoryType string

const (
	TrajectoryStationary TrajectoryType = "stationary"
	TrajectoryLinear     TrajectoryType = "linear"
	TrajectoryMeandering TrajectoryType = "meandering"
	TrajectoryCircular   TrajectoryType = "circular"
	// Bursts of movement separated by stops
	TrajectoryDarting TrajectoryType = "darting"
	TrajectoryUnknown TrajectoryType = "unknown"
)

// OrganismType is organism archetype guessed from motion
type OrganismType string

const (
	OrganismFishFast  OrganismType = "fish_fast"
	OrganismFishSlow  OrganismType = "fish_slow"
	OrganismCrab      OrganismType = "crab"
	OrganismSnail     OrganismType = "snail"
	OrganismShellfish OrganismType = "shellfish"
	OrganismUnknown   OrganismType = "unknown"
)

// code is organism encoding used in feature vector
func (o OrganismType) code() float64 {
	switch o {
	case OrganismFishFast:
		return 1.0
	case OrganismFishSlow:
		return 0.8
	case OrganismCrab:
		return 0.6
	case OrganismSnail:
		return 0.4
	case OrganismShellfish:
		return 0.2
	default:
		return 0.0
	}
}

// ClassifyTrajectory returns trajectory type and confidence. Rules are checked in fixed order, first match wins.
func ClassifyTrajectory(m MotionMetrics) (TrajectoryType, float64) {
	switch {
	case m.MeanSpeed < 1.0 && m.TotalDistance < 50:
		return TrajectoryStationary, 0.9
	case m.BurstCount >= 3 && m.RestCount >= 2:
		return TrajectoryDarting, 0.8
	case m.StraightnessIndex > 0.7 && m.DirectionChanges < 5:
		return TrajectoryLinear, 0.85
	case m.StraightnessIndex < 0.3 && m.SpeedStd < m.MeanSpeed*0.5:
		return TrajectoryCircular, 0.7
	case m.StraightnessIndex > 0.2 && m.StraightnessIndex < 0.7 && m.DirectionChanges >= 5:
		return TrajectoryMeandering, 0.75
	default:
		return TrajectoryUnknown, 0.5
	}
}

// InferOrganism applies fixed heuristic rule table. It is not a learned model.
func InferOrganism(m MotionMetrics, trajectory TrajectoryType) (OrganismType, float64) {
	if trajectory == TrajectoryStationary {
		return OrganismShellfish, 0.7
	}
	// Very slow but continuous
	if m.MeanSpeed < 3.0 && m.RestCount < 3 && m.StraightnessIndex > 0.3 {
		return OrganismSnail, 0.65
	}
	if trajectory == TrajectoryMeandering || trajectory == TrajectoryDarting {
		if m.MeanSpeed > 2.0 && m.MeanSpeed < 15.0 && m.RestCount >= 2 {
			return OrganismCrab, 0.7
		}
	}
	if m.MeanSpeed > 15.0 || (trajectory == TrajectoryLinear && m.MeanSpeed > 8.0) {
		return OrganismFishFast, 0.75
	}
	if m.MeanSpeed > 5.0 && m.MeanSpeed < 15.0 {
		return OrganismFishSlow, 0.6
	}
	return OrganismUnknown, 0.4
}
