package features

import (
	"math"
)

const (
	maxExpectedSpeed   = 30.0
	explorationScaling = 1000.0
)

// BehavioralFeatures are high-level labels and scores derived from MotionMetrics
type BehavioralFeatures struct {
	TrajectoryType       TrajectoryType `json:"trajectory_type"`
	TrajectoryConfidence float64        `json:"trajectory_confidence"`
	Organism             OrganismType   `json:"inferred_organism"`
	OrganismConfidence   float64        `json:"organism_confidence"`

	// 0 is stationary, 1 is very active
	ActivityLevel    float64 `json:"activity_level"`
	ExplorationScore float64 `json:"exploration_score"`
	// One minus coefficient of variation of speed, floored at 0
	RegularityScore float64 `json:"regularity_score"`

	IsForaging   bool `json:"is_foraging"`
	IsFleeing    bool `json:"is_fleeing"`
	IsResting    bool `json:"is_resting"`
	IsPatrolling bool `json:"is_patrolling"`
}

// DeriveBehavior classifies trajectory and organism and computes behavioural scores and flags
func DeriveBehavior(m MotionMetrics) BehavioralFeatures {
	trajectory, trajectoryConf := ClassifyTrajectory(m)
	organism, organismConf := InferOrganism(m, trajectory)

	b := BehavioralFeatures{
		TrajectoryType:       trajectory,
		TrajectoryConfidence: trajectoryConf,
		Organism:             organism,
		OrganismConfidence:   organismConf,
		ActivityLevel:        math.Min(1.0, m.MeanSpeed/maxExpectedSpeed),
		ExplorationScore:     math.Min(1.0, m.TotalDistance/explorationScaling),
	}
	if m.MeanSpeed > 0 {
		cv := m.SpeedStd / m.MeanSpeed
		b.RegularityScore = math.Max(0, 1.0-cv)
	}

	b.IsResting = trajectory == TrajectoryStationary
	b.IsFleeing = trajectory == TrajectoryLinear && m.MeanSpeed > 15.0
	b.IsForaging = trajectory == TrajectoryMeandering && m.RestCount >= 2
	b.IsPatrolling = trajectory == TrajectoryLinear && m.DirectionChanges >= 2 && m.StraightnessIndex < 0.5
	return b
}
