package features

import (
	"gonum.org/v1/gonum/stat"
)

// FlagCounts counts tracks carrying each behavioural flag
type FlagCounts struct {
	Foraging   int `json:"foraging"`
	Fleeing    int `json:"fleeing"`
	Resting    int `json:"resting"`
	Patrolling int `json:"patrolling"`
}

// Summary aggregates features over a set of tracks
type Summary struct {
	TotalTracks     int                    `json:"total_tracks"`
	Trajectories    map[TrajectoryType]int `json:"trajectory_distribution"`
	Organisms       map[OrganismType]int   `json:"organism_distribution"`
	Sources         map[string]int         `json:"source_distribution"`
	AvgSpeed        float64                `json:"avg_speed"`
	AvgStraightness float64                `json:"avg_straightness"`
	AvgActivity     float64                `json:"avg_activity"`
	Flags           FlagCounts             `json:"behavioral_flags"`
}

// Report is exported form of extracted features
type Report struct {
	RunID   string          `json:"run_id,omitempty"`
	FPS     float64         `json:"fps"`
	Summary Summary         `json:"summary"`
	Tracks  []TrackFeatures `json:"tracks"`
}

// Summarize computes distributions, averages and flag counts. Empty input gives zero summary
func Summarize(features []TrackFeatures) Summary {
	summary := Summary{
		TotalTracks:  len(features),
		Trajectories: make(map[TrajectoryType]int),
		Organisms:    make(map[OrganismType]int),
		Sources:      make(map[string]int),
	}
	if len(features) == 0 {
		return summary
	}

	speeds := make([]float64, len(features))
	straightness := make([]float64, len(features))
	activities := make([]float64, len(features))
	for i, tf := range features {
		summary.Trajectories[tf.Behavior.TrajectoryType]++
		summary.Organisms[tf.Behavior.Organism]++
		summary.Sources[tf.Source]++

		speeds[i] = tf.Metrics.MeanSpeed
		straightness[i] = tf.Metrics.StraightnessIndex
		activities[i] = tf.Behavior.ActivityLevel

		if tf.Behavior.IsForaging {
			summary.Flags.Foraging++
		}
		if tf.Behavior.IsFleeing {
			summary.Flags.Fleeing++
		}
		if tf.Behavior.IsResting {
			summary.Flags.Resting++
		}
		if tf.Behavior.IsPatrolling {
			summary.Flags.Patrolling++
		}
	}
	summary.AvgSpeed = stat.Mean(speeds, nil)
	summary.AvgStraightness = stat.Mean(straightness, nil)
	summary.AvgActivity = stat.Mean(activities, nil)
	return summary
}
