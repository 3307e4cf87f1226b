package features

import (
	"context"
	"math"
	"testing"

	"github.com/LdDl/benthic-mot/mot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

const eps = 1e-9

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func points(xy ...float64) []mot.Point {
	out := make([]mot.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, mot.NewPoint(xy[i], xy[i+1]))
	}
	return out
}

func dartingPath() []mot.Point {
	return points(0, 0, 0, 0, 0, 0, 20, 0, 20, 0, 20, 0, 40, 0, 40, 0, 40, 0, 60, 0, 60, 0, 60, 0)
}

func zigzagPath(n int) []mot.Point {
	out := make([]mot.Point, n)
	for i := range out {
		out[i] = mot.NewPoint(float64(i*5), float64((i%2)*10))
	}
	return out
}

func circlePath() []mot.Point {
	out := make([]mot.Point, 13)
	for i := range out {
		angle := 2 * math.Pi * float64(i) / 12
		out[i] = mot.NewPoint(100+50*math.Cos(angle), 100+50*math.Sin(angle))
	}
	return out
}

func jitterPath(n int) []mot.Point {
	out := make([]mot.Point, n)
	for i := range out {
		out[i] = mot.NewPoint(200+0.3*float64(i%2), 200)
	}
	return out
}

func TestExtractMotionMetricsStraightLine(t *testing.T) {
	m := ExtractMotionMetrics(points(0, 0, 10, 0, 20, 0), 8.0)
	assert.Equal(t, 3, m.TotalFrames)
	assert.InDelta(t, 20.0, m.Displacement, eps)
	assert.InDelta(t, 20.0, m.TotalDistance, eps)
	assert.InDelta(t, 1.0, m.StraightnessIndex, eps)
	assert.InDelta(t, 10.0, m.MeanSpeed, eps)
	assert.InDelta(t, 0.0, m.SpeedStd, eps)
	assert.Equal(t, 0, m.DirectionChanges)
	assert.Equal(t, 0, m.AccelerationEvents)
	assert.Equal(t, 0, m.RestCount)
	assert.Equal(t, 0, m.BurstCount)
	assert.InDelta(t, 80.0, m.MeanSpeedPerSecond, eps)
	assert.InDelta(t, 0.25, m.DurationSeconds, eps)
}

func TestExtractMotionMetricsDegenerate(t *testing.T) {
	assert.Equal(t, MotionMetrics{}, ExtractMotionMetrics(nil, 8.0))
	assert.Equal(t, MotionMetrics{}, ExtractMotionMetrics(points(1, 1), 8.0))

	// Not moving at all
	m := ExtractMotionMetrics(points(5, 5, 5, 5, 5, 5), 8.0)
	assert.Equal(t, 0.0, m.StraightnessIndex)
	assert.Equal(t, 1, m.RestCount)
	assert.Equal(t, 2, m.TotalRestFrames)
	// Zero mean speed falls back to a fixed burst threshold
	assert.Equal(t, 0, m.BurstCount)
}

func TestExtractMotionMetricsRestsAndBursts(t *testing.T) {
	m := ExtractMotionMetrics(dartingPath(), 8.0)
	assert.Equal(t, 12, m.TotalFrames)
	assert.InDelta(t, 60.0/11.0, m.MeanSpeed, eps)
	assert.Equal(t, 3, m.BurstCount)
	assert.InDelta(t, 20.0, m.MeanBurstSpeed, eps)
	assert.InDelta(t, 1.0, m.MeanBurstDuration, eps)
	assert.Equal(t, 4, m.RestCount)
	assert.Equal(t, 8, m.TotalRestFrames)
	assert.InDelta(t, 2.0, m.MeanRestDuration, eps)
	assert.InDelta(t, 20.0, m.MaxAcceleration, eps)
}

func TestExtractMotionMetricsTurns(t *testing.T) {
	m := ExtractMotionMetrics(zigzagPath(11), 8.0)
	assert.Equal(t, 9, m.DirectionChanges)
	assert.InDelta(t, 2*math.Atan2(10, 5), m.MaxDirectionChange, 1e-6)
	assert.InDelta(t, 50.0/(10*math.Hypot(5, 10)), m.StraightnessIndex, 1e-6)
}

func TestAngleDifference(t *testing.T) {
	assert.InDelta(t, 0.5, angleDifference(0.25, -0.25), eps)
	assert.InDelta(t, 2*math.Pi-6.0, angleDifference(3.0, -3.0), eps)
	assert.InDelta(t, math.Pi, angleDifference(math.Pi/2, -math.Pi/2), eps)
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name          string
		path          []mot.Point
		trajectory    TrajectoryType
		trajectoryCnf float64
		organism      OrganismType
		organismCnf   float64
	}{
		{"straight fast", points(0, 0, 10, 0, 20, 0), TrajectoryLinear, 0.85, OrganismFishFast, 0.75},
		{"jitter", jitterPath(40), TrajectoryStationary, 0.9, OrganismShellfish, 0.7},
		{"darting", dartingPath(), TrajectoryDarting, 0.8, OrganismCrab, 0.7},
		{"circle", circlePath(), TrajectoryCircular, 0.7, OrganismFishFast, 0.75},
		{"zigzag", zigzagPath(11), TrajectoryMeandering, 0.75, OrganismFishSlow, 0.6},
		{"slow straight", points(0, 0, 2, 0, 4, 0, 6, 0), TrajectoryLinear, 0.85, OrganismSnail, 0.65},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := ExtractMotionMetrics(tc.path, 8.0)
			trajectory, trajectoryConf := ClassifyTrajectory(m)
			assert.Equal(t, tc.trajectory, trajectory)
			assert.Equal(t, tc.trajectoryCnf, trajectoryConf)
			organism, organismConf := InferOrganism(m, trajectory)
			assert.Equal(t, tc.organism, organism)
			assert.Equal(t, tc.organismCnf, organismConf)
		})
	}
}

func TestClassifyTrajectoryUnknown(t *testing.T) {
	trajectory, conf := ClassifyTrajectory(MotionMetrics{MeanSpeed: 4, TotalDistance: 100, StraightnessIndex: 0.5, DirectionChanges: 1})
	assert.Equal(t, TrajectoryUnknown, trajectory)
	assert.Equal(t, 0.5, conf)

	organism, conf := InferOrganism(MotionMetrics{MeanSpeed: 4, StraightnessIndex: 0.1}, trajectory)
	assert.Equal(t, OrganismUnknown, organism)
	assert.Equal(t, 0.4, conf)
}

func TestDeriveBehavior(t *testing.T) {
	fleeing := DeriveBehavior(ExtractMotionMetrics(points(0, 0, 20, 0, 40, 0, 60, 0), 8.0))
	assert.Equal(t, TrajectoryLinear, fleeing.TrajectoryType)
	assert.True(t, fleeing.IsFleeing)
	assert.False(t, fleeing.IsResting)
	assert.InDelta(t, 20.0/30.0, fleeing.ActivityLevel, eps)
	assert.InDelta(t, 0.06, fleeing.ExplorationScore, eps)
	assert.InDelta(t, 1.0, fleeing.RegularityScore, eps)

	resting := DeriveBehavior(ExtractMotionMetrics(jitterPath(10), 8.0))
	assert.True(t, resting.IsResting)
	assert.False(t, resting.IsForaging)

	foraging := DeriveBehavior(MotionMetrics{MeanSpeed: 6, SpeedStd: 12, TotalDistance: 300, StraightnessIndex: 0.4, DirectionChanges: 7, RestCount: 2})
	assert.Equal(t, TrajectoryMeandering, foraging.TrajectoryType)
	assert.Equal(t, OrganismCrab, foraging.Organism)
	assert.True(t, foraging.IsForaging)
	assert.Equal(t, 0.0, foraging.RegularityScore)
}

func TestFeatureVector(t *testing.T) {
	m := ExtractMotionMetrics(points(0, 0, 10, 0, 20, 0), 8.0)
	v := NewFeatureVector(m, DeriveBehavior(m))
	require.Len(t, v.Slice(), VectorSize)

	assert.InDelta(t, 10.0/30.0, v[0], eps)
	assert.InDelta(t, 10.0/60.0, v[1], eps)
	assert.InDelta(t, 0.5, v[3], eps)
	assert.InDelta(t, 1.0, v[5], eps)
	assert.InDelta(t, 1.0, v[7], eps)
	assert.InDelta(t, 1.0, v[9], eps)
	assert.InDelta(t, 10.0/30.0, v[13], eps)
	assert.Equal(t, 1.0, v[17])
	assert.InDelta(t, 3.0/160.0, v[18], eps)
	assert.InDelta(t, 0.01, v[19], eps)
}

func TestFeatureVectorAlwaysTwenty(t *testing.T) {
	extractor, err := NewExtractor(8.0)
	require.NoError(t, err)
	paths := [][]mot.Point{
		nil,
		points(1, 1),
		points(0, 0, 3, 4),
		points(0, 0, 0, 0),
		dartingPath(),
		circlePath(),
		jitterPath(200),
	}
	for i, path := range paths {
		tf := extractor.ExtractTrack(i, path, "motion")
		vector := tf.Vector.Slice()
		require.Len(t, vector, 20)
		for k, value := range vector {
			assert.False(t, math.IsNaN(value) || math.IsInf(value, 0), "component %d of path %d is %v", k, i, value)
		}
	}
}

func TestExtractTrackShortHistory(t *testing.T) {
	extractor, err := NewExtractor(8.0)
	require.NoError(t, err)
	tf := extractor.ExtractTrack(9, points(4, 4), "fused")
	assert.Equal(t, 9, tf.TrackID)
	assert.Equal(t, "fused", tf.Source)
	assert.Equal(t, [2]int{0, 1}, tf.FrameRange)
	assert.Equal(t, MotionMetrics{}, tf.Metrics)
	assert.Equal(t, TrajectoryUnknown, tf.Behavior.TrajectoryType)
	assert.Equal(t, OrganismUnknown, tf.Behavior.Organism)
	assert.Equal(t, FeatureVector{}, tf.Vector)
}

func TestNewExtractorInvalidFPS(t *testing.T) {
	_, err := NewExtractor(0)
	assert.Error(t, err)
}

func record(id int, firstFrame int, path []mot.Point) mot.TrackRecord {
	frames := make([]int, len(path))
	for i := range frames {
		frames[i] = firstFrame + i
	}
	return mot.TrackRecord{ID: id, Frames: frames, Positions: path, PrimarySource: "motion"}
}

func TestExtractAll(t *testing.T) {
	extractor, err := NewExtractor(8.0, WithWorkers(3), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	records := make([]mot.TrackRecord, 0, 40)
	for id := 40; id > 0; id-- {
		records = append(records, record(id, id*2, zigzagPath(5+id%7)))
	}
	records = append(records, mot.TrackRecord{ID: 100})

	features, err := extractor.ExtractAll(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, features, 40)
	for i, tf := range features {
		assert.Equal(t, i+1, tf.TrackID)
		assert.Equal(t, [2]int{tf.TrackID * 2, tf.TrackID*2 + tf.PositionCount - 1}, tf.FrameRange)
		assert.Equal(t, extractor.ExtractTrack(tf.TrackID, records[40-tf.TrackID].Positions, "motion").Vector, tf.Vector)
	}
}

func TestExtractAllCancelled(t *testing.T) {
	extractor, err := NewExtractor(8.0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = extractor.ExtractAll(ctx, []mot.TrackRecord{record(1, 0, dartingPath())})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarizeAndMatrix(t *testing.T) {
	extractor, err := NewExtractor(8.0)
	require.NoError(t, err)
	tracks := []TrackFeatures{
		extractor.ExtractTrack(3, jitterPath(40), "fused"),
		extractor.ExtractTrack(1, points(0, 0, 20, 0, 40, 0, 60, 0), "motion"),
		extractor.ExtractTrack(2, dartingPath(), "motion"),
	}

	summary := Summarize(tracks)
	assert.Equal(t, 3, summary.TotalTracks)
	assert.Equal(t, map[TrajectoryType]int{TrajectoryStationary: 1, TrajectoryLinear: 1, TrajectoryDarting: 1}, summary.Trajectories)
	assert.Equal(t, map[OrganismType]int{OrganismShellfish: 1, OrganismFishFast: 1, OrganismCrab: 1}, summary.Organisms)
	assert.Equal(t, map[string]int{"fused": 1, "motion": 2}, summary.Sources)
	assert.Equal(t, FlagCounts{Fleeing: 1, Resting: 1}, summary.Flags)
	expectedSpeed := (tracks[0].Metrics.MeanSpeed + tracks[1].Metrics.MeanSpeed + tracks[2].Metrics.MeanSpeed) / 3
	assert.InDelta(t, expectedSpeed, summary.AvgSpeed, eps)

	matrix := Matrix(tracks)
	require.Len(t, matrix, 3)
	assert.Equal(t, tracks[1].Vector.Slice(), matrix[0])
	assert.Equal(t, tracks[2].Vector.Slice(), matrix[1])
	assert.Equal(t, tracks[0].Vector.Slice(), matrix[2])

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalTracks)
	assert.Equal(t, 0.0, empty.AvgSpeed)
	assert.Empty(t, Matrix(nil))
}
