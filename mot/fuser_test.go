package mot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func motionCandidate(x, y float64, ct CandidateType) OrganismCandidate {
	return OrganismCandidate{
		Centroid:  NewPoint(x, y),
		BBox:      NewRect(x-10, y-10, 20, 20),
		TotalArea: 50,
		Type:      ct,
	}
}

func appearanceAt(x, y, conf float64, class string) AppearanceDetection {
	return AppearanceDetection{
		BBox:       NewRect(x-10, y-10, 20, 20),
		Centroid:   NewPoint(x, y),
		Confidence: conf,
		Class:      class,
	}
}

func TestFuseDetectionsAgreement(t *testing.T) {
	appearance := []AppearanceDetection{appearanceAt(10, 10, 0.8, "crab")}
	motion := []OrganismCandidate{motionCandidate(12, 10, CandidateDarkOnly)}

	unified := FuseDetections(3, appearance, motion, DefaultFusionParams())
	require.Len(t, unified, 1)

	det := unified[0]
	assert.Equal(t, SourceFused, det.Source)
	assert.Equal(t, 3, det.Frame)
	assert.InDelta(t, (0.8*0.7+0.7*0.3)*1.2, det.Confidence, eps)
	assert.Equal(t, 0.8, det.AppearanceConf)
	assert.Equal(t, MotionConfidence, det.MotionConf)
	assert.Equal(t, "crab", det.Class)
	assert.Equal(t, CandidateDarkOnly, det.MotionType)
	assert.Equal(t, appearance[0].Centroid, det.Centroid)
	assert.Equal(t, appearance[0].BBox, det.BBox)
	assert.Equal(t, 400.0, det.Area)
}

func TestFuseDetectionsConfidenceCapped(t *testing.T) {
	unified := FuseDetections(0, []AppearanceDetection{appearanceAt(10, 10, 1.0, "fish")}, []OrganismCandidate{motionCandidate(10, 10, CandidateCoupled)}, DefaultFusionParams())
	require.Len(t, unified, 1)
	assert.Equal(t, SourceFused, unified[0].Source)
	assert.Equal(t, 1.0, unified[0].Confidence)
}

func TestFuseDetectionsUnmatched(t *testing.T) {
	appearance := []AppearanceDetection{appearanceAt(500, 500, 0.8, "snail")}
	motion := []OrganismCandidate{motionCandidate(10, 10, CandidateBrightOnly)}

	unified := FuseDetections(0, appearance, motion, DefaultFusionParams())
	require.Len(t, unified, 2)

	assert.Equal(t, SourceAppearanceOnly, unified[0].Source)
	assert.InDelta(t, 0.8*0.7, unified[0].Confidence, eps)
	assert.Equal(t, CandidateUnknown, unified[0].MotionType)
	assert.Equal(t, "snail", unified[0].Class)

	assert.Equal(t, SourceMotionOnly, unified[1].Source)
	assert.InDelta(t, 0.5*0.7, unified[1].Confidence, eps)
	assert.Equal(t, CandidateBrightOnly, unified[1].MotionType)
	assert.Empty(t, unified[1].Class)
	assert.Equal(t, 50.0, unified[1].Area)
}

func TestFuseDetectionsMotionUsedOnce(t *testing.T) {
	appearance := []AppearanceDetection{appearanceAt(10, 10, 0.9, "a"), appearanceAt(11, 10, 0.9, "b")}
	motion := []OrganismCandidate{motionCandidate(10, 10, CandidateCoupled)}

	unified := FuseDetections(0, appearance, motion, DefaultFusionParams())
	require.Len(t, unified, 2)
	assert.Equal(t, SourceFused, unified[0].Source)
	assert.Equal(t, SourceAppearanceOnly, unified[1].Source)
}

func TestFuseDetectionsZeroScoreNotFused(t *testing.T) {
	// Eligible by distance (exactly at threshold) but both IoU and distance score are zero
	appearance := []AppearanceDetection{{
		BBox:       NewRect(-1, -1, 2, 2),
		Centroid:   NewPoint(0, 0),
		Confidence: 0.9,
	}}
	motion := []OrganismCandidate{{
		Centroid: NewPoint(50, 0),
		BBox:     NewRect(49, -1, 2, 2),
		Type:     CandidateDarkOnly,
	}}

	unified := FuseDetections(0, appearance, motion, DefaultFusionParams())
	require.Len(t, unified, 2)
	assert.Equal(t, SourceAppearanceOnly, unified[0].Source)
	assert.Equal(t, SourceMotionOnly, unified[1].Source)
}

func TestFuseDetectionsBestScoreWins(t *testing.T) {
	appearance := []AppearanceDetection{appearanceAt(10, 10, 0.8, "crab")}
	motion := []OrganismCandidate{
		motionCandidate(30, 10, CandidateDarkOnly),
		motionCandidate(11, 10, CandidateBrightOnly),
	}

	unified := FuseDetections(0, appearance, motion, DefaultFusionParams())
	require.Len(t, unified, 2)
	assert.Equal(t, SourceFused, unified[0].Source)
	assert.Equal(t, CandidateBrightOnly, unified[0].MotionType)
	assert.Equal(t, SourceMotionOnly, unified[1].Source)
	assert.Equal(t, CandidateDarkOnly, unified[1].MotionType)
}

func TestCandidatesToDetections(t *testing.T) {
	motion := []OrganismCandidate{motionCandidate(1, 1, CandidateCoupled), motionCandidate(100, 1, CandidateDarkOnly)}
	unified := CandidatesToDetections(5, motion, DefaultFusionParams())
	require.Len(t, unified, 2)
	for i, det := range unified {
		assert.Equal(t, SourceMotionOnly, det.Source)
		assert.Equal(t, motion[i].Centroid, det.Centroid)
		assert.Equal(t, 5, det.Frame)
	}
}

func TestFusionParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultFusionParams().Validate())
	bad := DefaultFusionParams()
	bad.DistanceThreshold = 0
	assert.Error(t, bad.Validate())
	bad = DefaultFusionParams()
	bad.IoUThreshold = 1.5
	assert.Error(t, bad.Validate())
}

func TestDetectionSourceRank(t *testing.T) {
	assert.Less(t, SourceFused.Rank(), SourceAppearanceOnly.Rank())
	assert.Less(t, SourceAppearanceOnly.Rank(), SourceMotionOnly.Rank())

	var src DetectionSource
	require.NoError(t, src.UnmarshalText([]byte("appearance")))
	assert.Equal(t, SourceAppearanceOnly, src)
	assert.Error(t, src.UnmarshalText([]byte("radar")))
}
