package mot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingObserver struct {
	candidates int
	detections int
	steps      int
	created    int
}

func (o *countingObserver) ObserveCandidates(_ int, candidates []OrganismCandidate, detections []UnifiedDetection) {
	o.candidates += len(candidates)
	o.detections += len(detections)
}

func (o *countingObserver) ObserveStep(result StepResult) {
	o.steps++
	o.created += result.Created
}

// crawlingFrame places one coupled organism at x with an appearance box over it,
// and a lone reflection far away
func crawlingFrame(index int, x float64) Frame {
	return Frame{
		Index:  index,
		Dark:   []Blob{{Centroid: NewPoint(x, 100), BBox: NewRect(x-6, 94, 12, 12), Area: 80}},
		Bright: []Blob{{Centroid: NewPoint(x+8, 100), BBox: NewRect(x+4, 96, 8, 8), Area: 20}, {Centroid: NewPoint(600, 600), BBox: NewRect(598, 598, 4, 4), Area: 10}},
		Appearance: []AppearanceDetection{{
			Frame:      index,
			BBox:       NewRect(x-8, 92, 20, 16),
			Centroid:   NewPoint(x+2, 100),
			Confidence: 0.9,
			Class:      "crab",
		}},
	}
}

func TestPipeline(t *testing.T) {
	observer := &countingObserver{}
	pipeline, err := NewPipeline(DefaultPipelineParams(), WithLogger(zaptest.NewLogger(t)), WithObserver(observer))
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		res := pipeline.ProcessFrame(crawlingFrame(i, 50+float64(i)*5))
		require.Len(t, res.Candidates, 2)
		assert.Equal(t, CandidateCoupled, res.Candidates[0].Type)
		assert.Equal(t, CandidateBrightOnly, res.Candidates[1].Type)
		require.Len(t, res.Detections, 2)
		assert.Equal(t, SourceFused, res.Detections[0].Source)
		assert.Equal(t, SourceMotionOnly, res.Detections[1].Source)
	}

	result := pipeline.Finalize()
	assert.Equal(t, pipeline.RunID().String(), result.RunID)
	assert.Equal(t, 8, result.Summary.Frames)
	assert.Equal(t, 16, result.Summary.TotalCandidates)
	assert.Equal(t, map[string]int{"coupled": 8, "bright_only": 8}, result.Summary.CandidateTypes)
	assert.Equal(t, map[string]int{"fused": 8, "motion": 8}, result.Summary.Sources)
	require.Len(t, result.Tracks, 2)
	assert.Equal(t, 2, result.Summary.TotalTracks)
	assert.Equal(t, 1, result.Summary.ValidTracks)

	crab := result.Tracks[0]
	assert.True(t, crab.IsValid)
	assert.Equal(t, 8, crab.Length)
	assert.Equal(t, "crab", crab.MostLikelyClass)
	assert.Equal(t, "HIGH", crab.Quality)
	assert.Equal(t, "fused", crab.PrimarySource)
	assert.InDelta(t, 35.0, crab.Displacement, eps)

	reflection := result.Tracks[1]
	assert.False(t, reflection.IsValid)
	assert.Equal(t, "LOW", reflection.Quality)
	assert.Empty(t, reflection.MostLikelyClass)

	assert.Equal(t, 16, observer.candidates)
	assert.Equal(t, 16, observer.detections)
	assert.Equal(t, 8, observer.steps)
	assert.Equal(t, 2, observer.created)
}

func TestRunResultJSON(t *testing.T) {
	pipeline, err := NewPipeline(DefaultPipelineParams())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		pipeline.ProcessFrame(crawlingFrame(i, float64(i)*10))
	}
	data, err := json.Marshal(pipeline.Finalize())
	require.NoError(t, err)

	var decoded RunResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Tracks, 2)
	assert.Equal(t, []CandidateType{CandidateCoupled, CandidateCoupled, CandidateCoupled}, decoded.Tracks[0].CandidateTypes)
	assert.Equal(t, []DetectionSource{SourceFused, SourceFused, SourceFused}, decoded.Tracks[0].Sources)
	assert.Equal(t, DefaultPipelineParams(), decoded.Params)
}

func TestPipelineInvalidParams(t *testing.T) {
	params := DefaultPipelineParams()
	params.Merge.MergeRadius = -1
	_, err := NewPipeline(params)
	assert.Error(t, err)
}
