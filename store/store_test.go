package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/LdDl/benthic-mot/features"
	"github.com/LdDl/benthic-mot/mot"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tracks.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(t *testing.T) mot.RunResult {
	t.Helper()
	pipeline, err := mot.NewPipeline(mot.DefaultPipelineParams())
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		x := float64(i) * 8
		pipeline.ProcessFrame(mot.Frame{
			Index: i,
			Dark:  []mot.Blob{{Centroid: mot.NewPoint(x, 50), BBox: mot.NewRect(x-4, 46, 8, 8), Area: 40}},
			Bright: []mot.Blob{
				{Centroid: mot.NewPoint(x+3, 50), BBox: mot.NewRect(x, 47, 6, 6), Area: 10},
				{Centroid: mot.NewPoint(400, 400), BBox: mot.NewRect(398, 398, 4, 4), Area: 4},
			},
		})
	}
	return pipeline.Finalize()
}

func TestSaveAndLoadRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun(t)
	require.Len(t, run.Tracks, 2)

	require.NoError(t, s.SaveRun(ctx, "clip_01.mp4", run))

	loaded, err := s.LoadRun(ctx, run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, loaded); diff != "" {
		t.Errorf("Loaded run differs (-saved +loaded):\n%s", diff)
	}

	valid, err := s.LoadTracks(ctx, run.RunID, true)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, run.Tracks[0].ID, valid[0].ID)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, "clip_01.mp4", runs[0].Clip)
	assert.Equal(t, 6, runs[0].Frames)
	assert.Equal(t, 2, runs[0].TotalTracks)
	assert.Equal(t, 1, runs[0].ValidTracks)
}

func TestSaveRunTwiceReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun(t)
	require.NoError(t, s.SaveRun(ctx, "a", run))

	run.Tracks = run.Tracks[:1]
	require.NoError(t, s.SaveRun(ctx, "b", run))

	tracks, err := s.LoadTracks(ctx, run.RunID, false)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].Clip)
}

func TestSaveAndLoadFeatures(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun(t)
	require.NoError(t, s.SaveRun(ctx, "clip", run))

	extractor, err := features.NewExtractor(8.0)
	require.NoError(t, err)
	extracted, err := extractor.ExtractAll(ctx, run.Tracks)
	require.NoError(t, err)
	require.NoError(t, s.SaveFeatures(ctx, run.RunID, extracted))

	loaded, err := s.LoadFeatures(ctx, run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(extracted, loaded); diff != "" {
		t.Errorf("Loaded features differ (-saved +loaded):\n%s", diff)
	}
}

func TestLoadMissingRun(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	tracks, err := s.LoadTracks(context.Background(), "missing", false)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}
