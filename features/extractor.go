package features

import (
	"context"
	"runtime"
	"sort"

	"github.com/LdDl/benthic-mot/mot"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TrackFeatures is complete feature set of a single track
type TrackFeatures struct {
	TrackID int `json:"track_id"`
	// Primary detection source of the track
	Source        string             `json:"detection_source"`
	FrameRange    [2]int             `json:"frame_range"`
	PositionCount int                `json:"position_count"`
	Metrics       MotionMetrics      `json:"motion_metrics"`
	Behavior      BehavioralFeatures `json:"behavioral_features"`
	Vector        FeatureVector      `json:"feature_vector"`
}

// Extractor computes features of finalized tracks
type Extractor struct {
	fps     float64
	workers int
	logger  *zap.Logger
}

// Option customizes Extractor
type Option func(*Extractor)

// WithWorkers bounds number of tracks processed concurrently by ExtractAll. Default is GOMAXPROCS
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets logger. Default is no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates extractor for tracks sampled at fps frames per second
func NewExtractor(fps float64, opts ...Option) (*Extractor, error) {
	if fps <= 0 {
		return nil, errors.Errorf("fps must be positive, got %f", fps)
	}
	e := &Extractor{
		fps:     fps,
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// FPS returns frame rate used for per-second metrics
func (e *Extractor) FPS() float64 {
	return e.fps
}

// ExtractTrack computes features from a bare position history. Frame range is (0, len(positions)).
// Tracks with fewer than two positions get zero metrics, unknown labels and a zero vector.
func (e *Extractor) ExtractTrack(id int, positions []mot.Point, source string) TrackFeatures {
	tf := TrackFeatures{
		TrackID:       id,
		Source:        source,
		FrameRange:    [2]int{0, len(positions)},
		PositionCount: len(positions),
		Behavior: BehavioralFeatures{
			TrajectoryType: TrajectoryUnknown,
			Organism:       OrganismUnknown,
		},
	}
	if len(positions) < 2 {
		return tf
	}
	tf.Metrics = ExtractMotionMetrics(positions, e.fps)
	tf.Behavior = DeriveBehavior(tf.Metrics)
	tf.Vector = NewFeatureVector(tf.Metrics, tf.Behavior)
	return tf
}

// ExtractRecord computes features of a finalized track record, keeping its real frame range
func (e *Extractor) ExtractRecord(record mot.TrackRecord) TrackFeatures {
	tf := e.ExtractTrack(record.ID, record.Positions, record.PrimarySource)
	if n := len(record.Frames); n > 0 {
		tf.FrameRange = [2]int{record.Frames[0], record.Frames[n-1]}
	}
	return tf
}

// ExtractAll computes features of every record with a non-empty history.
// Records are processed concurrently: finalized histories are never mutated.
// Result is ordered by track identifier.
func (e *Extractor) ExtractAll(ctx context.Context, records []mot.TrackRecord) ([]TrackFeatures, error) {
	results := make([]TrackFeatures, len(records))
	done := make([]bool, len(records))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)
	for i := range records {
		if len(records[i].Positions) == 0 {
			continue
		}
		i := i
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.ExtractRecord(records[i])
			done[i] = true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "Can't extract track features")
	}

	features := make([]TrackFeatures, 0, len(records))
	for i := range results {
		if done[i] {
			features = append(features, results[i])
		}
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].TrackID < features[j].TrackID
	})
	e.logger.Info("features extracted", zap.Int("records", len(records)), zap.Int("tracks", len(features)))
	return features, nil
}

// Matrix returns feature vectors as rows ordered by track identifier
func Matrix(features []TrackFeatures) [][]float64 {
	sorted := make([]TrackFeatures, len(features))
	copy(sorted, features)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrackID < sorted[j].TrackID
	})
	matrix := make([][]float64, len(sorted))
	for i := range sorted {
		matrix[i] = sorted[i].Vector.Slice()
	}
	return matrix
}
