package mot

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// restZoneBonus multiplies distance of detections falling inside a resting track's zone
const restZoneBonus = 0.5

// TrackingParams configures association, rest handling and validation.
type TrackingParams struct {
	// Max distance (pixels) between prediction and detection for non-resting tracks. Default 60
	MaxDistance float64 `json:"max_distance" yaml:"max_distance" mapstructure:"max_distance"`
	// Max number of consecutive frames without match before track is frozen. Default 90 (~11 seconds at 8fps)
	MaxSkipFrames int `json:"max_skip_frames" yaml:"max_skip_frames" mapstructure:"max_skip_frames"`
	// Rest zone radius set on the first missed frame. Default 100
	InitialRestRadius float64 `json:"initial_rest_radius" yaml:"initial_rest_radius" mapstructure:"initial_rest_radius"`
	// Upper bound for rest zone radius. Default 200
	MaxRestRadius float64 `json:"max_rest_radius" yaml:"max_rest_radius" mapstructure:"max_rest_radius"`
	// Rest zone growth per missed frame (pixels). Default 10
	RestExpandRate float64 `json:"rest_expand_rate" yaml:"rest_expand_rate" mapstructure:"rest_expand_rate"`

	// Validation thresholds
	MinTrackLength  int     `json:"min_track_length" yaml:"min_track_length" mapstructure:"min_track_length"`
	MinDisplacement float64 `json:"min_displacement" yaml:"min_displacement" mapstructure:"min_displacement"`
	MinSpeed        float64 `json:"min_speed" yaml:"min_speed" mapstructure:"min_speed"`
	MaxSpeed        float64 `json:"max_speed" yaml:"max_speed" mapstructure:"max_speed"`

	// Time step of centroid smoother. Default 1.0 (one frame)
	FrameInterval float64 `json:"frame_interval" yaml:"frame_interval" mapstructure:"frame_interval"`
}

// DefaultTrackingParams returns default tracking parameters
func DefaultTrackingParams() TrackingParams {
	return TrackingParams{
		MaxDistance:       60.0,
		MaxSkipFrames:     90,
		InitialRestRadius: 100.0,
		MaxRestRadius:     200.0,
		RestExpandRate:    10.0,
		MinTrackLength:    5,
		MinDisplacement:   10.0,
		MinSpeed:          0.1,
		MaxSpeed:          30.0,
		FrameInterval:     1.0,
	}
}

// Validate checks that parameters are usable
func (p TrackingParams) Validate() error {
	if p.MaxDistance <= 0 {
		return errors.Errorf("max distance must be positive, got %f", p.MaxDistance)
	}
	if p.MaxSkipFrames < 0 {
		return errors.Errorf("max skip frames must not be negative, got %d", p.MaxSkipFrames)
	}
	if p.InitialRestRadius <= 0 {
		return errors.Errorf("initial rest radius must be positive, got %f", p.InitialRestRadius)
	}
	if p.MaxRestRadius < p.InitialRestRadius {
		return errors.Errorf("max rest radius %f is less than initial rest radius %f", p.MaxRestRadius, p.InitialRestRadius)
	}
	if p.RestExpandRate < 0 {
		return errors.Errorf("rest expand rate must not be negative, got %f", p.RestExpandRate)
	}
	if p.MinTrackLength < 1 {
		return errors.Errorf("min track length must be at least 1, got %d", p.MinTrackLength)
	}
	if p.MinDisplacement < 0 {
		return errors.Errorf("min displacement must not be negative, got %f", p.MinDisplacement)
	}
	if p.MinSpeed < 0 || p.MaxSpeed <= 0 || p.MinSpeed > p.MaxSpeed {
		return errors.Errorf("speed bounds [%f, %f] are invalid", p.MinSpeed, p.MaxSpeed)
	}
	if p.FrameInterval <= 0 {
		return errors.Errorf("frame interval must be positive, got %f", p.FrameInterval)
	}
	return nil
}

// Engine associates per-frame detections with persistent tracks.
// It is not safe for concurrent use: frames must be fed sequentially in index order.
type Engine struct {
	params TrackingParams
	// Tracks still taking part in association, in creation order
	active []*Track
	// Tracks which exceeded skip budget. Kept for output only
	frozen []*Track
	// Next track identifier. Identifiers are never reused
	nextID int

	logger   *zap.Logger
	observer Observer
}

// EngineOption customizes Engine
type EngineOption func(*Engine)

// WithLogger sets logger. Default is no-op logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets per-frame statistics receiver
func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewEngineDefault creates engine with default parameters
func NewEngineDefault(opts ...EngineOption) *Engine {
	engine, _ := NewEngine(DefaultTrackingParams(), opts...)
	return engine
}

// NewEngine creates new instance of Engine. Returns error for invalid parameters
func NewEngine(params TrackingParams, opts ...EngineOption) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create association engine")
	}
	engine := &Engine{
		params:   params,
		active:   make([]*Track, 0),
		frozen:   make([]*Track, 0),
		nextID:   1,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Params returns engine parameters
func (e *Engine) Params() TrackingParams {
	return e.params
}

// StepResult summarizes one processed frame
type StepResult struct {
	Frame      int
	Detections int
	Matched    int
	Created    int
	// Tracks left unmatched but kept in rest mode
	Resting int
	// Tracks frozen on this frame
	Frozen int
	// Active tracks after this frame, in creation order
	Active []*Track
}

// Step processes detections of a single frame.
//
// Detections are ordered by source priority (fused, appearance, motion) first, then every
// (detection, track) pair within the track's gate is ordered by distance and claimed greedily.
// Unmatched tracks age and rest; unmatched detections start new tracks.
func (e *Engine) Step(frame int, detections []UnifiedDetection) StepResult {
	sorted := make([]UnifiedDetection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Source.Rank() < sorted[j].Source.Rank()
	})

	result := StepResult{
		Frame:      frame,
		Detections: len(sorted),
	}

	matchedDetections := make([]bool, len(sorted))
	matchedTracks := make([]bool, len(e.active))

	if len(e.active) > 0 && len(sorted) > 0 {
		for _, pair := range e.associate(sorted) {
			track := e.active[pair.j]
			if err := track.update(sorted[pair.i], frame); err != nil {
				e.logger.Warn("centroid smoothing failed", zap.Int("track_id", track.ID), zap.Int("frame", frame), zap.Error(err))
			}
			matchedDetections[pair.i] = true
			matchedTracks[pair.j] = true
			result.Matched++
		}
	}

	// Age unmatched tracks. Tracks over skip budget leave active set for good
	survivors := make([]*Track, 0, len(e.active)+len(sorted))
	for j, track := range e.active {
		if matchedTracks[j] {
			survivors = append(survivors, track)
			continue
		}
		track.FramesSinceDetection++
		if track.FramesSinceDetection > e.params.MaxSkipFrames {
			track.freeze()
			e.frozen = append(e.frozen, track)
			result.Frozen++
			e.logger.Debug("track frozen", zap.Int("track_id", track.ID), zap.Int("frame", frame), zap.Int("length", track.Length()))
			continue
		}
		if !track.IsResting {
			track.enterRestMode(e.params.InitialRestRadius)
		} else {
			track.expandRestZone(e.params.RestExpandRate, e.params.MaxRestRadius)
		}
		survivors = append(survivors, track)
		result.Resting++
	}

	for i := range sorted {
		if matchedDetections[i] {
			continue
		}
		survivors = append(survivors, e.spawn(sorted[i], frame))
		result.Created++
	}
	e.active = survivors
	result.Active = e.active

	e.logger.Debug("frame associated",
		zap.Int("frame", frame),
		zap.Int("detections", result.Detections),
		zap.Int("matched", result.Matched),
		zap.Int("created", result.Created),
		zap.Int("resting", result.Resting),
		zap.Int("frozen", result.Frozen),
		zap.Int("active", len(e.active)),
	)
	e.observer.ObserveStep(result)
	return result
}

// associate returns accepted (detection, track) pairs: i indexes detections, j indexes active tracks
func (e *Engine) associate(detections []UnifiedDetection) []distancePair {
	numDet := len(detections)
	numTracks := len(e.active)

	predictions := make([]Point, numTracks)
	for j, track := range e.active {
		predictions[j] = track.PredictedPosition()
	}

	distances := mat.NewDense(numDet, numTracks, nil)
	for i, det := range detections {
		for j := range e.active {
			distances.Set(i, j, euclideanDistance(det.Centroid, predictions[j]))
		}
	}

	// Boost matches inside rest zones
	for j, track := range e.active {
		if !track.IsResting {
			continue
		}
		for i, det := range detections {
			if euclideanDistance(det.Centroid, track.RestZoneCenter) <= track.RestZoneRadius {
				distances.Set(i, j, distances.At(i, j)*restZoneBonus)
			}
		}
	}

	pairs := make(pairHeap, 0, numDet)
	for i := 0; i < numDet; i++ {
		for j, track := range e.active {
			gate := e.params.MaxDistance
			if track.IsResting {
				gate = track.RestZoneRadius
			}
			if dist := distances.At(i, j); dist <= gate {
				pairs.Push(distancePair{i: i, j: j, distance: dist})
			}
		}
	}
	return greedyClaim(&pairs, numDet, numTracks)
}

func (e *Engine) spawn(det UnifiedDetection, frame int) *Track {
	track := newTrack(e.nextID, e.params.FrameInterval)
	e.nextID++
	// First update never fails: smoother is only initialized
	_ = track.update(det, frame)
	return track
}

// ActiveTracks returns tracks still taking part in association, in creation order
func (e *Engine) ActiveTracks() []*Track {
	return e.active
}

// FrozenTracks returns tracks which exceeded skip budget, in freezing order
func (e *Engine) FrozenTracks() []*Track {
	return e.frozen
}

// AllTracks returns every track ever created sorted by identifier
func (e *Engine) AllTracks() []*Track {
	all := make([]*Track, 0, len(e.active)+len(e.frozen))
	all = append(all, e.active...)
	all = append(all, e.frozen...)
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID < all[j].ID
	})
	return all
}

// NextID returns identifier the next created track will get
func (e *Engine) NextID() int {
	return e.nextID
}
