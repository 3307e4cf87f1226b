package mot

import (
	"fmt"
)

// TrackState is lifecycle state of a track
type TrackState uint8

const (
	// TrackActive means the track was matched on the last processed frame
	TrackActive TrackState = iota
	// TrackResting means the track is unmatched but still within skip budget
	TrackResting
	// TrackFrozen means the track exceeded skip budget and is never updated again
	TrackFrozen
)

var trackStateNames = [...]string{"active", "resting", "frozen"}

func (s TrackState) String() string {
	if int(s) < len(trackStateNames) {
		return trackStateNames[s]
	}
	return fmt.Sprintf("track_state(%d)", s)
}

// Track is a persistent trajectory of one presumed organism.
// Per-update slices are parallel: index i of each of them describes the i-th matched detection.
type Track struct {
	ID int

	Frames      []int
	Positions   []Point
	BBoxes      []Rectangle
	Areas       []float64
	Types       []CandidateType
	Sources     []DetectionSource
	Confidences []float64
	// Kalman-smoothed centroids
	Smoothed []Point

	// Classes reported by appearance model, in order of appearance. Not parallel to Frames
	Classes []string

	FramesSinceDetection int
	IsResting            bool
	RestZoneCenter       Point
	RestZoneRadius       float64
	State                TrackState

	// Set once by the validator
	IsValid bool

	smoother *centroidSmoother
	dt       float64
}

func newTrack(id int, dt float64) *Track {
	return &Track{
		ID:          id,
		Frames:      make([]int, 0, 16),
		Positions:   make([]Point, 0, 16),
		BBoxes:      make([]Rectangle, 0, 16),
		Areas:       make([]float64, 0, 16),
		Types:       make([]CandidateType, 0, 16),
		Sources:     make([]DetectionSource, 0, 16),
		Confidences: make([]float64, 0, 16),
		Smoothed:    make([]Point, 0, 16),
		State:       TrackActive,
		dt:          dt,
	}
}

// update appends detection to history and leaves rest mode.
// Returned error comes from smoother only: history is always appended.
func (track *Track) update(det UnifiedDetection, frame int) error {
	track.Frames = append(track.Frames, frame)
	track.Positions = append(track.Positions, det.Centroid)
	track.BBoxes = append(track.BBoxes, det.BBox)
	track.Areas = append(track.Areas, det.Area)
	track.Types = append(track.Types, det.MotionType)
	track.Sources = append(track.Sources, det.Source)
	track.Confidences = append(track.Confidences, det.Confidence)
	if det.Class != "" {
		track.Classes = append(track.Classes, det.Class)
	}

	track.FramesSinceDetection = 0
	track.IsResting = false
	track.RestZoneCenter = Point{}
	track.State = TrackActive

	if track.smoother == nil {
		track.smoother = newCentroidSmoother(det.Centroid, track.dt)
		track.Smoothed = append(track.Smoothed, det.Centroid)
		return nil
	}
	smoothed, err := track.smoother.observe(det.Centroid)
	track.Smoothed = append(track.Smoothed, smoothed)
	return err
}

// enterRestMode marks track as resting with search zone around last known position
func (track *Track) enterRestMode(initialRadius float64) {
	track.IsResting = true
	track.State = TrackResting
	if last, ok := track.LastPosition(); ok {
		track.RestZoneCenter = last
	}
	track.RestZoneRadius = initialRadius
}

// expandRestZone grows search zone by step, never beyond maxRadius
func (track *Track) expandRestZone(step, maxRadius float64) {
	track.RestZoneRadius = minFloat64(maxRadius, track.RestZoneRadius+step)
}

func (track *Track) freeze() {
	track.IsResting = false
	track.State = TrackFrozen
}

// Length returns number of matched detections
func (track *Track) Length() int {
	return len(track.Frames)
}

// LastPosition returns last known centroid. False if track has no history
func (track *Track) LastPosition() (Point, bool) {
	if len(track.Positions) == 0 {
		return Point{}, false
	}
	return track.Positions[len(track.Positions)-1], true
}

// PredictedPosition returns where the organism is expected on the next frame.
// Resting tracks are expected at rest zone center, others are extrapolated linearly from two last positions.
func (track *Track) PredictedPosition() Point {
	if track.IsResting {
		return track.RestZoneCenter
	}
	n := len(track.Positions)
	switch {
	case n >= 2:
		last := track.Positions[n-1]
		prev := track.Positions[n-2]
		return Point{
			X: last.X + (last.X - prev.X),
			Y: last.Y + (last.Y - prev.Y),
		}
	case n == 1:
		return track.Positions[0]
	default:
		return Point{}
	}
}

// Displacement returns chained path length over consecutive updates
func (track *Track) Displacement() float64 {
	total := 0.0
	for i := 1; i < len(track.Positions); i++ {
		total += euclideanDistance(track.Positions[i-1], track.Positions[i])
	}
	return total
}

// MeanSpeed returns displacement per step. Zero for tracks shorter than 2
func (track *Track) MeanSpeed() float64 {
	if len(track.Positions) < 2 {
		return 0.0
	}
	return track.Displacement() / float64(len(track.Positions)-1)
}

// TotalDuration returns frame span: last frame - first frame + 1
func (track *Track) TotalDuration() int {
	if len(track.Frames) == 0 {
		return 0
	}
	return track.Frames[len(track.Frames)-1] - track.Frames[0] + 1
}

// RestPeriods returns number of gaps in frame history
func (track *Track) RestPeriods() int {
	count := 0
	for i := 1; i < len(track.Frames); i++ {
		if track.Frames[i]-track.Frames[i-1] > 1 {
			count++
		}
	}
	return count
}

// ColorChanges returns number of candidate type transitions between consecutive updates
func (track *Track) ColorChanges() int {
	count := 0
	for i := 1; i < len(track.Types); i++ {
		if track.Types[i] != track.Types[i-1] {
			count++
		}
	}
	return count
}

// FusedRatio returns share of updates confirmed by both appearance and motion
func (track *Track) FusedRatio() float64 {
	if len(track.Sources) == 0 {
		return 0.0
	}
	fused := 0
	for _, src := range track.Sources {
		if src == SourceFused {
			fused++
		}
	}
	return float64(fused) / float64(len(track.Sources))
}

// Quality returns HIGH, MEDIUM or LOW depending on share of fused updates
func (track *Track) Quality() string {
	ratio := track.FusedRatio()
	switch {
	case ratio > 0.5:
		return "HIGH"
	case ratio > 0:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MostLikelyClass returns most frequent appearance class. On ties the class that reached the count first wins
func (track *Track) MostLikelyClass() string {
	return mode(track.Classes)
}

// PrimarySource returns most frequent detection source name
func (track *Track) PrimarySource() string {
	names := make([]string, len(track.Sources))
	for i, src := range track.Sources {
		names[i] = src.String()
	}
	return mode(names)
}

func mode(values []string) string {
	counts := make(map[string]int, len(values))
	best := ""
	bestCount := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}
