package mot

import (
	"fmt"

	"github.com/pkg/errors"
)

// MotionConfidence is confidence assigned to every motion candidate regardless of blob area
const MotionConfidence = 0.7

// DetectionSource is provenance of unified detection. Lower value means higher association priority.
type DetectionSource uint8

const (
	// SourceFused means appearance model and motion agree
	SourceFused DetectionSource = iota
	// SourceAppearanceOnly means appearance model detection without motion support
	SourceAppearanceOnly
	// SourceMotionOnly means motion candidate missed by appearance model
	SourceMotionOnly
)

var detectionSourceNames = [...]string{"fused", "appearance", "motion"}

func (s DetectionSource) String() string {
	if int(s) < len(detectionSourceNames) {
		return detectionSourceNames[s]
	}
	return fmt.Sprintf("source(%d)", s)
}

// Rank returns association priority of the source (0 is the highest)
func (s DetectionSource) Rank() int {
	return int(s)
}

// MarshalText implements encoding.TextMarshaler
func (s DetectionSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *DetectionSource) UnmarshalText(text []byte) error {
	for i, name := range detectionSourceNames {
		if name == string(text) {
			*s = DetectionSource(i)
			return nil
		}
	}
	return fmt.Errorf("unknown detection source %q", string(text))
}

// AppearanceDetection is a box produced by the external appearance-based object detector
type AppearanceDetection struct {
	Frame      int       `json:"frame"`
	BBox       Rectangle `json:"bbox"`
	Centroid   Point     `json:"centroid"`
	Confidence float64   `json:"confidence"`
	Class      string    `json:"class"`
}

// UnifiedDetection is frame-local detection after fusing appearance and motion evidence
type UnifiedDetection struct {
	Frame          int
	Centroid       Point
	BBox           Rectangle
	Area           float64
	AppearanceConf float64
	MotionConf     float64
	Confidence     float64
	Source         DetectionSource
	// Class label from appearance model. Empty for motion-only detections
	Class string
	// MotionType is CandidateUnknown for appearance-only detections
	MotionType CandidateType
}

// FusionParams configures fusion of appearance detections with motion candidates
type FusionParams struct {
	// Min IoU for appearance box and motion box to be considered the same organism. Default 0.3
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold" mapstructure:"iou_threshold"`
	// Max centroid distance (pixels) for the same purpose. Default 50
	DistanceThreshold float64 `json:"distance_threshold" yaml:"distance_threshold" mapstructure:"distance_threshold"`
	// Weight of appearance confidence. Default 0.7
	AppearanceWeight float64 `json:"appearance_weight" yaml:"appearance_weight" mapstructure:"appearance_weight"`
	// Weight of motion confidence. Default 0.3
	MotionWeight float64 `json:"motion_weight" yaml:"motion_weight" mapstructure:"motion_weight"`
	// Multiplier applied when both sources agree. Default 1.2
	BothDetectedBoost float64 `json:"both_detected_boost" yaml:"both_detected_boost" mapstructure:"both_detected_boost"`
	// Base confidence of motion-only detections. Default 0.5
	MotionOnlyBaseConf float64 `json:"motion_only_base_conf" yaml:"motion_only_base_conf" mapstructure:"motion_only_base_conf"`
}

// DefaultFusionParams returns default fusion parameters
func DefaultFusionParams() FusionParams {
	return FusionParams{
		IoUThreshold:       0.3,
		DistanceThreshold:  50.0,
		AppearanceWeight:   0.7,
		MotionWeight:       0.3,
		BothDetectedBoost:  1.2,
		MotionOnlyBaseConf: 0.5,
	}
}

// Validate checks that parameters are usable
func (p FusionParams) Validate() error {
	if p.IoUThreshold <= 0 || p.IoUThreshold > 1 {
		return errors.Errorf("iou threshold must be in (0, 1], got %f", p.IoUThreshold)
	}
	if p.DistanceThreshold <= 0 {
		return errors.Errorf("distance threshold must be positive, got %f", p.DistanceThreshold)
	}
	if p.AppearanceWeight < 0 || p.MotionWeight < 0 {
		return errors.Errorf("fusion weights must not be negative, got %f and %f", p.AppearanceWeight, p.MotionWeight)
	}
	if p.BothDetectedBoost <= 0 {
		return errors.Errorf("both-detected boost must be positive, got %f", p.BothDetectedBoost)
	}
	if p.MotionOnlyBaseConf <= 0 {
		return errors.Errorf("motion-only base confidence must be positive, got %f", p.MotionOnlyBaseConf)
	}
	return nil
}

// FuseDetections merges appearance detections and motion candidates of one frame.
//
// Each appearance detection claims at most one unconsumed motion candidate: the eligible one
// (IoU or distance within threshold) with the best score 0.7*IoU + 0.3*(1 - dist/distThreshold).
// Output order: appearance-driven detections (fused or appearance-only) in input order,
// then motion-only detections in candidate order.
func FuseDetections(frame int, appearance []AppearanceDetection, motion []OrganismCandidate, params FusionParams) []UnifiedDetection {
	unified := make([]UnifiedDetection, 0, len(appearance)+len(motion))
	usedMotion := make([]bool, len(motion))

	for _, det := range appearance {
		bestIdx := -1
		bestScore := 0.0
		for i := range motion {
			if usedMotion[i] {
				continue
			}
			iou := IoU(det.BBox, motion[i].BBox)
			dist := euclideanDistance(det.Centroid, motion[i].Centroid)
			if iou < params.IoUThreshold && dist > params.DistanceThreshold {
				continue
			}
			score := iou*0.7 + maxFloat64(0, 1-dist/params.DistanceThreshold)*0.3
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			usedMotion[bestIdx] = true
			conf := (det.Confidence*params.AppearanceWeight + MotionConfidence*params.MotionWeight) * params.BothDetectedBoost
			unified = append(unified, UnifiedDetection{
				Frame:          frame,
				Centroid:       det.Centroid,
				BBox:           det.BBox,
				Area:           det.BBox.Area(),
				AppearanceConf: det.Confidence,
				MotionConf:     MotionConfidence,
				Confidence:     minFloat64(conf, 1.0),
				Source:         SourceFused,
				Class:          det.Class,
				MotionType:     motion[bestIdx].Type,
			})
			continue
		}

		unified = append(unified, UnifiedDetection{
			Frame:          frame,
			Centroid:       det.Centroid,
			BBox:           det.BBox,
			Area:           det.BBox.Area(),
			AppearanceConf: det.Confidence,
			Confidence:     det.Confidence * params.AppearanceWeight,
			Source:         SourceAppearanceOnly,
			Class:          det.Class,
			MotionType:     CandidateUnknown,
		})
	}

	for i, cand := range motion {
		if usedMotion[i] {
			continue
		}
		unified = append(unified, motionOnly(frame, cand, params))
	}
	return unified
}

// CandidatesToDetections wraps motion candidates as motion-only detections (no appearance model)
func CandidatesToDetections(frame int, motion []OrganismCandidate, params FusionParams) []UnifiedDetection {
	return FuseDetections(frame, nil, motion, params)
}

func motionOnly(frame int, cand OrganismCandidate, params FusionParams) UnifiedDetection {
	return UnifiedDetection{
		Frame:      frame,
		Centroid:   cand.Centroid,
		BBox:       cand.BBox,
		Area:       cand.TotalArea,
		MotionConf: MotionConfidence,
		Confidence: params.MotionOnlyBaseConf * MotionConfidence,
		Source:     SourceMotionOnly,
		MotionType: cand.Type,
	}
}
