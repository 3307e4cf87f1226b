package mot

import (
	"fmt"
)

// Blob is a single brightness deviation reported by the external blob detector for one frame.
type Blob struct {
	Centroid Point     `json:"centroid"`
	BBox     Rectangle `json:"bbox"`
	Area     float64   `json:"area"`
}

// CandidateType tells which kinds of blobs formed an organism candidate
type CandidateType uint8

const (
	// CandidateUnknown is used for detections that carry no blob evidence (appearance-only)
	CandidateUnknown CandidateType = iota
	// CandidateDarkOnly is a lone dark blob (shadow)
	CandidateDarkOnly
	// CandidateBrightOnly is a lone bright blob (reflection)
	CandidateBrightOnly
	// CandidateCoupled is a dark and a bright blob merged into one organism
	CandidateCoupled
)

var candidateTypeNames = [...]string{"unknown", "dark_only", "bright_only", "coupled"}

func (ct CandidateType) String() string {
	if int(ct) < len(candidateTypeNames) {
		return candidateTypeNames[ct]
	}
	return fmt.Sprintf("candidate_type(%d)", ct)
}

// MarshalText implements encoding.TextMarshaler
func (ct CandidateType) MarshalText() ([]byte, error) {
	return []byte(ct.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (ct *CandidateType) UnmarshalText(text []byte) error {
	for i, name := range candidateTypeNames {
		if name == string(text) {
			*ct = CandidateType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown candidate type %q", string(text))
}

// OrganismCandidate is a frame-local, possibly merged, motion detection.
// It is created by MergeBlobs and never mutated afterwards.
type OrganismCandidate struct {
	Frame       int
	Centroid    Point
	BBox        Rectangle
	TotalArea   float64
	DarkBlobs   []Blob
	BrightBlobs []Blob
	Type        CandidateType
}

// ComponentCount returns number of blobs contributing to candidate
func (c OrganismCandidate) ComponentCount() int {
	return len(c.DarkBlobs) + len(c.BrightBlobs)
}
