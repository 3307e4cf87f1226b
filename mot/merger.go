package mot

import (
	"github.com/pkg/errors"
)

// MergeParams configures coupling of dark and bright blobs into organism candidates.
type MergeParams struct {
	// Max centroid distance (pixels) for a dark and a bright blob to be treated as one organism. Default 80
	MergeRadius float64 `json:"merge_radius" yaml:"merge_radius" mapstructure:"merge_radius"`
	// Min distance between separate organisms. Default 10. Kept for reporting, merging does not use it
	MinSeparation float64 `json:"min_separation" yaml:"min_separation" mapstructure:"min_separation"`
}

// DefaultMergeParams returns default merge parameters
func DefaultMergeParams() MergeParams {
	return MergeParams{
		MergeRadius:   80.0,
		MinSeparation: 10.0,
	}
}

// Validate checks that parameters are usable
func (p MergeParams) Validate() error {
	if p.MergeRadius <= 0 {
		return errors.Errorf("merge radius must be positive, got %f", p.MergeRadius)
	}
	if p.MinSeparation < 0 {
		return errors.Errorf("min separation must not be negative, got %f", p.MinSeparation)
	}
	return nil
}

// MergeBlobs combines dark and bright blobs of a single frame into organism candidates.
//
// Every dark/bright pair within merge radius is a coupling candidate. Pairs are accepted greedily
// from the closest one, each blob being used at most once. Leftover blobs become single-source
// candidates. Output order: coupled candidates in acceptance order, then dark_only, then bright_only.
func MergeBlobs(frame int, dark, bright []Blob, params MergeParams) []OrganismCandidate {
	candidates := make([]OrganismCandidate, 0, len(dark)+len(bright))
	usedDark := make([]bool, len(dark))
	usedBright := make([]bool, len(bright))

	if len(dark) > 0 && len(bright) > 0 {
		pairs := make(pairHeap, 0)
		for d := range dark {
			for b := range bright {
				dist := euclideanDistance(dark[d].Centroid, bright[b].Centroid)
				if dist <= params.MergeRadius {
					pairs.Push(distancePair{i: d, j: b, distance: dist})
				}
			}
		}
		for _, pair := range greedyClaim(&pairs, len(dark), len(bright)) {
			usedDark[pair.i] = true
			usedBright[pair.j] = true
			candidates = append(candidates, coupleBlobs(frame, dark[pair.i], bright[pair.j]))
		}
	}

	for d, blob := range dark {
		if usedDark[d] {
			continue
		}
		candidates = append(candidates, OrganismCandidate{
			Frame:     frame,
			Centroid:  blob.Centroid,
			BBox:      blob.BBox,
			TotalArea: blob.Area,
			DarkBlobs: []Blob{blob},
			Type:      CandidateDarkOnly,
		})
	}
	for b, blob := range bright {
		if usedBright[b] {
			continue
		}
		candidates = append(candidates, OrganismCandidate{
			Frame:       frame,
			Centroid:    blob.Centroid,
			BBox:        blob.BBox,
			TotalArea:   blob.Area,
			BrightBlobs: []Blob{blob},
			Type:        CandidateBrightOnly,
		})
	}
	return candidates
}

// coupleBlobs builds coupled candidate: area-weighted centroid and union bounding box
func coupleBlobs(frame int, dark, bright Blob) OrganismCandidate {
	totalArea := dark.Area + bright.Area
	var centroid Point
	if totalArea > 0 {
		centroid = Point{
			X: (dark.Centroid.X*dark.Area + bright.Centroid.X*bright.Area) / totalArea,
			Y: (dark.Centroid.Y*dark.Area + bright.Centroid.Y*bright.Area) / totalArea,
		}
	} else {
		// Degenerate detector output: fall back to midpoint
		centroid = Point{
			X: (dark.Centroid.X + bright.Centroid.X) / 2.0,
			Y: (dark.Centroid.Y + bright.Centroid.Y) / 2.0,
		}
	}
	return OrganismCandidate{
		Frame:       frame,
		Centroid:    centroid,
		BBox:        dark.BBox.Union(bright.BBox),
		TotalArea:   totalArea,
		DarkBlobs:   []Blob{dark},
		BrightBlobs: []Blob{bright},
		Type:        CandidateCoupled,
	}
}
