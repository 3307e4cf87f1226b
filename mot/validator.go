package mot

import (
	"go.uber.org/zap"
)

// ValidateTrack tells whether track looks like a real organism trajectory:
// enough detections, enough chained displacement and mean step speed within bounds.
func ValidateTrack(track *Track, params TrackingParams) bool {
	if track.Length() < params.MinTrackLength {
		return false
	}
	if track.Displacement() < params.MinDisplacement {
		return false
	}
	speed := track.MeanSpeed()
	if speed < params.MinSpeed || speed > params.MaxSpeed {
		return false
	}
	return true
}

// Finalize validates every track ever created (active and frozen) and returns them sorted by identifier.
// Invalid tracks are flagged, not removed.
func (e *Engine) Finalize() []*Track {
	all := e.AllTracks()
	valid := 0
	for _, track := range all {
		track.IsValid = ValidateTrack(track, e.params)
		if track.IsValid {
			valid++
		}
	}
	e.logger.Info("tracks finalized", zap.Int("total", len(all)), zap.Int("valid", valid), zap.Int("frozen", len(e.frozen)))
	return all
}
