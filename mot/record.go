package mot

// TrackRecord is exported form of a finalized track
type TrackRecord struct {
	ID              int               `json:"track_id"`
	Frames          []int             `json:"frames"`
	Positions       []Point           `json:"positions"`
	BBoxes          []Rectangle       `json:"bboxes"`
	Areas           []float64         `json:"areas"`
	CandidateTypes  []CandidateType   `json:"candidate_types"`
	Sources         []DetectionSource `json:"sources"`
	Confidences     []float64         `json:"confidences"`
	Smoothed        []Point           `json:"smoothed"`
	IsValid         bool              `json:"is_valid"`
	State           string            `json:"state"`
	Length          int               `json:"length"`
	Displacement    float64           `json:"displacement"`
	MeanSpeed       float64           `json:"avg_speed"`
	TotalDuration   int               `json:"total_duration"`
	RestPeriods     int               `json:"rest_periods"`
	ColorChanges    int               `json:"color_changes"`
	Quality         string            `json:"quality"`
	FusedRatio      float64           `json:"fused_ratio"`
	MostLikelyClass string            `json:"most_likely_class,omitempty"`
	PrimarySource   string            `json:"primary_source"`
}

// NewTrackRecord snapshots track. Slices are copied so the record stays valid if the track keeps growing
func NewTrackRecord(track *Track) TrackRecord {
	return TrackRecord{
		ID:              track.ID,
		Frames:          append([]int(nil), track.Frames...),
		Positions:       append([]Point(nil), track.Positions...),
		BBoxes:          append([]Rectangle(nil), track.BBoxes...),
		Areas:           append([]float64(nil), track.Areas...),
		CandidateTypes:  append([]CandidateType(nil), track.Types...),
		Sources:         append([]DetectionSource(nil), track.Sources...),
		Confidences:     append([]float64(nil), track.Confidences...),
		Smoothed:        append([]Point(nil), track.Smoothed...),
		IsValid:         track.IsValid,
		State:           track.State.String(),
		Length:          track.Length(),
		Displacement:    track.Displacement(),
		MeanSpeed:       track.MeanSpeed(),
		TotalDuration:   track.TotalDuration(),
		RestPeriods:     track.RestPeriods(),
		ColorChanges:    track.ColorChanges(),
		Quality:         track.Quality(),
		FusedRatio:      track.FusedRatio(),
		MostLikelyClass: track.MostLikelyClass(),
		PrimarySource:   track.PrimarySource(),
	}
}
