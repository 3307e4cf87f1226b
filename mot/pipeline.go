package mot

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Frame holds external detector output for a single frame
type Frame struct {
	Index      int                   `json:"frame"`
	Dark       []Blob                `json:"dark"`
	Bright     []Blob                `json:"bright"`
	Appearance []AppearanceDetection `json:"appearance,omitempty"`
}

// PipelineParams bundles parameters of every stage
type PipelineParams struct {
	Merge    MergeParams    `json:"merge" yaml:"merge" mapstructure:"merge"`
	Fusion   FusionParams   `json:"fusion" yaml:"fusion" mapstructure:"fusion"`
	Tracking TrackingParams `json:"tracking" yaml:"tracking" mapstructure:"tracking"`
}

// DefaultPipelineParams returns defaults of every stage
func DefaultPipelineParams() PipelineParams {
	return PipelineParams{
		Merge:    DefaultMergeParams(),
		Fusion:   DefaultFusionParams(),
		Tracking: DefaultTrackingParams(),
	}
}

// Validate checks parameters of every stage
func (p PipelineParams) Validate() error {
	if err := p.Merge.Validate(); err != nil {
		return errors.Wrap(err, "merge")
	}
	if err := p.Fusion.Validate(); err != nil {
		return errors.Wrap(err, "fusion")
	}
	if err := p.Tracking.Validate(); err != nil {
		return errors.Wrap(err, "tracking")
	}
	return nil
}

// Pipeline runs merge, fusion and association for a single video clip.
// Like Engine it must be fed frames sequentially.
type Pipeline struct {
	params PipelineParams
	engine *Engine
	runID  uuid.UUID

	frames          int
	candidateCounts map[CandidateType]int
	sourceCounts    map[DetectionSource]int
}

// NewPipeline creates pipeline. Options are passed to the underlying Engine
func NewPipeline(params PipelineParams, opts ...EngineOption) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create pipeline")
	}
	engine, err := NewEngine(params.Tracking, opts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		params:          params,
		engine:          engine,
		runID:           uuid.New(),
		candidateCounts: make(map[CandidateType]int),
		sourceCounts:    make(map[DetectionSource]int),
	}, nil
}

// RunID returns identifier of this pipeline run
func (p *Pipeline) RunID() uuid.UUID {
	return p.runID
}

// Engine returns underlying association engine
func (p *Pipeline) Engine() *Engine {
	return p.engine
}

// FrameResult is output of a single processed frame
type FrameResult struct {
	Candidates []OrganismCandidate
	Detections []UnifiedDetection
	Step       StepResult
}

// ProcessFrame merges blobs, fuses them with appearance detections and associates result with tracks
func (p *Pipeline) ProcessFrame(frame Frame) FrameResult {
	candidates := MergeBlobs(frame.Index, frame.Dark, frame.Bright, p.params.Merge)
	detections := FuseDetections(frame.Index, frame.Appearance, candidates, p.params.Fusion)
	for _, c := range candidates {
		p.candidateCounts[c.Type]++
	}
	for _, d := range detections {
		p.sourceCounts[d.Source]++
	}
	p.frames++
	p.engine.observer.ObserveCandidates(frame.Index, candidates, detections)

	step := p.engine.Step(frame.Index, detections)
	return FrameResult{
		Candidates: candidates,
		Detections: detections,
		Step:       step,
	}
}

// RunSummary aggregates statistics of a run
type RunSummary struct {
	Frames          int            `json:"frames"`
	TotalTracks     int            `json:"total_tracks"`
	ValidTracks     int            `json:"valid_tracks"`
	FrozenTracks    int            `json:"frozen_tracks"`
	TotalCandidates int            `json:"total_candidates"`
	CandidateTypes  map[string]int `json:"candidate_types"`
	Sources         map[string]int `json:"sources"`
}

// RunResult is finalized output of a pipeline run
type RunResult struct {
	RunID   string         `json:"run_id"`
	Params  PipelineParams `json:"parameters"`
	Tracks  []TrackRecord  `json:"tracks"`
	Summary RunSummary     `json:"summary"`
}

// Finalize validates all tracks and builds run result. Pipeline may still be inspected afterwards
func (p *Pipeline) Finalize() RunResult {
	tracks := p.engine.Finalize()
	records := make([]TrackRecord, 0, len(tracks))
	summary := RunSummary{
		Frames:         p.frames,
		TotalTracks:    len(tracks),
		FrozenTracks:   len(p.engine.FrozenTracks()),
		CandidateTypes: make(map[string]int, len(p.candidateCounts)),
		Sources:        make(map[string]int, len(p.sourceCounts)),
	}
	for _, track := range tracks {
		records = append(records, NewTrackRecord(track))
		if track.IsValid {
			summary.ValidTracks++
		}
	}
	for ct, n := range p.candidateCounts {
		summary.CandidateTypes[ct.String()] = n
		summary.TotalCandidates += n
	}
	for src, n := range p.sourceCounts {
		summary.Sources[src.String()] = n
	}
	p.engine.logger.Info("run finalized",
		zap.String("run_id", p.runID.String()),
		zap.Int("frames", summary.Frames),
		zap.Int("tracks", summary.TotalTracks),
		zap.Int("valid", summary.ValidTracks),
	)
	return RunResult{
		RunID:   p.runID.String(),
		Params:  p.params,
		Tracks:  records,
		Summary: summary,
	}
}
