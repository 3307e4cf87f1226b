package mot

// Observer receives per-frame statistics. Implementations must be cheap: they are called
// synchronously from the frame loop.
type Observer interface {
	// ObserveCandidates is called by Pipeline after merging and fusion of a frame
	ObserveCandidates(frame int, candidates []OrganismCandidate, detections []UnifiedDetection)
	// ObserveStep is called by Engine after association of a frame
	ObserveStep(result StepResult)
}

type nopObserver struct{}

func (nopObserver) ObserveCandidates(int, []OrganismCandidate, []UnifiedDetection) {}
func (nopObserver) ObserveStep(StepResult)                                        {}
